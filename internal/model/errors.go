// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, access, validation, task, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized            = "UNAUTHORIZED"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeIPNotAllowed            = "IP_NOT_ALLOWED"
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeTaskNotFound            = "TASK_NOT_FOUND"
	ErrCodeNotificationNotFound    = "NOTIFICATION_NOT_FOUND"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeTaskConflict            = "TASK_CONFLICT"
	ErrCodeInvalidPriority         = "INVALID_PRIORITY"
	ErrCodeUnknownAssignee         = "UNKNOWN_ASSIGNEE"
	ErrCodeEmptyComment            = "EMPTY_COMMENT"
	ErrCodeInvalidIPAddress        = "INVALID_IP_ADDRESS"
	ErrCodeDuplicateIP             = "DUPLICATE_IP"
	ErrCodeAllowedIPNotFound       = "ALLOWED_IP_NOT_FOUND"
	ErrCodeInvalidFileType         = "INVALID_FILE_TYPE"
	ErrCodeFileTooLarge            = "FILE_TOO_LARGE"
	ErrCodeInternal                = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewIPNotAllowedError はIP許可リスト外からのアクセスエラーを生成する。
func NewIPNotAllowedError(ip string) *APIError {
	return &APIError{
		Code:     ErrCodeIPNotAllowed,
		Message:  fmt.Sprintf("このIPアドレスからのアクセスは許可されていません: %s", ip),
		Category: "access",
		Action:   "許可されたネットワークから接続するか、管理者にIPアドレスの登録を依頼してください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  reason,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(notificationID string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("指定された通知が見つかりません: %s", notificationID),
		Category: "task",
		Action:   "通知一覧を再読み込みしてください。",
	}
}

// NewInvalidStatusTransitionError は循環順序に沿わない状態遷移のエラーを生成する。
func NewInvalidStatusTransitionError(from, to TaskStatus) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatusTransition,
		Message:  fmt.Sprintf("状態 %s から %s へは遷移できません。", from, to),
		Category: "validation",
		Action:   fmt.Sprintf("次に指定できる状態は %s です。", from.Next()),
	}
}

// NewTaskConflictError は他の更新と競合した場合のエラーを生成する。
func NewTaskConflictError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskConflict,
		Message:  fmt.Sprintf("タスクが他のユーザーによって更新されました: %s", taskID),
		Category: "task",
		Action:   "画面を再読み込みしてから操作してください。",
	}
}

// NewInvalidPriorityError は無効な優先度エラーを生成する。
func NewInvalidPriorityError(priority string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPriority,
		Message:  fmt.Sprintf("無効な優先度です: %s", priority),
		Category: "validation",
		Action:   "優先度には low、medium、high のいずれかを指定してください。",
	}
}

// NewUnknownAssigneeError は担当者が従業員ディレクトリに存在しない場合のエラーを生成する。
func NewUnknownAssigneeError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownAssignee,
		Message:  fmt.Sprintf("担当者が見つかりません: %s", email),
		Category: "validation",
		Action:   "従業員一覧から有効な担当者を選択してください。",
	}
}

// NewEmptyCommentError は空コメントのエラーを生成する。
func NewEmptyCommentError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyComment,
		Message:  "コメントが空です。",
		Category: "validation",
		Action:   "コメント本文を入力してください。",
	}
}

// NewInvalidIPAddressError は無効なIPアドレスのエラーを生成する。
func NewInvalidIPAddressError(ip string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidIPAddress,
		Message:  fmt.Sprintf("無効なIPアドレスです: %q", ip),
		Category: "validation",
		Action:   "203.0.113.5 のようなIPアドレスを入力してください。範囲指定（CIDR）は使用できません。",
	}
}

// NewDuplicateIPError は登録済みIPアドレスの重複エラーを生成する。
func NewDuplicateIPError(ip string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateIP,
		Message:  fmt.Sprintf("このIPアドレスは既に登録されています: %s", ip),
		Category: "validation",
		Action:   "許可リストを確認してください。",
	}
}

// NewAllowedIPNotFoundError は許可IP未検出エラーを生成する。
func NewAllowedIPNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeAllowedIPNotFound,
		Message:  fmt.Sprintf("指定された許可IPが見つかりません: %s", id),
		Category: "access",
		Action:   "許可リストを再読み込みしてください。",
	}
}

// NewInvalidFileTypeError は許可されていないファイル形式のエラーを生成する。
func NewInvalidFileTypeError(fileName string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFileType,
		Message:  fmt.Sprintf("許可されていないファイル形式です: %s", fileName),
		Category: "validation",
		Action:   "Word文書、PDF、画像（jpg, jpeg, png）のみアップロードできます。",
	}
}

// NewFileTooLargeError はファイルサイズ超過エラーを生成する。
func NewFileTooLargeError(size int64) *APIError {
	return &APIError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限を超えています: %dバイト", size),
		Category: "validation",
		Action:   "10MB未満のファイルを選択してください。",
	}
}
