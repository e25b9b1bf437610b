// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限ロールを表す。
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Profile は従業員ディレクトリのエントリ（ID基盤上のユーザー）を表す。
type Profile struct {
	ID        string    `db:"id"`
	Email     string    `db:"email"`
	FullName  string    `db:"full_name"`
	Role      Role      `db:"role"`
	CreatedAt time.Time `db:"created_at"`
}

// Actor は操作を行うユーザーの認証済みコンテキストを表す。
// グローバルなセッション参照を使わず、ゲートや通知エンジンに明示的に渡す。
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin は管理者ロールかどうかを返す。
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// AllowedIP はアクセスを許可するIPアドレスを表す。
// 照合は文字列の完全一致で行う。
type AllowedIP struct {
	ID          string    `db:"id"`
	IPAddress   string    `db:"ip_address"`
	Description *string   `db:"description"`
	CreatedBy   string    `db:"created_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// FailedLoginAttempt はメールアドレスごとのログイン失敗の累積記録を表す。
// 回数は加算のみで、ロックアウトは行わない。
type FailedLoginAttempt struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	IPAddress    string    `db:"ip_address"`
	AttemptCount int       `db:"attempt_count"`
	CreatedAt    time.Time `db:"created_at"`
	LastAttempt  time.Time `db:"last_attempt"`
}
