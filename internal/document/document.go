// Package document はタスク添付ファイルの検証とメタデータ管理を提供する。
// ファイル本体は外部ストレージに置き、ここではメタデータのみを扱う。
package document

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yangshinyaw/CIACHR/internal/model"
	"github.com/yangshinyaw/CIACHR/internal/repository"
)

// MaxFileSize はアップロード可能なファイルサイズの上限（10MB）。
const MaxFileSize int64 = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	"doc":  true,
	"docx": true,
	"pdf":  true,
	"jpg":  true,
	"jpeg": true,
	"png":  true,
}

var (
	nonASCII      = regexp.MustCompile(`[^\x00-\x7F]`)
	unsafeFileChr = regexp.MustCompile(`[&/\\#,+()$~%'":*?<>{}]`)
)

// Extension はファイル名の拡張子を小文字で返す。拡張子がなければ空文字列を返す。
func Extension(fileName string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}

// Validate はサイズと拡張子を検証する。
func Validate(fileName string, size int64) error {
	if size > MaxFileSize {
		return model.NewFileTooLargeError(size)
	}
	if !allowedExtensions[Extension(fileName)] {
		return model.NewInvalidFileTypeError(fileName)
	}
	return nil
}

// SanitizeFileName は非ASCII文字を除去し、パスやシェルで問題になる記号を_に置き換える。
func SanitizeFileName(fileName string) string {
	return unsafeFileChr.ReplaceAllString(nonASCII.ReplaceAllString(fileName, ""), "_")
}

// TaskFinder はタスクの存在確認に使う。
type TaskFinder interface {
	FindByID(ctx context.Context, id string) (*model.Task, error)
}

// Service は添付ファイルメタデータのサービス。
type Service struct {
	repo  repository.DocumentRepository
	tasks TaskFinder
}

// NewService はServiceを生成する。
func NewService(repo repository.DocumentRepository, tasks TaskFinder) *Service {
	return &Service{repo: repo, tasks: tasks}
}

// Attach はファイルを検証し、サニタイズしたファイル名でメタデータを登録する。
func (s *Service) Attach(ctx context.Context, actor model.Actor, taskID, fileName string, size int64) (*model.Document, error) {
	if err := Validate(fileName, size); err != nil {
		return nil, err
	}
	if err := s.requireTask(ctx, actor, taskID); err != nil {
		return nil, err
	}

	doc := &model.Document{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		FileName:  SanitizeFileName(fileName),
		FileType:  Extension(fileName),
		Size:      size,
		CreatedBy: actor.UserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListByTask はタスクの添付ファイルを返す。
func (s *Service) ListByTask(ctx context.Context, actor model.Actor, taskID string) ([]model.Document, error) {
	if err := s.requireTask(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.repo.ListByTask(ctx, taskID)
}

// requireTask は操作者が参照できるタスクかを確認する。
func (s *Service) requireTask(ctx context.Context, actor model.Actor, taskID string) error {
	task, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil || !task.AccessibleBy(actor) {
		return model.NewTaskNotFoundError(taskID)
	}
	return nil
}
