package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sqlx.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sqlx.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	// NULLはNOT NULL制約に反するため空配列にする
	if comment.Mentions == nil {
		comment.Mentions = pq.StringArray{}
	}
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO comments (id, task_id, user_id, content, mentions, created_at)
		 VALUES (:id, :task_id, :user_id, :content, :mentions, :created_at)`,
		comment)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListByTask はタスクのコメントを新しい順に返す。
func (r *PostgresCommentRepo) ListByTask(ctx context.Context, taskID string) ([]model.Comment, error) {
	comments := []model.Comment{}
	err := r.db.SelectContext(ctx, &comments,
		`SELECT id, task_id, user_id, content, mentions, created_at
		 FROM comments WHERE task_id = $1
		 ORDER BY created_at DESC`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// DeleteByUserID は指定ユーザーが投稿したコメントを全て削除する。
func (r *PostgresCommentRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
