package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// PostgresDocumentRepo はPostgreSQLを使用した添付ファイルメタデータリポジトリ。
type PostgresDocumentRepo struct {
	db *sqlx.DB
}

// NewPostgresDocumentRepo はPostgresDocumentRepoを生成する。
func NewPostgresDocumentRepo(db *sqlx.DB) *PostgresDocumentRepo {
	return &PostgresDocumentRepo{db: db}
}

// Create はメタデータを登録する。
func (r *PostgresDocumentRepo) Create(ctx context.Context, doc *model.Document) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO documents (id, task_id, file_name, file_type, size, created_by, created_at)
		 VALUES (:id, :task_id, :file_name, :file_type, :size, :created_by, :created_at)`,
		doc)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// ListByTask はタスクの添付ファイルを登録順に返す。
func (r *PostgresDocumentRepo) ListByTask(ctx context.Context, taskID string) ([]model.Document, error) {
	docs := []model.Document{}
	err := r.db.SelectContext(ctx, &docs,
		`SELECT id, task_id, file_name, file_type, size, created_by, created_at
		 FROM documents WHERE task_id = $1 ORDER BY created_at`,
		taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

// compile-time interface check
var _ DocumentRepository = (*PostgresDocumentRepo)(nil)
