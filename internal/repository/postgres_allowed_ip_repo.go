package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// PostgresAllowedIPRepo はPostgreSQLを使用したIP許可リストリポジトリ。
type PostgresAllowedIPRepo struct {
	db *sqlx.DB
}

// NewPostgresAllowedIPRepo はPostgresAllowedIPRepoを生成する。
func NewPostgresAllowedIPRepo(db *sqlx.DB) *PostgresAllowedIPRepo {
	return &PostgresAllowedIPRepo{db: db}
}

// Exists はIPアドレスが許可リストに存在するかを返す。文字列の完全一致で照合する。
func (r *PostgresAllowedIPRepo) Exists(ctx context.Context, ip string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM allowed_ips WHERE ip_address = $1)`, ip)
	if err != nil {
		return false, fmt.Errorf("failed to check allowed ip: %w", err)
	}
	return exists, nil
}

// List は許可リストを登録日時の新しい順に返す。
func (r *PostgresAllowedIPRepo) List(ctx context.Context) ([]model.AllowedIP, error) {
	entries := []model.AllowedIP{}
	err := r.db.SelectContext(ctx, &entries,
		`SELECT id, ip_address, description, created_by, created_at
		 FROM allowed_ips ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list allowed ips: %w", err)
	}
	return entries, nil
}

// Create は許可IPを登録する。
func (r *PostgresAllowedIPRepo) Create(ctx context.Context, entry *model.AllowedIP) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO allowed_ips (id, ip_address, description, created_by, created_at)
		 VALUES (:id, :ip_address, :description, :created_by, :created_at)`,
		entry)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert allowed ip: %w", err)
	}
	return nil
}

// Delete は許可IPを削除する。
func (r *PostgresAllowedIPRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM allowed_ips WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete allowed ip: %w", err)
	}
	return affectedOne(result)
}

// compile-time interface check
var _ AllowedIPRepository = (*PostgresAllowedIPRepo)(nil)
