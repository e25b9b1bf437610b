package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// PostgresFailedLoginRepo はPostgreSQLを使用したログイン失敗記録リポジトリ。
type PostgresFailedLoginRepo struct {
	db *sqlx.DB
}

// NewPostgresFailedLoginRepo はPostgresFailedLoginRepoを生成する。
func NewPostgresFailedLoginRepo(db *sqlx.DB) *PostgresFailedLoginRepo {
	return &PostgresFailedLoginRepo{db: db}
}

// Record はメールアドレス単位で失敗回数を1加算する。
// UNIQUE(email)制約を利用したINSERT ON CONFLICTで、同時報告でも回数を取りこぼさない。
func (r *PostgresFailedLoginRepo) Record(ctx context.Context, email, ip string, at time.Time) (*model.FailedLoginAttempt, error) {
	var attempt model.FailedLoginAttempt
	err := r.db.GetContext(ctx, &attempt,
		`INSERT INTO failed_login_attempts (id, email, ip_address, attempt_count, created_at, last_attempt)
		 VALUES ($1, $2, $3, 1, $4, $4)
		 ON CONFLICT (email) DO UPDATE SET
		     attempt_count = failed_login_attempts.attempt_count + 1,
		     last_attempt = EXCLUDED.last_attempt,
		     ip_address = EXCLUDED.ip_address
		 RETURNING id, email, ip_address, attempt_count, created_at, last_attempt`,
		uuid.New().String(), email, ip, at)
	if err != nil {
		return nil, fmt.Errorf("failed to record failed login: %w", err)
	}
	return &attempt, nil
}

// List は最終失敗日時の新しい順に返す。
func (r *PostgresFailedLoginRepo) List(ctx context.Context) ([]model.FailedLoginAttempt, error) {
	attempts := []model.FailedLoginAttempt{}
	err := r.db.SelectContext(ctx, &attempts,
		`SELECT id, email, ip_address, attempt_count, created_at, last_attempt
		 FROM failed_login_attempts ORDER BY last_attempt DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed logins: %w", err)
	}
	return attempts, nil
}

// DeleteOlderThan は最終失敗日時がbeforeより古い記録を削除する。
func (r *PostgresFailedLoginRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM failed_login_attempts WHERE last_attempt < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old failed logins: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ FailedLoginRepository = (*PostgresFailedLoginRepo)(nil)
