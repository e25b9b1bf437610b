package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PostgresPerformanceRepo はPostgreSQLを使用した従業員評価記録リポジトリ。
// アカウント削除時の後始末にのみ使う。
type PostgresPerformanceRepo struct {
	db *sqlx.DB
}

// NewPostgresPerformanceRepo はPostgresPerformanceRepoを生成する。
func NewPostgresPerformanceRepo(db *sqlx.DB) *PostgresPerformanceRepo {
	return &PostgresPerformanceRepo{db: db}
}

// DeleteByEmployeeID は従業員の評価記録を全て削除する。
func (r *PostgresPerformanceRepo) DeleteByEmployeeID(ctx context.Context, employeeID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM employee_performance WHERE employee_id = $1`, employeeID)
	if err != nil {
		return fmt.Errorf("failed to delete employee performance: %w", err)
	}
	return nil
}

// compile-time interface check
var _ PerformanceRepository = (*PostgresPerformanceRepo)(nil)
