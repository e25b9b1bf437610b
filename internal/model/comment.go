// Package model はドメインモデルを定義する。
package model

import (
	"time"

	"github.com/lib/pq"
)

// Comment はタスクへのコメントを表す。作成後は変更しない。
// Mentions には解決済みのメールアドレスを保持する。
type Comment struct {
	ID        string         `db:"id"`
	TaskID    string         `db:"task_id"`
	UserID    string         `db:"user_id"`
	Content   string         `db:"content"`
	Mentions  pq.StringArray `db:"mentions"`
	CreatedAt time.Time      `db:"created_at"`
}

// Document はタスクに添付されたファイルのメタデータを表す。
// ファイル本体は外部ストレージに置く。
type Document struct {
	ID        string    `db:"id"`
	TaskID    string    `db:"task_id"`
	FileName  string    `db:"file_name"`
	FileType  string    `db:"file_type"`
	Size      int64     `db:"size"`
	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
}
