// Package mention はコメント本文からメンションを抽出し、従業員ディレクトリで解決する。
package mention

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yangshinyaw/CIACHR/internal/model"
)

// mentionPattern はメールアドレス形式のメンション（@user@example.com）にマッチする。
var mentionPattern = regexp.MustCompile(`@([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// activeQueryPattern は入力中の短いメンション（@prefix）にマッチする。
var activeQueryPattern = regexp.MustCompile(`@(\w*)$`)

// Directory はメンション解決に使う従業員ディレクトリ。
type Directory interface {
	FindByEmails(ctx context.Context, emails []string) ([]model.Profile, error)
}

// Extract は本文中のメンションを出現順に返す。重複は除去しない。
// マッチがない場合は空スライスを返す。
func Extract(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	emails := make([]string, 0, len(matches))
	for _, m := range matches {
		emails = append(emails, m[1])
	}
	return emails
}

// ActiveQuery はカーソル直前の入力中メンションの検索語を返す。
// 入力中のメンションがない場合はfalseを返す。
func ActiveQuery(textBeforeCursor string) (string, bool) {
	m := activeQueryPattern.FindStringSubmatch(textBeforeCursor)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Resolve は登録済みのプロフィールに一致するメンションだけを出現順に返す。
// 照合は大文字小文字を区別しない。未登録のメンションは黙って捨てる。
func Resolve(ctx context.Context, dir Directory, emails []string) ([]model.Profile, error) {
	if len(emails) == 0 {
		return []model.Profile{}, nil
	}

	known, err := dir.FindByEmails(ctx, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve mentions: %w", err)
	}

	byEmail := make(map[string]model.Profile, len(known))
	for _, p := range known {
		byEmail[strings.ToLower(p.Email)] = p
	}

	resolved := make([]model.Profile, 0, len(emails))
	for _, e := range emails {
		if p, ok := byEmail[strings.ToLower(e)]; ok {
			resolved = append(resolved, p)
		}
	}
	return resolved, nil
}
