// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextRenderer は利用者が入力したプレーンテキスト（コメント本文など）を
// HTMLとして表示できる安全な断片に変換する。本文は保存時には加工しない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextRenderer はプレーンテキストのHTML描画機能のインターフェースを定義する。
type TextRenderer interface {
	// Render は本文中の記号を全てエスケープし、改行だけを<br>に置き換えたHTMLを返す。
	// 同一入力に対して常に同一出力を返す。
	Render(text string) string
}

// textRenderer はTextRendererの実装。
// bluemondayのポリシーはスレッドセーフなので共有してよい。
type textRenderer struct {
	policy *bluemonday.Policy
}

// NewTextRenderer はTextRendererの新しいインスタンスを生成する。
// 出力に残してよい要素はbrのみ。
func NewTextRenderer() *textRenderer {
	return &textRenderer{
		policy: bluemonday.NewPolicy().AllowElements("br"),
	}
}

// Render はプレーンテキストを安全なHTML断片に変換する。
// 先にエスケープするため、本文中の "<" がタグとして解釈されることはない。
func (r *textRenderer) Render(text string) string {
	escaped := html.EscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return r.policy.Sanitize(strings.ReplaceAll(escaped, "\n", "<br>"))
}
