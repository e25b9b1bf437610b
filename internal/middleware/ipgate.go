package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/yangshinyaw/CIACHR/internal/gate"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// UnauthorizedPath はIPゲートで拒否されたクライアントの誘導先。
const UnauthorizedPath = "/unauthorized"

// GateEvaluator は保護ルートへの入場判定を行う。
type GateEvaluator interface {
	Evaluate(ctx context.Context, origin gate.Origin) gate.Result
}

// NewIPGateMiddleware はリクエストごとにIPゲートを評価するミドルウェアを返す。
// 拒否時、ブラウザ（Accept: text/html）は /unauthorized へリダイレクトし、
// APIクライアントには403とX-Redirectヘッダーを返す。
func NewIPGateMiddleware(guard GateEvaluator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := guard.Evaluate(r.Context(), gate.OriginFromRequest(r))
			if res.Verdict == gate.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if acceptsHTML(r) {
				http.Redirect(w, r, UnauthorizedPath, http.StatusFound)
				return
			}
			w.Header().Set("X-Redirect", UnauthorizedPath)
			WriteErrorResponse(w, http.StatusForbidden, model.NewIPNotAllowedError(res.IP))
		})
	}
}

func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
