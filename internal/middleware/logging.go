package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yangshinyaw/CIACHR/internal/gate"
	"github.com/yangshinyaw/CIACHR/internal/model"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// Unwrap はhttp.ResponseControllerがFlushなどを元のWriterへ届けるために使う。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// requestLog は下流のミドルウェアが判明した情報をアクセスログへ渡すための入れ物。
type requestLog struct {
	actor model.Actor
}

var requestLogContextKey = contextKey("request_log")

// noteActor は認証済みの操作者をアクセスログに記録させる。
// ロギングミドルウェアの外側では何もしない。
func noteActor(ctx context.Context, actor model.Actor) {
	if rl, ok := ctx.Value(requestLogContextKey).(*requestLog); ok {
		rl.actor = actor
	}
}

// quietPaths はヘルスチェックなど定期的に叩かれるパス。Debugレベルで記録する。
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、client_ip、user_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			rl := &requestLog{}
			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogContextKey, rl)))

			durationMs := float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
				slog.String("client_ip", gate.ClientIP(r)),
			}

			// 認証ミドルウェアが操作者を確認した場合は追加
			actor := rl.actor
			if actor.UserID == "" {
				actor, _ = ActorFromContext(r.Context())
			}
			if actor.UserID != "" {
				attrs = append(attrs,
					slog.String("user_id", actor.UserID),
					slog.String("role", string(actor.Role)),
				)
			}

			logger.LogAttrs(r.Context(), levelFor(r.URL.Path, rec.statusCode), "http_request", attrs...)
		})
	}
}

// levelFor はステータスコードに応じたログレベルを返す。
func levelFor(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case quietPaths[path]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
