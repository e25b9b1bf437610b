package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yangshinyaw/CIACHR/internal/gate"
	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/middleware"
	"github.com/yangshinyaw/CIACHR/internal/realtime"
)

// HealthChecker はDB疎通確認のインターフェース。*sqlx.DB が満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// ProfileDirectory は認証と検索に使う従業員ディレクトリ。
type ProfileDirectory interface {
	middleware.ProfileFinder
	ProfileSearcher
}

// FailedLoginServiceInterface はログイン失敗の記録と参照をまとめたインターフェース。
type FailedLoginServiceInterface interface {
	FailedLoginRecorder
	FailedLoginListerInterface
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	JWTSecret         []byte
	Profiles          ProfileDirectory
	Guard             middleware.GateEvaluator
	Metrics           metrics.MetricsCollector

	// 運用
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// 公開エンドポイント
	Decider  gate.Decider
	Accounts AccountRemover

	// ドメインサービス
	Tasks         TaskServiceInterface
	Comments      CommentServiceInterface
	Documents     DocumentServiceInterface
	Notifications NotificationServiceInterface
	Allowlist     AllowlistServiceInterface
	FailedLogins  FailedLoginServiceInterface

	// 変更通知
	Hub *realtime.Hub
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CORS
//	保護ルート: IPGate → Auth → RateLimit(General)
//
// IPゲートの判定、ログイン失敗の報告、一括削除、/unauthorized は保護ルートの外に置く。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	gateHandler := NewGateHandler(deps.Decider)
	failedLoginHandler := NewFailedLoginHandler(deps.FailedLogins)
	accountHandler := NewAccountHandler(deps.Accounts)
	taskHandler := NewTaskHandler(deps.Tasks)
	commentHandler := NewCommentHandler(deps.Comments)
	documentHandler := NewDocumentHandler(deps.Documents)
	notificationHandler := NewNotificationHandler(deps.Notifications)
	profileHandler := NewProfileHandler(deps.Profiles)
	adminHandler := NewAdminHandler(deps.Allowlist, deps.FailedLogins)
	streamHandler := NewStreamHandler(deps.Hub, deps.Tasks, deps.Notifications, deps.Comments)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Get(middleware.UnauthorizedPath, gateHandler.Unauthorized)

	// --- 公開エンドポイント（送信元IP単位のレート制限）---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.PublicMiddleware())

		r.Get("/api/gate/validate", gateHandler.Validate)
		r.Post("/api/gate/validate", gateHandler.Validate)
		r.Post("/api/auth/failed-login", failedLoginHandler.Report)
		r.Post("/api/admin/accounts/delete", accountHandler.DeleteAccounts)

		// 旧クライアント向けの互換パス
		r.Route("/functions/v1", func(r chi.Router) {
			r.Get("/validate-ip", gateHandler.Validate)
			r.Post("/validate-ip", gateHandler.Validate)
			r.Post("/handle-failed-login", failedLoginHandler.Report)
			r.Post("/delete-users", accountHandler.DeleteAccounts)
		})
	})

	// --- 保護ルート ---
	// ミドルウェアスタック: IPGate → Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIPGateMiddleware(deps.Guard))
		r.Use(middleware.NewAuthMiddleware(deps.JWTSecret, deps.Profiles))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// タスク
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)
			r.Post("/", taskHandler.CreateTask)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTask)
				r.Post("/advance", taskHandler.AdvanceStatus)
				r.Patch("/status", taskHandler.SetStatus)
				r.Patch("/assignee", taskHandler.Reassign)

				r.Get("/comments", commentHandler.ListComments)
				r.Post("/comments", commentHandler.PostComment)
				r.Get("/comments/stream", streamHandler.StreamComments)

				r.Get("/documents", documentHandler.ListDocuments)
				r.Post("/documents", documentHandler.AttachDocument)
			})
		})

		// 通知
		r.Route("/api/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.Delete("/", notificationHandler.DeleteAll)
			r.Put("/read", notificationHandler.MarkAllRead)
			r.Put("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/{id}", notificationHandler.DeleteNotification)
		})

		// 従業員ディレクトリ
		r.Get("/api/profiles/search", profileHandler.Search)

		// 変更通知ストリーム
		r.Get("/api/stream/tasks", streamHandler.StreamTasks)
		r.Get("/api/stream/notifications", streamHandler.StreamNotifications)

		// 管理者
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewAdminOnlyMiddleware())

			r.Get("/api/admin/allowed-ips", adminHandler.ListAllowedIPs)
			r.Post("/api/admin/allowed-ips", adminHandler.CreateAllowedIP)
			r.Delete("/api/admin/allowed-ips/{id}", adminHandler.DeleteAllowedIP)
			r.Get("/api/admin/failed-logins", adminHandler.ListFailedLogins)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
