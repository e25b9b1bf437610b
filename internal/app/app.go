package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yangshinyaw/CIACHR/internal/account"
	"github.com/yangshinyaw/CIACHR/internal/allowlist"
	"github.com/yangshinyaw/CIACHR/internal/comment"
	"github.com/yangshinyaw/CIACHR/internal/config"
	"github.com/yangshinyaw/CIACHR/internal/database"
	"github.com/yangshinyaw/CIACHR/internal/document"
	"github.com/yangshinyaw/CIACHR/internal/gate"
	"github.com/yangshinyaw/CIACHR/internal/handler"
	"github.com/yangshinyaw/CIACHR/internal/logger"
	"github.com/yangshinyaw/CIACHR/internal/loginaudit"
	"github.com/yangshinyaw/CIACHR/internal/metrics"
	"github.com/yangshinyaw/CIACHR/internal/middleware"
	"github.com/yangshinyaw/CIACHR/internal/notification"
	"github.com/yangshinyaw/CIACHR/internal/realtime"
	"github.com/yangshinyaw/CIACHR/internal/repository"
	"github.com/yangshinyaw/CIACHR/internal/task"
	"github.com/yangshinyaw/CIACHR/internal/telemetry"
	"github.com/yangshinyaw/CIACHR/internal/worker/cleanup"
	"github.com/yangshinyaw/CIACHR/internal/worker/deadline"
)

const serviceName = "ciachr"

// Init はアプリケーションの初期化を行う。
// .envと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの取り込み（既存の環境変数が優先される）
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. トレースとメトリクス
	shutdownTracing, err := telemetry.Setup(cfg.TraceStdout, serviceName, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			slog.Warn("tracer shutdown failed", slog.String("error", err.Error()))
		}
	}()

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	commentRepo := repository.NewPostgresCommentRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	documentRepo := repository.NewPostgresDocumentRepo(db)
	performanceRepo := repository.NewPostgresPerformanceRepo(db)
	allowedIPRepo := repository.NewPostgresAllowedIPRepo(db)
	failedLoginRepo := repository.NewPostgresFailedLoginRepo(db)

	// 4. ドメインサービスの初期化
	emitter := notification.NewEmitter(notificationRepo, profileRepo, taskRepo, collector, cfg.DeadlineWindowDays)
	taskService := task.NewService(taskRepo, profileRepo, emitter)
	commentService := comment.NewService(commentRepo, taskRepo, profileRepo, emitter, collector)
	documentService := document.NewService(documentRepo, taskRepo)
	inbox := notification.NewInbox(notificationRepo)
	allowlistService := allowlist.NewService(allowedIPRepo)
	loginAuditService := loginaudit.NewService(failedLoginRepo, collector)
	accountService := account.NewService(
		account.Credentials{Username: cfg.AdminUsername, Password: cfg.AdminPassword},
		profileRepo, notificationRepo, taskRepo, performanceRepo, commentRepo,
	)

	// 5. IPゲート
	decider := newDecider(cfg, allowedIPRepo, collector)
	guard := gate.NewGuard(decider, cfg.GateTimeout)

	// 6. 変更通知の配信
	listener, err := realtime.NewListener(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to listen for table changes: %w", err)
	}
	hub := realtime.NewHub(listener, collector)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := hub.Run(ctx); err != nil {
			slog.Error("realtime hub stopped", slog.String("error", err.Error()))
		}
	}()

	// 7. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitPublic))
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		JWTSecret:         []byte(cfg.JWTSecret),
		Profiles:          profileRepo,
		Guard:             guard,
		Metrics:           collector,
		HealthChecker:     db,
		Gatherer:          registry,
		Decider:           decider,

		Accounts:      accountService,
		Tasks:         taskService,
		Comments:      commentService,
		Documents:     documentService,
		Notifications: inbox,
		Allowlist:     allowlistService,
		FailedLogins:  loginAuditService,
		Hub:           hub,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		// ストリーム接続はベースコンテキストのキャンセルで終了させる
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("remote_gate", cfg.GateRemoteURL != ""),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// 開いたままのストリームがShutdownを塞がないよう先に閉じる
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newDecider は設定に応じて許可判定の実装を選ぶ。
// GATE_REMOTE_URLが設定されている場合は外部の判定関数を呼び出す。
func newDecider(cfg *config.Config, store gate.Store, collector metrics.MetricsCollector) gate.Decider {
	if cfg.GateRemoteURL != "" {
		return gate.NewRemoteDecider(&http.Client{Timeout: cfg.GateTimeout}, cfg.GateRemoteURL)
	}
	return gate.NewLocalDecider(store, collector)
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限走査スケジューラとクリーンアップジョブを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	shutdownTracing, err := telemetry.Setup(cfg.TraceStdout, serviceName+"-worker", os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	// ワーカーはメトリクスを公開しないが、記録先は共通にしておく
	collector := metrics.NewCollector(prometheus.NewRegistry())

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	failedLoginRepo := repository.NewPostgresFailedLoginRepo(db)

	// 3. 期限走査スケジューラの初期化
	emitter := notification.NewEmitter(notificationRepo, profileRepo, taskRepo, collector, cfg.DeadlineWindowDays)
	scheduler := deadline.NewScheduler(emitter, slog.Default())

	// 4. クリーンアップジョブの初期化
	loginAuditService := loginaudit.NewService(failedLoginRepo, collector)
	cleanupJob := cleanup.NewCleanupJob(loginAuditService, slog.Default(), cfg.FailedLoginRetentionDays)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("deadline_check_interval", cfg.DeadlineCheckInterval),
		slog.Int("deadline_window_days", cfg.DeadlineWindowDays),
		slog.Int("failed_login_retention_days", cfg.FailedLoginRetentionDays),
	)

	// クリーンアップジョブを日次でバックグラウンド実行
	go func() {
		// 起動直後に1回実行
		if err := cleanupJob.Run(ctx); err != nil {
			slog.Error("cleanup job failed", slog.String("error", err.Error()))
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := cleanupJob.Run(ctx); err != nil {
					slog.Error("cleanup job failed", slog.String("error", err.Error()))
				}
			}
		}
	}()

	// 期限走査スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx, cfg.DeadlineCheckInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
