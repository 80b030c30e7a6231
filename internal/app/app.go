package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/analysis"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/config"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/database"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/handler"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/llm"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/logger"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/metrics"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/middleware"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/notification"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/pool"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/quota"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/repository"
	"github.com/HSRyuuu/CareerBuilder-SVR-sub000/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
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
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、AI分析プールと通知プールを
// 起動した上でHTTPサーバーを開始する。SIGINTまたはSIGTERMシグナルを
// 受信するとグレースフルシャットダウンを行う。
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

	// 2. Redis接続（使用量カウンタのキャッシュ。接続確認は行わない。
	//    Redisが落ちていてもカウンタはDB算出にフォールバックする）
	redisClient, err := database.OpenRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to configure redis client: %w", err)
	}
	defer redisClient.Close()

	// 3. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	experienceRepo := repository.NewPostgresExperienceRepo(db)
	requestRepo := repository.NewPostgresAnalysisRequestRepo(db)
	analysisRepo := repository.NewPostgresAnalysisRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)

	// 4. クォータゲートの構築
	counterCache := quota.NewRedisCounterCache(redisClient)
	usageCounter := quota.NewCounter(counterCache, requestRepo, slog.Default())
	planResolver := quota.NewPlanResolver(userRepo)
	gate := quota.NewGate(usageCounter, planResolver)

	// 5. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 6. ワーカープールの構築
	appCtx, cancelApp := context.WithCancel(context.Background())
	defer cancelApp()

	aiPool := pool.New("ai-pool", cfg.AIPoolWorkers, cfg.AIPoolQueueSize, slog.Default())
	notifyPool := pool.New("notify-pool", cfg.NotifyWorkers, cfg.NotifyQueueSize, slog.Default())
	aiPool.Start(appCtx)
	notifyPool.Start(appCtx)

	// 7. ドメインサービスの構築
	llmClient := llm.NewOpenAIClient(
		&http.Client{Timeout: cfg.ModelTimeout},
		slog.Default(),
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
	)

	dispatcher := notification.NewDispatcher(notificationRepo, notifyPool, collector, slog.Default())
	notificationService := notification.NewService(notificationRepo)

	analysisWorker := analysis.NewWorker(
		requestRepo, experienceRepo, analysisRepo,
		planResolver, usageCounter, llmClient, dispatcher,
		collector, slog.Default(), cfg.ModelTimeout,
	)
	analysisService := analysis.NewService(
		experienceRepo, requestRepo, analysisRepo,
		gate, analysisWorker, aiPool,
		collector, slog.Default(),
	)

	// 8. クリーンアップジョブを日次でバックグラウンド実行
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default())
	cleanupJob.RetentionDays = cfg.RetentionDays
	go runCleanupLoop(appCtx, cleanupJob)

	// 9. ルーターの構築
	rateLimiterCfg := middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(cfg.RateLimitGeneral) / 60.0),
		GeneralBurst:    cfg.RateLimitGeneral,
		AnalysisRate:    rate.Limit(float64(cfg.RateLimitAnalysis) / 60.0),
		AnalysisBurst:   cfg.RateLimitAnalysis,
		CleanupInterval: 5 * time.Minute,
	}

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		SessionFinder:     sessionRepo,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       middleware.NewRateLimiter(rateLimiterCfg),
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},

		MetricsHandler: metrics.Handler(registry),

		AnalysisService:     analysisService,
		NotificationService: notificationService,
	}

	router := handler.NewRouter(deps)

	// 10. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Int("ai_pool_workers", cfg.AIPoolWorkers),
			slog.Int("notify_pool_workers", cfg.NotifyWorkers),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	// 新規リクエストの受付を先に止めてから、プールの残タスクを処理し切る
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// appCtxはまだキャンセルしない。Stopで受付を閉じ、キュー済みタスクを
	// ワーカーが処理し切るのを待つ。ai-poolのタスクが通知を投入するため、
	// notify-poolは後に閉じる
	aiPool.Stop()
	aiPool.Wait()
	notifyPool.Stop()
	notifyPool.Wait()

	slog.Info("API server stopped gracefully")
	return nil
}

// runCleanupLoop はクリーンアップジョブを起動直後に1回、以降24時間ごとに実行する。
func runCleanupLoop(ctx context.Context, job *cleanup.CleanupJob) {
	if err := job.Run(ctx); err != nil {
		slog.Error("cleanup job failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job.Run(ctx); err != nil {
				slog.Error("cleanup job failed", slog.String("error", err.Error()))
			}
		}
	}
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
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
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
