// cmd/assistant/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finassist/internal/classify"
	"finassist/internal/common/alert"
	"finassist/internal/common/bedrock"
	"finassist/internal/common/config"
	"finassist/internal/common/database"
	"finassist/internal/common/logger"
	"finassist/internal/common/observability"
	"finassist/internal/delegate"
	"finassist/internal/handlers/budgetguardian"
	"finassist/internal/handlers/dispatch"
	"finassist/internal/handlers/goal"
	"finassist/internal/handlers/queryagent"
	"finassist/internal/handlers/transaction"
	"finassist/internal/memory"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func handlerTimeout(cfg *config.Config, name string, fallback time.Duration) time.Duration {
	if hc, ok := cfg.Handlers[name]; ok && hc.Timeout > 0 {
		return time.Duration(hc.Timeout) * time.Millisecond
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting assistant...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs := observability.New(cfg.App.Name, "")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Completion Client ---
	completer, err := bedrock.NewClient(ctx, cfg.Bedrock.Region, cfg.Bedrock.ModelID)
	if err != nil {
		zapLog.Fatal("bedrock client failed", zap.Error(err))
	}
	zapLog.Info("Completion client initialized",
		zap.String("region", cfg.Bedrock.Region),
		zap.String("modelId", cfg.Bedrock.ModelID),
	)

	// --- Init Alert Publisher (optional) ---
	var publisher alert.Publisher
	if cfg.Alerts.Enabled {
		snsPublisher, err := alert.NewSNSPublisher(ctx, cfg.Alerts.Region, cfg.Alerts.SNSTopicARN)
		if err != nil {
			zapLog.Fatal("sns publisher failed", zap.Error(err))
		}
		publisher = snsPublisher
		zapLog.Info("Alert publisher initialized", zap.String("topic", cfg.Alerts.SNSTopicARN))
	}

	// --- Shared Memory Store ---
	store := memory.NewRedisStore(redis.Client, cfg.Memory.MaxExchanges, cfg.Memory.TTLDuration())

	// --- Routing Components ---
	classifier := classify.NewClassifier(completer, log)
	invoker := delegate.NewHTTPInvoker(
		cfg.Delegates.BaseURLs,
		cfg.Delegates.TimeoutDuration(),
		cfg.Delegates.MaxRetries,
		log,
	)
	advisor := dispatch.NewCompletionAdvisor(completer)

	// --- Handlers ---
	dispatchHandler := dispatch.NewHandler(
		&dispatch.Config{Timeout: handlerTimeout(cfg, "dispatch", 60*time.Second)},
		classifier, invoker, advisor, log,
	).WithObservability(obs)

	queryHandler := queryagent.NewHandler(
		&queryagent.Config{
			Timeout:       handlerTimeout(cfg, "query", 60*time.Second),
			ContextWindow: cfg.Memory.ContextWindow,
			DefaultUserID: "default_user",
		},
		pg.DB, completer, store, log,
	)

	budgetHandler := budgetguardian.NewHandler(
		&budgetguardian.Config{
			Timeout:       handlerTimeout(cfg, "budget_guardian", 45*time.Second),
			WindowDays:    1,
			ContextWindow: cfg.Memory.ContextWindow,
			DefaultUserID: "default_user",
			AlertsEnabled: cfg.Alerts.Enabled,
			DailyLimit:    cfg.Alerts.DailyLimit,
		},
		pg.DB, completer, store, publisher, log,
	)

	transactionHandler := transaction.NewHandler(
		&transaction.Config{Timeout: handlerTimeout(cfg, "transaction", 45*time.Second)},
		pg.DB, completer, log,
	)

	goalHandler := goal.NewHandler(
		&goal.Config{Timeout: handlerTimeout(cfg, "goal", 45*time.Second)},
		pg.DB, completer, log,
	)

	// --- HTTP Router ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/webhook/telegram", dispatchHandler.Handle)
	router.POST("/agents/query", queryHandler.Handle)
	router.POST("/agents/budget-guardian", budgetHandler.Handle)
	router.POST("/agents/transaction", transactionHandler.Handle)
	router.POST("/agents/goal", goalHandler.Handle)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := pg.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}

	zapLog.Info("Assistant stopped gracefully")
}
