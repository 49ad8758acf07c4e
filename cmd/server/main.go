package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/6ixplatform/6ix-sub001/common/id"
	"github.com/6ixplatform/6ix-sub001/common/logger"
	"github.com/6ixplatform/6ix-sub001/common/otel"
	"github.com/6ixplatform/6ix-sub001/core/config"
	"github.com/6ixplatform/6ix-sub001/core/db"
	"github.com/6ixplatform/6ix-sub001/internal/attach"
	"github.com/6ixplatform/6ix-sub001/internal/blob"
	"github.com/6ixplatform/6ix-sub001/internal/guard"
	"github.com/6ixplatform/6ix-sub001/internal/http/middleware"
	httprouter "github.com/6ixplatform/6ix-sub001/internal/http/router"
	"github.com/6ixplatform/6ix-sub001/internal/imagegen"
	"github.com/6ixplatform/6ix-sub001/internal/model"
	"github.com/6ixplatform/6ix-sub001/internal/service"
	"github.com/6ixplatform/6ix-sub001/internal/store"
	"github.com/6ixplatform/6ix-sub001/internal/stream"
	"github.com/6ixplatform/6ix-sub001/internal/toolcall"
	"github.com/6ixplatform/6ix-sub001/internal/turn"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "6ix starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected")

	blobStore, err := blob.New(blob.Config(cfg.Blob))
	if err != nil {
		slog.ErrorContext(ctx, "failed to create blob store", "error", err)
		os.Exit(1)
	}
	if err := blobStore.EnsureBucket(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure blob bucket", "error", err)
		os.Exit(1)
	}

	llm, err := stream.New(stream.Config{
		BaseURL:       cfg.Completion.BaseURL,
		APIKey:        cfg.Completion.APIKey,
		Model:         cfg.Completion.Model,
		ResolvedModel: cfg.Completion.ResolvedModel,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create completion client", "error", err)
		os.Exit(1)
	}

	imageClient, err := imagegen.New(imagegen.Config{
		BaseURL: cfg.Image.BaseURL,
		APIKey:  cfg.Image.APIKey,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create image client", "error", err)
		os.Exit(1)
	}

	analyzer, err := attach.NewAnalyzer(attach.AnalyzerConfig{
		BaseURL: cfg.Analysis.BaseURL,
		APIKey:  cfg.Analysis.APIKey,
		Model:   cfg.Analysis.Model,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create analyzer", "error", err)
		os.Exit(1)
	}

	fetcher := toolcall.NewFetcher(toolcall.FetchConfig{
		SearchURL:   cfg.Tools.SearchURL,
		SearchKey:   cfg.Tools.SearchKey,
		QuotesURL:   cfg.Tools.QuotesURL,
		QuotesKey:   cfg.Tools.QuotesKey,
		WeatherURL:  cfg.Tools.WeatherURL,
		WeatherKey:  cfg.Tools.WeatherKey,
		SearchLimit: cfg.Tools.SearchLimit,
	})
	tools := toolcall.NewRunner(llm, fetcher)

	stores := store.NewStores(database)
	quota := guard.NewQuota(redisClient)

	manager := turn.NewManager(func(user *model.User, conv *model.Conversation) *turn.Orchestrator {
		pipeline := attach.NewPipeline(blobStore, analyzer, attach.Config{
			Plan:  user.Plan,
			Model: cfg.Analysis.Model,
		})
		return turn.New(user, conv, turn.Deps{
			LLM:           llm,
			Tools:         tools,
			Image:         imageClient,
			Analyzer:      analyzer,
			Pipeline:      pipeline,
			Quota:         quota,
			Conversations: stores.Conversations(),
			Preferences:   stores.Preferences(),
		}, turn.Config{
			Model:         cfg.Completion.Model,
			ResolvedModel: cfg.Completion.ResolvedModel,
			ImageModel:    cfg.Image.Model,
			HistoryWindow: cfg.Turn.HistoryWindow,
			HUDInterval:   cfg.Turn.HUDInterval,
		})
	})

	authService := service.NewAuthService(stores.Users(), stores.Sessions(), cfg.WorkOS)

	refresher := service.NewRefresher(
		redisClient,
		cfg.Redis.HydrateChannel,
		cfg.Turn.RefreshInterval,
		stores.Conversations(),
		manager,
	)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := refresher.Run(runCtx); err != nil && runCtx.Err() == nil {
			slog.ErrorContext(runCtx, "refresher stopped", "error", err)
		}
	}()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, authService, manager, stores)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Long enough for a full streamed turn.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	<-runCtx.Done()

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, authService service.AuthService, manager *turn.Manager, stores *store.Stores) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, authService, manager, stores, httprouter.RouterConfig{
		AppURL:       cfg.AppURL,
		IsProduction: cfg.IsProduction(),
	})

	return router
}

const banner = `
 ██████╗ ██╗██╗  ██╗     ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝ ██║╚██╗██╔╝    ██╔════╝██║  ██║██╔══██╗╚══██╔══╝
███████╗ ██║ ╚███╔╝     ██║     ███████║███████║   ██║
██╔═══██╗██║ ██╔██╗     ██║     ██╔══██║██╔══██║   ██║
╚██████╔╝██║██╔╝ ██╗    ╚██████╗██║  ██║██║  ██║   ██║
 ╚═════╝ ╚═╝╚═╝  ╚═╝     ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝
`
