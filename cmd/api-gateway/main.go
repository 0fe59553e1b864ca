// Package main API Gateway 服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"z-scene-ai-api/internal/application/scene"
	"z-scene-ai-api/internal/application/story"
	"z-scene-ai-api/internal/config"
	"z-scene-ai-api/internal/domain/repository"
	"z-scene-ai-api/internal/infrastructure/generator"
	"z-scene-ai-api/internal/infrastructure/llm"
	"z-scene-ai-api/internal/infrastructure/persistence/memory"
	redisstore "z-scene-ai-api/internal/infrastructure/persistence/redis"
	"z-scene-ai-api/internal/interfaces/http/handler"
	"z-scene-ai-api/internal/interfaces/http/middleware"
	"z-scene-ai-api/internal/interfaces/http/router"
	einoobs "z-scene-ai-api/internal/observability/eino"
	"z-scene-ai-api/pkg/logger"
	"z-scene-ai-api/pkg/tracer"

	"github.com/joho/godotenv"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting api-gateway",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 初始化 Eino 全局 callbacks（指标/追踪）
	einoobs.Init()

	// Redis 客户端：redis 存储后端或限流开启时需要
	var redisClient *redisstore.Client
	if cfg.StoryStore.Backend == "redis" || cfg.Security.RateLimit.Enabled {
		redisClient, err = redisstore.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()
	}

	// 故事状态存储
	var storyRepo repository.StoryRepository
	switch cfg.StoryStore.Backend {
	case "redis":
		storyRepo = redisstore.NewStoryStore(redisClient, &cfg.StoryStore, cfg.Scene.CycleTimeout)
	default:
		storyRepo = memory.NewStoryStore()
	}
	log.Info("story store initialized", "backend", cfg.StoryStore.Backend)

	// 场景生成流水线
	llmFactory := llm.NewEinoFactory(cfg)
	compiler := scene.NewCompiler(
		scene.NewScriptService(llmFactory),
		generator.NewImageClient(&cfg.Generators.Image),
		generator.NewVideoClient(&cfg.Generators.Video),
		generator.NewNarrationClient(&cfg.Generators.Narration),
	)
	orchestrator := story.NewOrchestrator(storyRepo, compiler, cfg)

	// 限流器
	var rateLimiter middleware.RateLimiter
	if redisClient != nil {
		rateLimiter = redisstore.NewRateLimiter(redisClient)
	}

	// 路由
	r := router.New(cfg, router.Deps{
		StoryHandler:  handler.NewStoryHandler(orchestrator),
		HealthHandler: handler.NewHealthHandler(redisClient),
		RateLimiter:   rateLimiter,
	})

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
