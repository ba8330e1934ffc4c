package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/velobot/internal/config"
	"github.com/ashwinyue/velobot/internal/database"
	"github.com/ashwinyue/velobot/internal/handler"
	"github.com/ashwinyue/velobot/internal/repository"
	"github.com/ashwinyue/velobot/internal/router"
	"github.com/ashwinyue/velobot/internal/service"
	"github.com/ashwinyue/velobot/internal/service/assistant"
	"github.com/ashwinyue/velobot/internal/service/chat"
	"github.com/ashwinyue/velobot/internal/service/file"
	"github.com/ashwinyue/velobot/internal/service/openai"
	"github.com/ashwinyue/velobot/internal/service/provision"
	"github.com/ashwinyue/velobot/internal/service/run"
	"github.com/ashwinyue/velobot/internal/service/tools"
)

func main() {
	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	// 初始化对话存储
	db, err := database.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connected: %s", cfg.Database.DBName)

	// 初始化商城库（只读）
	marketDB, err := database.NewMarket(cfg)
	if err != nil {
		log.Fatalf("Failed to init market database: %v", err)
	}

	// 初始化 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// 初始化上下文文档存储
	source, err := file.NewSource(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to init storage: %v", err)
	}

	// 初始化各层
	repos := repository.NewRepositories(db.DB)
	client := openai.NewClient(cfg.OpenAI)
	registry := tools.NewRegistry(marketDB, cfg.Orders, nil)
	provisioner := provision.NewProvisioner(client, source, marketDB, cfg.Assistant)
	lifecycle := assistant.NewService(client, provisioner, registry, cfg.Assistant, cfg.OpenAI.Model)
	supervisor := assistant.NewSupervisor(lifecycle, time.Duration(cfg.Assistant.RefreshInterval)*time.Hour)

	// 首代助手备妥失败即退出
	if err := supervisor.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to init assistant: %v", err)
	}
	supervisor.Start()

	coordinator := run.NewCoordinator(client, registry,
		time.Duration(cfg.Assistant.RunTimeout)*time.Second,
		time.Duration(cfg.Assistant.PollInterval)*time.Millisecond)
	chatService := chat.NewService(repos.Chat, client, coordinator, supervisor, redisClient)

	services := &service.Services{
		Chat:       chatService,
		Supervisor: supervisor,
	}
	handlers := handler.NewHandlers(cfg, db, services)

	// 初始化路由
	r := router.SetupRouter(handlers)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// 启动服务器
	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// 回收当前助手资源
	supervisor.Stop(ctx)

	log.Println("Server exited")
}
