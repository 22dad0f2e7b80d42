package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skieshare/skieshare/internal/config"
	"github.com/skieshare/skieshare/internal/handlers"
	"github.com/skieshare/skieshare/internal/pkg/cache"
	"github.com/skieshare/skieshare/internal/pkg/logger"
	"github.com/skieshare/skieshare/internal/pkg/mq"
	"github.com/skieshare/skieshare/internal/pkg/mq/worker"
	"github.com/skieshare/skieshare/internal/pkg/storage"
	"github.com/skieshare/skieshare/internal/repositories"
	"github.com/skieshare/skieshare/internal/router"
	"github.com/skieshare/skieshare/internal/services/admin"
	"github.com/skieshare/skieshare/internal/services/audit"
	"github.com/skieshare/skieshare/internal/services/explorer"
	"github.com/skieshare/skieshare/internal/services/quota"
	"github.com/skieshare/skieshare/internal/services/sharing"
	"github.com/skieshare/skieshare/internal/services/team"
	"github.com/skieshare/skieshare/internal/setup"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志系统
	if err := os.MkdirAll("logs", 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg.Log.OutputPath, cfg.Log.ErrorPath, cfg.Log.Level)
	defer logger.Sync()

	// 初始化数据库连接
	db, err := setup.InitMySQL(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to initialize MySQL", zap.Error(err))
	}

	// 初始化 Redis 连接
	redisClient, err := setup.InitRedis(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	cacheService := cache.NewRedisCache(redisClient)

	// 初始化对象存储
	storageService, err := storage.NewStorageService(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage service", zap.Error(err))
	}

	// 初始化 Elasticsearch，失败时降级运行（搜索接口返回 503）
	var searchService explorer.SearchService
	esClient, err := setup.InitElasticsearchClient(&cfg.Elasticsearch)
	if err != nil {
		logger.Error("Failed to initialize Elasticsearch, search disabled", zap.Error(err))
	} else {
		searchService = explorer.NewSearchService(esClient, cfg.Elasticsearch.FileIndex)
	}

	// 初始化 RabbitMQ
	mqClient, err := mq.NewRabbitMQClient(cfg.RabbitMQ.URL)
	if err != nil {
		logger.Fatal("Failed to initialize RabbitMQ client", zap.Error(err))
	}
	defer mqClient.Close()

	// 仓储层
	userRepo := repositories.NewUserRepository(db)
	fileRepo := repositories.NewFileRepository(db)
	folderRepo := repositories.NewFolderRepository(db)
	shareRepo := repositories.NewSharedLinkRepository(db)
	dlogRepo := repositories.NewDownloadLogRepository(db)
	teamRepo := repositories.NewTeamRepository(db)
	inviteRepo := repositories.NewTeamInviteRepository(db)
	spaceRepo := repositories.NewSpaceRepository(db)
	policyRepo := repositories.NewTeamPolicyRepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	tm := repositories.NewTransactionManager(db)

	// 业务层
	auditRec := audit.NewRecorder(auditRepo, mqClient)
	quotaService := quota.NewService(userRepo, &cfg.Quota)
	teamService := team.NewTeamService(teamRepo, policyRepo, fileRepo, userRepo, tm, cacheService, auditRec)
	inviteService := team.NewInviteService(inviteRepo, teamRepo, userRepo, teamService, tm, mqClient, auditRec, cfg)
	spaceService := team.NewSpaceService(spaceRepo, teamService, auditRec)
	policyService := team.NewPolicyService(policyRepo, teamService, auditRec)
	shareService := sharing.NewShareService(shareRepo, fileRepo, folderRepo, teamRepo, policyRepo, dlogRepo, tm, cacheService, mqClient, auditRec, cfg)
	fileService := explorer.NewFileService(fileRepo, folderRepo, userRepo, tm, storageService, shareService, teamService, searchService, auditRec, cfg)
	folderService := explorer.NewFolderService(folderRepo, fileRepo)
	authService := admin.NewAuthService(userRepo, cfg)
	userService := admin.NewUserService(userRepo, quotaService, cfg)

	// 启动后台 Worker（审计落库、邮件投递）
	worker.StartAllWorkers(mqClient, auditRepo)

	// 初始化 Gin 引擎和注册路由
	r := router.InitRouter(&router.Handlers{
		Auth:   handlers.NewAuthHandler(authService),
		User:   handlers.NewUserHandler(userService, quotaService),
		File:   handlers.NewFileHandler(fileService, folderService, searchService),
		Folder: handlers.NewFolderHandler(folderService),
		Share:  handlers.NewShareHandler(shareService, cfg),
		Team:   handlers.NewTeamHandler(teamService, inviteService, spaceService, policyService, auditRepo, auditRec),
	}, cfg)

	// 启动 HTTP 服务器
	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		logger.Info(fmt.Sprintf("Server is running on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// 优雅关机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器在优雅关机过程中因错误而被迫停止", zap.Error(err))
	} else {
		logger.Info("服务器已优雅停止")
	}
}
