package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/MDJISHAN/smart-attendance-calendar-generator/config"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/api/handler"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/api/router"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/model"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/repository"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/internal/service"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/database"
	applogger "github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/logger"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/metrics"
	"github.com/MDJISHAN/smart-attendance-calendar-generator/pkg/redis"
)

func main() {
	// 1. 加载配置（ATTEND_CONFIG_FILE 可指定文件路径）
	cfg, err := config.Load(os.Getenv("ATTEND_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("history", cfg.Feature.HistoryEnabled),
	)

	// 3. 连接数据库（仅在开启生成历史时）
	var (
		db   *gorm.DB
		repo *repository.Repository
	)
	if cfg.Feature.HistoryEnabled {
		db, err = database.NewDB(&cfg.Database, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		logger.Info("数据库连接成功", zap.String("driver", cfg.Database.Driver))

		// 3.1 执行数据库迁移
		if err := database.RunMigrations(db, logger, &model.GenerationRun{}); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		repo = repository.NewRepository(db)
	}

	// 4. 连接 Redis（可选：连接失败时降级为进程内存储，不中断启动）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，产物改存进程内存且不限流", zap.Error(err))
			rdb = nil
		}
	}
	var store service.ArtifactStore
	if rdb != nil {
		store = service.NewRedisArtifactStore(rdb)
	} else {
		store = service.NewMemoryArtifactStore()
	}

	// 5. 指标
	var m *metrics.Metrics
	if cfg.Feature.MetricsEnabled {
		m = metrics.New()
	}

	// 6. 依赖注入: Repository → Service → Handler
	svc, err := service.NewService(cfg, repo, store, m, logger)
	if err != nil {
		logger.Fatal("初始化服务失败", zap.Error(err))
	}
	h := handler.NewHandler(cfg, svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, rdb, m, logger)

	// 8. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 9. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	// 给进行中的生成留出完整超时
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Generation.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
