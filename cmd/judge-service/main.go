package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codejudge/internal/common/cache"
	"codejudge/internal/common/db"
	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/mq"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/engine"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/service"
	"codejudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	var events repository.SolvedEventPublisher
	if len(appCfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka)
		if err != nil {
			logger.Error(context.Background(), "init kafka failed", zap.Error(err))
			return
		}
		defer func() {
			_ = producer.Close()
		}()
		events = repository.NewMQSolvedEventPublisher(producer, appCfg.Execute.SolvedTopic)
	} else {
		logger.Warn(context.Background(), "kafka brokers not configured, solved events disabled")
	}

	var archive service.SourceStore
	if appCfg.MinIO.Endpoint != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(context.Background(), "init minio failed", zap.Error(err))
			return
		}
		bucketCtx, bucketCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		err = objStorage.EnsureBucket(bucketCtx, appCfg.Execute.SourceBucket)
		bucketCancel()
		if err != nil {
			logger.Error(context.Background(), "ensure source bucket failed", zap.Error(err))
			return
		}
		sourceArchive, err := repository.NewSourceArchive(objStorage, appCfg.Execute.SourceBucket, appCfg.Execute.SourceKeyPrefix)
		if err != nil {
			logger.Error(context.Background(), "init source archive failed", zap.Error(err))
			return
		}
		archive = sourceArchive
	} else {
		logger.Warn(context.Background(), "minio not configured, source archive disabled")
	}

	engineClient, err := engine.NewClient(appCfg.Engine.Config, nil)
	if err != nil {
		logger.Error(context.Background(), "init engine client failed", zap.Error(err))
		return
	}

	executeService, err := service.NewExecuteService(service.Config{
		Problems:            repository.NewProblemRepositoryWithTTL(mysqlDB, redisCache, appCfg.Execute.ProblemCacheTTL, appCfg.Execute.ProblemEmptyTTL),
		Solved:              repository.NewSolvedRepository(mysqlDB, redisCache),
		Reports:             repository.NewReportRepository(redisCache, appCfg.Execute.ReportTTL),
		Events:              events,
		Archive:             archive,
		Engine:              engine.NewJudge(engineClient, appCfg.Engine.Poll),
		Cache:               redisCache,
		Limits:              appCfg.Execute.Limits,
		MaxCodeBytes:        appCfg.Execute.MaxCodeBytes,
		MaxCustomInputs:     appCfg.Execute.MaxCustomInputs,
		MaxCustomInputBytes: appCfg.Execute.MaxCustomInputBytes,
		RateLimit:           appCfg.Execute.RateLimit,
		Timeouts:            appCfg.Execute.Timeouts,
	})
	if err != nil {
		logger.Error(context.Background(), "init execute service failed", zap.Error(err))
		return
	}

	httpServer := buildHTTPServer(appCfg.Server, executeService)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		logger.Error(context.Background(), "init http listener failed", zap.Error(err))
		return
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "judge http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "http server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, executeService *service.ExecuteService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.AccessLog())
	router.Use(commonmw.BodyLimit(cfg.MaxBodyBytes))

	controller.RegisterRoutes(router, controller.NewExecuteController(executeService))
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
