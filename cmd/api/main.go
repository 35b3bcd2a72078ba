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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/sistema-ppc/ppc-api/api/swagger"
	"github.com/sistema-ppc/ppc-api/internal/handler"
	"github.com/sistema-ppc/ppc-api/internal/middleware"
	"github.com/sistema-ppc/ppc-api/internal/models"
	"github.com/sistema-ppc/ppc-api/internal/repository"
	"github.com/sistema-ppc/ppc-api/internal/service"
	"github.com/sistema-ppc/ppc-api/pkg/cache"
	"github.com/sistema-ppc/ppc-api/pkg/config"
	"github.com/sistema-ppc/ppc-api/pkg/database"
	"github.com/sistema-ppc/ppc-api/pkg/logger"
	"github.com/sistema-ppc/ppc-api/pkg/middleware/cors"
	"github.com/sistema-ppc/ppc-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()

		cacheRepo := repository.NewCacheRepository(redisClient, log)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Cache.TTL, log, true)
	}

	usuarioRepo := repository.NewUsuarioRepository(db)
	propostaRepo := repository.NewPropostaRepository(db)

	validate := validator.New()
	authService := service.NewAuthService(usuarioRepo, validate, log, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	propostaService := service.NewPropostaService(propostaRepo, usuarioRepo, cacheService, log)
	exportService := service.NewExportService(propostaService)

	authHandler := handler.NewAuthHandler(authService)
	propostaHandler := handler.NewPropostaHandler(propostaService, exportService)
	healthHandler := handler.NewHealthHandler(db)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics(metricsService))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group(cfg.APIPrefix)
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)
		api.POST("/refresh", authHandler.Refresh)

		authed := api.Group("")
		authed.Use(middleware.JWT(authService))
		{
			authed.POST("/logout", authHandler.Logout)
			authed.GET("/user", authHandler.Me)

			propostas := authed.Group("/propostas")
			{
				propostas.POST("", middleware.RequireRoles(models.RoleSubmissor), propostaHandler.Create)
				propostas.GET("", propostaHandler.List)
				propostas.GET("/:id", propostaHandler.Get)
				propostas.PUT("/:id/avaliar", middleware.RequireRoles(models.RoleAvaliador), propostaHandler.Evaluate)
				propostas.PUT("/:id/decidir", middleware.RequireRoles(models.RoleDecisor), propostaHandler.Decide)
				propostas.GET("/:id/exportar", propostaHandler.Export)
			}
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
