// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"

	"resonate-service/internal/config"
	"resonate-service/internal/db"
	authHandler "resonate-service/internal/handlers/auth"
	billingHandler "resonate-service/internal/handlers/billing"
	sessionHandler "resonate-service/internal/handlers/session"
	wsHandler "resonate-service/internal/handlers/websocket"
	"resonate-service/internal/middleware"
	"resonate-service/internal/pkg/jwt"
	"resonate-service/internal/registry"
	"resonate-service/internal/repository/postgres"
	authUsecase "resonate-service/internal/service/auth"
	"resonate-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.NewPostgresPool(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- Repositories -----
	accountRepo := postgres.NewAccountRepository(pool)
	subsRepo := postgres.NewSubscriptionRepository(pool)

	// ----- Registry -----
	reg := registry.NewRedisRegistry(redisClient, s.cfg.Admission.SessionTTL, logger)

	// ----- JWT + Auth -----
	jwtManager := jwt.NewManager(s.cfg.JWT)
	authService := authUsecase.NewAuthService(accountRepo, jwtManager, logger)

	// ----- Notifier hub -----
	hub := websocket.NewHub(logger)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, reg, logger)
	sessionHandlerInst := sessionHandler.NewSessionHandler(reg, subsRepo, logger)
	billingHandlerInst := billingHandler.NewBillingHandler(subsRepo, logger)
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authService)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:    authHandlerInst,
		SessionHandler: sessionHandlerInst,
		BillingHandler: billingHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}
