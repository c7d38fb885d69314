// internal/app/server.go
package app

import (
	"context"
	"fmt"

	"fieldmapper-service/internal/config"
	"fieldmapper-service/internal/db"
	"fieldmapper-service/internal/editor"
	authHandler "fieldmapper-service/internal/handlers/auth"
	editorHandler "fieldmapper-service/internal/handlers/editor"
	fieldHandler "fieldmapper-service/internal/handlers/field"
	"fieldmapper-service/internal/handlers/mapcfg"
	profileHandler "fieldmapper-service/internal/handlers/profile"
	wsHandler "fieldmapper-service/internal/handlers/websocket"
	"fieldmapper-service/internal/middleware"
	"fieldmapper-service/internal/pkg/jwt"
	"fieldmapper-service/internal/pkg/session"
	"fieldmapper-service/internal/repository/postgres"
	authService "fieldmapper-service/internal/service/auth"
	fieldService "fieldmapper-service/internal/service/field"
	"fieldmapper-service/internal/store"
	"fieldmapper-service/internal/websocket"
	wsHandlers "fieldmapper-service/internal/websocket/handler"

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
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectPostgres(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	logger.Info("connected to PostgreSQL")

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
	logger.Info("connected to Redis")

	// ----- JWT Manager -----
	jwtManager, err := jwt.LoadAndBuild(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to load JWT manager: %w", err)
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(redisClient, logger)
	rateLimiter := session.NewRateLimiter(redisClient)

	// ----- Record store -----
	notifier := store.NewNotifier(redisClient, logger)
	recordStore := store.NewRecordStore(pool, notifier, logger)
	if err := recordStore.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure record store schema: %w", err)
	}
	go notifier.Run(ctx)

	// ----- Repositories -----
	accountRepo := postgres.NewAccountRepository(pool)
	if err := accountRepo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to ensure accounts schema: %w", err)
	}

	// ----- Editor registry -----
	registry := editor.NewRegistry(s.cfg.EditorSettleDelay, s.cfg.EditorIdleTTL, logger)
	go registry.Run(ctx)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, sessionManager, logger)
	hub.RegisterHandler(wsHandlers.NewRecordHandler(recordStore, logger))
	go hub.Run(ctx)

	// ----- Services -----
	googleClient := authService.NewGoogleClient(
		s.cfg.GoogleClientID,
		s.cfg.GoogleClientSecret,
		s.cfg.GoogleRedirectURL,
	)
	authSvc := authService.NewAuthService(
		accountRepo,
		recordStore,
		jwtManager,
		sessionManager,
		rateLimiter,
		googleClient,
		logger,
	)
	authSvc.SetLogoutNotifier(hub)

	fieldSvc := fieldService.NewFieldService(recordStore, logger)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authSvc, logger)
	fieldHandlerInst := fieldHandler.NewFieldHandler(fieldSvc, logger)
	profileHandlerInst := profileHandler.NewProfileHandler(recordStore, logger)
	editorHandlerInst := editorHandler.NewEditorHandler(registry, fieldSvc, logger)
	mapHandlerInst := mapcfg.NewMapHandler(mapcfg.MapConfig{
		APIKey:        s.cfg.GoogleMapsAPIKey,
		DefaultCenter: s.cfg.DefaultCenter,
		DefaultZoom:   s.cfg.DefaultZoom,
		MapType:       string(editor.MapTypeHybrid),
	})
	wsHandlerInst := wsHandler.NewWebSocketHandler(hub, logger)

	// ----- Middlewares -----
	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.CORSAllowedOrigins),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:    authHandlerInst,
		FieldHandler:   fieldHandlerInst,
		ProfileHandler: profileHandlerInst,
		EditorHandler:  editorHandlerInst,
		MapHandler:     mapHandlerInst,
		WSHandler:      wsHandlerInst,
		AuthMiddleware: authMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	return s.engine.Run(s.cfg.HTTPAddr)
}
