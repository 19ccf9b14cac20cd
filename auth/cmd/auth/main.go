package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/auth/internal/config"
	"storefront/auth/internal/handler"
	"storefront/auth/internal/service"
	"storefront/shared/authutils"
	"storefront/shared/database"
	"storefront/shared/interfaces"
	sharedLogger "storefront/shared/logger"
	"storefront/shared/messaging"
	sharedMiddleware "storefront/shared/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rabbitmq/amqp091-go"
	redis "github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

const (
	maxConnectRetries = 50
	connectRetryDelay = 3 * time.Second
)

func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig("../../.env")
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger Setup ---
	logger, err := sharedLogger.New(sharedLogger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogFormat,
		Service:  "auth",
		Env:      cfg.Env,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zap.ReplaceGlobals(logger)
	zap.L().Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("jwtAlgorithm", cfg.JWTAlgorithm),
		zap.Duration("accessTTL", cfg.AccessTokenTTL),
		zap.Duration("refreshTTL", cfg.RefreshTokenTTL),
	)

	// --- External Connections ---
	pgPool, err := setupPostgres(cfg)
	if err != nil {
		zap.L().Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()

	if cfg.MigrateOnStart {
		if err := database.ApplyMigrations(cfg.PostgresDSN(), logger); err != nil {
			zap.L().Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	redisProvider, err := setupRedis(cfg, logger)
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisProvider.Close()

	var publisher interfaces.SessionEventPublisher = messaging.NoopSessionPublisher{}
	if cfg.RabbitMQURL != "" {
		mqConn, err := connectRabbitMQ(cfg.RabbitMQURL, logger)
		if err != nil {
			zap.L().Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer mqConn.Close()

		rabbitPublisher, err := messaging.NewRabbitMQSessionPublisher(mqConn, cfg.SessionEventsExchange, logger)
		if err != nil {
			zap.L().Fatal("Failed to create session event publisher", zap.Error(err))
		}
		defer rabbitPublisher.Close()
		publisher = rabbitPublisher
	} else {
		zap.L().Info("RabbitMQ URL not configured, session events are disabled")
	}

	// --- Dependency Injection ---
	codec, err := authutils.NewJWTCodec(cfg.JWTSecret, cfg.JWTAlgorithm, logger)
	if err != nil {
		zap.L().Fatal("Failed to create token codec", zap.Error(err))
	}
	sessionRepo := database.NewRedisSessionRepository(redisProvider, cfg.RedisOpTimeout, logger)
	tokenService, err := authutils.NewTokenService(codec, sessionRepo, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, logger)
	if err != nil {
		zap.L().Fatal("Failed to create token service", zap.Error(err))
	}

	userRepo := database.NewPgUserRepository(pgPool, logger)
	roleRepo := database.NewPgRoleRepository(pgPool, logger)
	identityProvider, err := service.NewIdentityProvider(userRepo, cfg.PasswordPepper, logger)
	if err != nil {
		zap.L().Fatal("Failed to create identity provider", zap.Error(err))
	}
	authSvc := service.NewAuthService(userRepo, roleRepo, identityProvider, tokenService, publisher, cfg.PasswordPepper, logger)
	roleSvc := service.NewRoleService(roleRepo, userRepo, logger)
	authHandler := handler.NewAuthHandler(authSvc, roleSvc, tokenService, cfg, logger)

	// --- HTTP Server Setup (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.RedirectTrailingSlash = true
	router.Use(sharedMiddleware.GinZapLogger(logger))
	router.Use(gin.Recovery())

	p := ginprometheus.NewPrometheus("gin")

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
		zap.L().Info("CORSAllowedOrigins not set, allowing default", zap.String("origin", "http://localhost:3000"))
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "X-Request-ID"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := newHealthHandler(pgPool, redisProvider)
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	authHandler.RegisterRoutes(router)
	handler.RegisterDocs(router)

	// Prometheus middleware применяем после регистрации роутов, /metrics добавляется здесь
	p.Use(router)

	// --- Start HTTP Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	zap.L().Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("HTTP Server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zap.L().Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("HTTP Server forced to shutdown", zap.Error(err))
	}

	zap.L().Info("Server exiting")
}

// newHealthHandler отвечает 503, если недоступна БД или хранилище сессий.
func newHealthHandler(pgPool *pgxpool.Pool, redisProvider *database.RedisProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "postgres": "ok", "redis": "ok"}
		code := http.StatusOK
		if err := pgPool.Ping(ctx); err != nil {
			zap.L().Warn("Health check: postgres ping failed", zap.Error(err))
			status["postgres"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if err := redisProvider.Ping(ctx); err != nil {
			zap.L().Warn("Health check: redis ping failed", zap.Error(err))
			status["redis"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if code != http.StatusOK {
			status["status"] = "degraded"
		}
		c.JSON(code, status)
	}
}

// setupPostgres initializes the PostgreSQL connection pool with retry logic.
func setupPostgres(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse postgres config: %w", err)
	}
	poolConfig.MaxConns = cfg.DBMaxConns

	zap.L().Info("Attempting to connect to PostgreSQL", zap.Int("max_retries", maxConnectRetries), zap.Duration("retry_delay", connectRetryDelay))

	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		connectCtx, connectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
		connectCancel()
		if err == nil {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			err = pool.Ping(pingCtx)
			pingCancel()
			if err == nil {
				zap.L().Info("Successfully connected and pinged PostgreSQL", zap.Int("attempt", attempt))
				return pool, nil
			}
			pool.Close()
		}

		lastErr = err
		zap.L().Warn("Postgres connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		if attempt < maxConnectRetries {
			time.Sleep(connectRetryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", maxConnectRetries, lastErr)
}

// setupRedis создает провайдер и ждет первого успешного ping.
// Дальше провайдер сам переподключается при обрыве.
func setupRedis(cfg *config.Config, logger *zap.Logger) (*database.RedisProvider, error) {
	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	provider := database.NewRedisProvider(redisOpts, cfg.RedisHealthCheckInterval, logger)
	zap.L().Info("Attempting to connect and ping Redis", zap.String("address", redisOpts.Addr), zap.Int("db", redisOpts.DB))

	var lastErr error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := provider.Ping(pingCtx)
		pingCancel()
		if err == nil {
			zap.L().Info("Successfully connected and pinged Redis", zap.Int("attempt", attempt))
			return provider, nil
		}

		lastErr = err
		zap.L().Warn("Redis ping failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		if attempt < maxConnectRetries {
			time.Sleep(connectRetryDelay)
		}
	}
	_ = provider.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxConnectRetries, lastErr)
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками.
func connectRabbitMQ(rawURL string, logger *zap.Logger) (*amqp091.Connection, error) {
	logger.Info("Attempting to connect to RabbitMQ",
		zap.String("url", redactURL(rawURL)),
		zap.Int("max_retries", maxConnectRetries),
	)

	var err error
	for attempt := 1; attempt <= maxConnectRetries; attempt++ {
		var conn *amqp091.Connection
		conn, err = amqp091.Dial(rawURL)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ", zap.Int("attempt", attempt))
			go func() {
				notifyClose := conn.NotifyClose(make(chan *amqp091.Error, 1))
				if closeErr := <-notifyClose; closeErr != nil {
					logger.Error("RabbitMQ connection closed unexpectedly", zap.Error(closeErr))
				} else {
					logger.Info("RabbitMQ connection closed gracefully.")
				}
			}()
			return conn, nil
		}
		logger.Warn("RabbitMQ connection failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxConnectRetries),
			zap.Error(err),
		)
		if attempt < maxConnectRetries {
			time.Sleep(connectRetryDelay)
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxConnectRetries, err)
}

// redactURL прячет пароль в URL для логов.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
