package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyquestAPI/handlers"
	"storyquestAPI/internal/config"
	"storyquestAPI/internal/database"
	"storyquestAPI/internal/logger"
	"storyquestAPI/internal/notification"
	"storyquestAPI/internal/seed"
	"storyquestAPI/internal/session"
	"storyquestAPI/internal/workers"
	"storyquestAPI/middleware"
	"storyquestAPI/services"

	_ "net/http/pprof"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting StoryQuest API", zap.String("env", cfg.Env), zap.String("port", cfg.Port))

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbPool, err := database.NewPool(startupCtx, database.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		appLogger.Info("Closing database connection pool...")
		dbPool.Close()
	}()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		appLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations applied")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(startupCtx).Err(); err != nil {
		appLogger.Fatal("Failed to connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	defer redisClient.Close()

	sessions := session.NewRedisStore(redisClient, cfg.SessionTTL, appLogger)

	notificationService := services.NewNotificationService(dbPool, appLogger)
	userService := services.NewUserService(dbPool, appLogger)
	storyService := services.NewStoryService(dbPool, appLogger)
	assetService := services.NewAssetService(dbPool, appLogger)
	progressService := services.NewProgressService(dbPool, appLogger)
	achievementService := services.NewAchievementService(dbPool, appLogger)
	challengeService := services.NewChallengeService(dbPool, achievementService, appLogger)
	viralService := services.NewViralService(dbPool, achievementService, appLogger)

	catalog, err := seed.Load()
	if err != nil {
		appLogger.Fatal("Failed to load achievement catalog", zap.Error(err))
	}
	if err := achievementService.SyncCatalog(startupCtx, catalog); err != nil {
		appLogger.Fatal("Failed to sync achievement catalog", zap.Error(err))
	}

	dispatcher := services.NewNotificationDispatcher(notificationService, appLogger)
	if cfg.FCMCredentialsFile != "" || os.Getenv("FCM_SERVICE_ACCOUNT_JSON") != "" {
		fcmService, err := notification.NewFCMService(startupCtx, cfg.FCMCredentialsFile, appLogger)
		if err != nil {
			appLogger.Warn("Could not initialize FCM, push delivery disabled", zap.Error(err))
		} else {
			dispatcher.SetPushProvider(fcmService)
			appLogger.Info("FCM Push Provider initialized successfully")
		}
	}
	notificationService.SetDispatcher(dispatcher)
	achievementService.SetNotifier(notificationService)

	middleware.InitPrometheus(prometheus.DefaultRegisterer)
	services.RegisterMetrics(prometheus.DefaultRegisterer)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxy)
	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	go rateLimiter.CleanupVisitors(backgroundCtx)
	go workers.NewChallengeCloser(dbPool, notificationService, cfg.ChallengeSweepInterval, appLogger).Start(backgroundCtx)

	r := mux.NewRouter()
	standardRouter := r.PathPrefix("/").Subrouter()
	standardRouter.Use(rateLimiter.Middleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofGuard(cfg.PprofSecret)(http.DefaultServeMux))
	standardRouter.HandleFunc("/health", healthHandler(dbPool, redisClient)).Methods(http.MethodGet)

	api := standardRouter.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.SessionAuth(sessions, appLogger))
	handlers.Register(api, handlers.Set{
		Auth:          handlers.NewAuthHandler(userService, sessions, cfg.SessionTTL, cfg.SessionCookieSecure, appLogger),
		Stories:       handlers.NewStoryHandler(storyService, cfg.FeaturedLimit, appLogger),
		Assets:        handlers.NewAssetHandler(assetService, appLogger),
		Progress:      handlers.NewProgressHandler(progressService, appLogger),
		Challenges:    handlers.NewChallengeHandler(challengeService, appLogger),
		Achievements:  handlers.NewAchievementHandler(achievementService, appLogger),
		Viral:         handlers.NewViralHandler(viralService, appLogger),
		Notifications: handlers.NewNotificationHandler(notificationService, appLogger),
	})

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins()),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "X-Pprof-Secret"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	dispatcher.Stop()
	appLogger.Info("Server exited")
}

func healthHandler(db *pgxpool.Pool, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "redis connection failed"}`))
			return
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "storyquest-api"}`))
	}
}
