package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"fitSquadAPI/handlers"
	"fitSquadAPI/internal/config"
	"fitSquadAPI/internal/logger"
	"fitSquadAPI/internal/metrics"
	"fitSquadAPI/internal/notification"
	"fitSquadAPI/middleware"
	"fitSquadAPI/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.S()

	metrics.Init()

	if cfg.ClerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(cfg.ClerkSecretKey)
	log.Info("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := newPool(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		log.Info("Closing database connection pool...")
		dbPool.Close()
	}()
	log.Info("Successfully connected to database")

	// Services
	notificationService := services.NewNotificationService(dbPool, cfg.EventsWorkers)
	dispatcher := notificationService.Dispatcher()
	defer dispatcher.Stop()

	fcmService, err := notification.NewFCMService(ctx, cfg.FCMCredentialsJSON, cfg.FCMCredentialsFile)
	if err != nil {
		log.Warnf("Could not initialize FCM, push delivery disabled: %v", err)
	} else {
		dispatcher.SetPushProvider(fcmService)
		log.Info("FCM push provider initialized")
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewAMQPPublisher(cfg.RabbitMQURL, cfg.EventsQueue)
		if err != nil {
			log.Warnf("Could not connect to RabbitMQ, event stream disabled: %v", err)
		} else {
			dispatcher.SetEventPublisher(publisher)
			defer publisher.Close()
			log.Infof("Publishing notification events to queue %s", cfg.EventsQueue)
		}
	}

	store := services.NewPostgresStore(dbPool)
	gamificationService := services.NewGamificationService(store, notificationService)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = services.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warnf("Could not connect to Redis, leaderboard cache disabled: %v", err)
		} else {
			defer redisClient.Close()
			gamificationService.SetLeaderboardCache(services.NewRedisLeaderboardCache(redisClient, cfg.LeaderboardCacheTTL))
			log.Info("Leaderboard cache backed by Redis")
		}
	}

	userService := services.NewUserService(dbPool, gamificationService, notificationService)
	activityService := services.NewActivityService(store, gamificationService)

	// Handlers
	userHandler := handlers.NewUserHandler(userService)
	activityHandler := handlers.NewActivityHandler(activityService, userService)
	gamificationHandler := handlers.NewGamificationHandler(gamificationService, userService, cfg.LeaderboardLimit)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(userService, cfg.ClerkWebhookSecret)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	if err := rateLimiter.TrustProxies(cfg.TrustedProxies); err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}
	stopCleanup := make(chan struct{})
	defer close(stopCleanup)
	go rateLimiter.Cleanup(stopCleanup)

	r := mux.NewRouter()
	r.Use(rateLimiter.Middleware)
	r.Use(middleware.MonitorMiddleware)

	r.Handle("/metrics", middleware.BasicAuthMiddleware(cfg.MetricsUser, cfg.MetricsPass)(promhttp.Handler()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := dbPool.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy", "error": "database connection failed"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "fitSquad-api"}`))
	}).Methods("GET")

	r.HandleFunc("/webhooks/clerk", webhookHandler.HandleClerkWebhook).Methods("POST")

	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	protected := r.PathPrefix("/api/v1").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/user", userHandler.GetProfile).Methods("GET")
	protected.HandleFunc("/user/update-profile", userHandler.UpdateProfile).Methods("PUT")
	protected.HandleFunc("/user/delete-account", userHandler.DeleteAccount).Methods("DELETE")
	protected.HandleFunc("/user/friends", userHandler.GetFriends).Methods("GET")
	protected.HandleFunc("/user/friends", userHandler.AddFriend).Methods("POST")
	protected.HandleFunc("/user/friends", userHandler.RemoveFriend).Methods("DELETE")

	protected.HandleFunc("/workouts", activityHandler.LogWorkout).Methods("POST")
	protected.HandleFunc("/workouts", activityHandler.GetWorkouts).Methods("GET")
	protected.HandleFunc("/meals", activityHandler.LogMeal).Methods("POST")
	protected.HandleFunc("/meals", activityHandler.GetMeals).Methods("GET")
	protected.HandleFunc("/nutrition/summary", activityHandler.GetNutritionSummary).Methods("GET")

	protected.HandleFunc("/gamification/points", gamificationHandler.GetPoints).Methods("GET")
	protected.HandleFunc("/gamification/streak", gamificationHandler.GetStreak).Methods("GET")
	protected.HandleFunc("/gamification/badges", gamificationHandler.GetBadges).Methods("GET")
	protected.HandleFunc("/gamification/achievements", gamificationHandler.GetAchievements).Methods("GET")
	protected.HandleFunc("/leaderboard", gamificationHandler.GetLeaderboard).Methods("GET")

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
	protected.HandleFunc("/notifications/unread-count", notificationHandler.GetUnreadCount).Methods("GET")
	protected.HandleFunc("/notifications/read-all", notificationHandler.MarkAllAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/preferences", notificationHandler.GetPreferences).Methods("GET")
	protected.HandleFunc("/notifications/preferences", notificationHandler.UpdatePreferences).Methods("PUT")
	protected.HandleFunc("/notifications/register-device", notificationHandler.RegisterDevice).Methods("POST")
	protected.HandleFunc("/notifications/test", notificationHandler.SendTestNotification).Methods("POST")
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkAsRead).Methods("PUT")
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods("DELETE")

	corsHandler := gorillaHandlers.CORS(
		gorillaHandlers.AllowedOrigins(cfg.AllowedOrigins),
		gorillaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		gorillaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorillaHandlers.AllowCredentials(),
	)

	server := http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Error starting server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	log.Infof("Got signal: %v", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}

	log.Info("Server shutdown complete")
}

func newPool(ctx context.Context, cfg config.AppConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MinConns = int32(cfg.DBMinConns)
	poolConfig.MaxConnLifetime = cfg.DBMaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.DBMaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.DBHealthCheckEvery

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
