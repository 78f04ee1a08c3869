package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"langlearn-server/internal/attempt"
	"langlearn-server/internal/auth"
	"langlearn-server/internal/config"
	"langlearn-server/internal/logger"
	"langlearn-server/internal/mailer"
	"langlearn-server/internal/quiz"
	"langlearn-server/pkg/cache"
	"langlearn-server/pkg/database"
	"langlearn-server/pkg/websocket"
)

func main() {
	cfg, dotenv, err := config.Load()
	if err != nil {
		// logger depends on config; nothing better to report through yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	if !dotenv {
		log.Warn(".env file not found; using process environment")
	}

	db, err := database.NewPostgresDB(&cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", "error", err)
	}

	var redisCache *cache.RedisCache
	if cfg.RedisAddr != "" {
		redisCache = cache.NewRedisCache(cfg.RedisAddr)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			log.Warn("redis unreachable; caching and login throttling disabled", "addr", cfg.RedisAddr, "error", err)
			_ = redisCache.Close()
			redisCache = nil
		}
		cancel()
	}

	mail := mailer.New(log, mailer.Config{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	})

	// Repositories
	authRepo := auth.NewRepository(db, log)
	quizRepo := quiz.NewRepository(db, log)
	attemptRepo := attempt.NewRepository(db, log)

	// Services
	sessions := auth.NewSessionManager(authRepo, log, cfg.SessionTTL)
	authService := auth.NewService(authRepo, sessions, mail, cfg.BaseURL, log)
	adminAuth := auth.NewAdminAuth(cfg.AdminPassword, cfg.JWTSecret, cfg.AdminTokenTTL, log)
	quizService := quiz.NewService(quizRepo, log)
	attemptService := attempt.NewService(attemptRepo, quizService, log)
	if redisCache != nil {
		authService.SetLimiter(redisCache)
		quizService.SetCache(redisCache)
	}

	wsHub := websocket.NewHub(log, cfg.AllowedOrigins, func(ctx context.Context) (uint, bool) {
		user, ok := auth.UserFromContext(ctx)
		if !ok {
			return 0, false
		}
		return user.ID, true
	})
	go wsHub.Run()
	attemptService.SetNotifier(wsHub)

	cookies := auth.CookieConfig{
		Domain: cfg.CookieDomain,
		Secure: cfg.Production(),
		MaxAge: cfg.SessionTTL,
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get sql handle", "error", err)
	}
	router := newRouter(routerDeps{
		log:      log,
		ping:     sqlDB.PingContext,
		sessions: sessions,
		cookies:  cookies,
		admin:    adminAuth,
		auth:     auth.NewHandler(authService, adminAuth, cookies, log),
		quiz:     quiz.NewHandler(quizService, log),
		attempt:  attempt.NewHandler(attemptService, log),
		hub:      wsHub,
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("failed to start server", "error", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	wsHub.Stop()
	if redisCache != nil {
		_ = redisCache.Close()
	}
	_ = sqlDB.Close()
	log.Info("server shutdown gracefully")
}
