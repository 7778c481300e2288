package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andrewpaige1/quizwhiz-api/auth"
	"github.com/andrewpaige1/quizwhiz-api/config"
	"github.com/andrewpaige1/quizwhiz-api/handlers"
	"github.com/andrewpaige1/quizwhiz-api/jobs"
	"github.com/andrewpaige1/quizwhiz-api/logger"
	"github.com/andrewpaige1/quizwhiz-api/middleware"
	"github.com/rs/cors"
)

const shutdownTimeout = 10 * time.Second

func init() {
	// Load .env file if not in production environment
	config.LoadDotEnv()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error(err)
		os.Exit(1)
	}
	logger.InitLogger(cfg.LogLevel)

	// Initialize database connection
	db, err := config.Connect(cfg)
	if err != nil {
		logger.Errorf("main: %v", err)
		os.Exit(1)
	}
	if err := config.EnsureAdmin(db, cfg); err != nil {
		logger.Errorf("main: failed to create admin user: %v", err)
		os.Exit(1)
	}

	tokens, err := auth.NewManager(cfg.TokenConfig())
	if err != nil {
		logger.Errorf("main: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var blacklist auth.Blacklist = auth.NewGormBlacklist(db)
	if cfg.RedisAddr != "" {
		client, err := config.ConnectRedis(ctx, cfg)
		if err != nil {
			logger.Errorf("main: %v", err)
			os.Exit(1)
		}
		defer client.Close()
		blacklist = auth.NewRedisBlacklist(client, "quizwhiz:blacklist:")
		logger.Infof("Using redis token blacklist at %s", cfg.RedisAddr)
	}

	scheduler, err := jobs.Start(cfg.TokenFlushSchedule, blacklist)
	if err != nil {
		logger.Errorf("main: invalid TOKEN_FLUSH_SCHEDULE %q: %v", cfg.TokenFlushSchedule, err)
		os.Exit(1)
	}

	authMiddleware, err := middleware.EnsureValidToken(tokens)
	if err != nil {
		logger.Errorf("main: %v", err)
		os.Exit(1)
	}

	DBHandler := &handlers.DBHandler{
		DB:        db,
		Tokens:    tokens,
		Blacklist: blacklist,
		Policy: handlers.Policy{
			StaffOnlyUserList:       cfg.StaffOnlyUserList,
			EnforceLessonVisibility: cfg.EnforceLessonVisibility,
		},
	}

	// Configure CORS with specific options
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(middleware.RequestLogger(authMiddleware(DBHandler.Routes())))

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("main: server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("main: shutdown: %v", err)
	}
	<-scheduler.Stop().Done()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
