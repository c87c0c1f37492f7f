package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"modtracker/docs"
	"modtracker/internal/auth"
	"modtracker/internal/cache"
	"modtracker/internal/config"
	"modtracker/internal/db"
	"modtracker/internal/handler"
	"modtracker/internal/logger"
	"modtracker/internal/repository"
	"modtracker/internal/router"
	"modtracker/internal/service"
)

// @title Modtracker API
// @version 1.0
// @description Multi-user time tracking: per-project timers, daily commits into an audited log, and admin statistics.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.Init("modtracker", cfg.LogLevel, os.Stdout)

	e := echo.New()
	e.HideBanner = true
	e.Logger = log.Base()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Error("database init failed", logger.F("error", err))
		os.Exit(1)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		log.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Warn("failed to drop tables", logger.F("error", err))
		}
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Error("migration failed", logger.F("error", err))
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, running without cache", logger.F("addr", cfg.RedisAddr), logger.F("error", err))
	}
	cancel()

	store := repository.NewStore(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(store.Users(), jwtService, tokenStore, nil)
	userService := service.NewUserService(store.Users(), cacheClient)
	projectService := service.NewProjectService(store, nil)
	timerService := service.NewTimerService(store, nil)
	commitService := service.NewCommitService(store, cacheClient, nil)
	logService := service.NewLogService(store, cacheClient, nil)
	statsService := service.NewStatsService(store, cacheClient, cfg.StatsCacheTTL)

	router.Register(e, jwtService, authService, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		User:    handler.NewUserHandler(userService, authService),
		Project: handler.NewProjectHandler(projectService),
		Timer:   handler.NewTimerHandler(timerService),
		Log:     handler.NewLogHandler(logService),
		Commit:  handler.NewCommitHandler(commitService),
		Stats:   handler.NewStatsHandler(statsService),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	log.Info("swagger documentation available", logger.F("url", "http://"+docs.SwaggerInfo.Host+"/swagger/index.html"))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Error("server stopped", logger.F("error", err))
		os.Exit(1)
	}
}
