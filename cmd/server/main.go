package main // Entry point package

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/naruebet/cafe-reservation/internal/catalog"
	"github.com/naruebet/cafe-reservation/internal/config"
	"github.com/naruebet/cafe-reservation/internal/database"
	"github.com/naruebet/cafe-reservation/internal/engine"
	"github.com/naruebet/cafe-reservation/internal/handler"
	"github.com/naruebet/cafe-reservation/internal/logger"
	"github.com/naruebet/cafe-reservation/internal/queue"
	"github.com/naruebet/cafe-reservation/internal/router"
	"github.com/naruebet/cafe-reservation/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "cafe-reservation")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cat := catalog.Default()

	// MySQL is optional.  Without DB_HOST the service keeps every booking
	// in memory, which is useful for demos and local development but loses
	// all state on restart.
	var st store.Store
	if cfg.UsesDatabase() {
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()

		mst := store.NewMySQLStore(db)
		if err := mst.EnsureSchema(context.Background()); err != nil {
			log.Fatal("schema setup failed", zap.Error(err))
		}
		st = mst
		log.Info("using mysql store", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
	} else {
		st = store.NewMemoryStore()
		log.Warn("DB_HOST not set; falling back to in-memory store, reservations will not survive restarts")
	}

	eng := engine.New(cat, st, log)

	// Redis backs the rate limiter and the availability cache.  nil client
	// disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	}

	if cfg.QueueConsumer {
		go func() {
			if err := queue.StartReservationConsumer(); err != nil {
				log.Error("reservation consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg))
	router.RegisterReservations(e, handler.NewReservationHandler(eng, log), cfg.JWTSecret, rdb)
	router.RegisterAdmin(e, handler.NewAdminHandler(eng, log), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))

	go func() {
		if err := e.Start(addr); err != nil {
			log.Info("server stopped", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
