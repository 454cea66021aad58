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

	"github.com/gin-gonic/gin"

	"dailyattend/internal/api"
	"dailyattend/internal/attendance"
	"dailyattend/internal/auth"
	"dailyattend/internal/config"
	"dailyattend/internal/queue"
	"dailyattend/internal/store"
	"dailyattend/internal/tally"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}
	repo := store.NewRepository(db)

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	hasher, err := auth.NewHasher(cfg.BcryptCost)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(repo, hasher, auth.NewSigner(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL))
	if cfg.TokenTTL == 0 {
		log.Println("TOKEN_TTL not set: issued tokens never expire")
	}

	var counter tally.Counter
	if redisClient != nil {
		counter = tally.NewRedis(redisClient.Client, 90*24*time.Hour)
	}

	opts := []attendance.Option{attendance.WithLocation(cfg.Location)}
	switch cfg.QueueBackend {
	case "redis":
		opts = append(opts, attendance.WithQueue(queue.NewRedisQueue(redisClient.Client, "")))
	case "memory":
		// no separate worker: tally in-process
		q := queue.NewInMemory(256)
		if counter == nil {
			counter = tally.NewMemory()
		}
		go func() {
			if err := tally.Run(ctx, q, counter); err != nil {
				log.Printf("tally consumer stopped: %v", err)
			}
		}()
		opts = append(opts, attendance.WithQueue(q))
	}
	att := attendance.NewService(repo, opts...)

	checks := map[string]api.HealthCheck{
		"db": func(c *gin.Context) bool { return db.Healthy(c.Request.Context()) },
	}
	if redisClient != nil {
		checks["redis"] = func(c *gin.Context) bool { return redisClient.Healthy(c.Request.Context()) }
	}

	r := api.NewRouter(api.Deps{
		Auth:       authSvc,
		Attendance: att,
		Tally:      counter,
		Checks:     checks,
		WebDir:     cfg.WebDir,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("starting server on :%s (db=%s, queue=%s)", cfg.HTTPPort, cfg.DBDriver, cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}

	log.Println("server exited")
	return nil
}
