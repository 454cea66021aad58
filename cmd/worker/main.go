package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dailyattend/internal/config"
	"dailyattend/internal/queue"
	"dailyattend/internal/store"
	"dailyattend/internal/tally"
)

// Worker consumes attendance.marked messages from Redis and keeps the daily tally.
func main() {
	cfg := config.Load()
	if cfg.RedisAddr == "" {
		log.Fatal("worker needs REDIS_ADDR")
	}
	if cfg.QueueBackend != "redis" {
		log.Printf("QUEUE_BACKEND=%s: the api is not publishing to redis, worker will idle", cfg.QueueBackend)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet, consumer will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, "")
	counter := tally.NewRedis(redisClient.Client, 90*24*time.Hour)

	log.Println("worker started, waiting for messages...")
	if err := tally.Run(ctx, q, counter); err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Println("worker stopped")
}
