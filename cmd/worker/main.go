package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"clubconsole/internal/apiclient"
	"clubconsole/internal/auth"
	"clubconsole/internal/cache"
	"clubconsole/internal/config"
	"clubconsole/internal/queue"
	"clubconsole/internal/report"
)

// Worker drains report jobs from Redis and stores the DOCX artifacts.
// With QUEUE_BACKEND=memory the console drains jobs itself and this
// process has nothing to do.
func main() {
	cfg := config.Load()
	if cfg.QueueBackend == "memory" {
		log.Fatal("QUEUE_BACKEND=memory is drained in-process by the console; worker needs redis")
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

	tokens := auth.NewTokenStore(cfg.APIToken)
	client := apiclient.New(cfg.APIBaseURL, apiclient.BearerAuth(tokens.Token), apiclient.RequestID())
	client.OnUnauthorized = tokens.Clear

	redisClient := cache.NewRedis(cfg.RedisAddr)
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable yet, consuming anyway", cfg.RedisAddr)
	}
	q := queue.NewRedisQueue(redisClient.Client, "clubconsole:reports")

	jobs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("report worker started, waiting for jobs...")
	report.New(client, cfg.ReportDir).Run(ctx, jobs)
	log.Println("report worker stopped")
}
