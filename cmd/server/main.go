package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/chat"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/config"
	internalhttp "github.com/kishor006-dev/Smart-Canteen-Assitant/internal/http"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/llm"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/store"
	"github.com/kishor006-dev/Smart-Canteen-Assitant/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoStore, err := store.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("mongo connection failed: %v", err)
	}
	defer func() {
		if err := mongoStore.Close(context.Background()); err != nil {
			log.Printf("mongo close error: %v", err)
		}
	}()

	if cfg.SeedUsers {
		if err := store.Seed(ctx, mongoStore); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	groq, err := llm.New(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL)
	if err != nil {
		log.Fatalf("groq client init failed: %v", err)
	}
	if !groq.Configured() {
		log.Printf("GROQ_API_KEY not set: chat fallback replies disabled")
	}

	var memory chat.MemoryStore = chat.NewLocalMemory()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			log.Fatalf("redis ping failed: %v", err)
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}()
		memory = chat.NewRedisMemory(redisClient, cfg.ChatMemoryTTL)
	}

	assistant := chat.NewAssistant(mongoStore, memory, groq, cfg.ChatHistory)
	hub := ws.NewHub()
	server := internalhttp.NewServer(cfg, mongoStore, assistant, hub)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("canteen backend listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
