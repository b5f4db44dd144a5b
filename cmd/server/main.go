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

	"github.com/joho/godotenv"

	"chat-relay-backend/internal/chat"
	"chat-relay-backend/internal/config"
	"chat-relay-backend/internal/db"
	"chat-relay-backend/internal/httpapi"
	"chat-relay-backend/internal/store/rabbitmq"
	"chat-relay-backend/internal/store/redisstore"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	gdb := db.Connect(cfg.DBDSN)

	// Per-user session lock. Redis when available, in-process otherwise.
	var locker chat.UserLocker
	rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := rds.Ping(pingCtx); err != nil {
		log.Printf("redis unavailable addr=%s err=%v, using in-process lock", cfg.RedisAddr, err)
		locker = chat.NewMemoryLocker()
	} else {
		locker = rds
	}
	cancel()

	// Turn events are best-effort; run without the publisher if rabbit is down.
	var publisher chat.TurnPublisher
	pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		log.Printf("rabbit unavailable url=%s err=%v, turn events disabled", cfg.RabbitURL, err)
	} else {
		publisher = pub
		defer pub.Close()
	}

	r := httpapi.NewRouter(gdb, cfg, locker, publisher)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Printf("server shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
