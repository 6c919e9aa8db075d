package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chitchat-im/chitchat/internal/api"
	"github.com/chitchat-im/chitchat/internal/config"
	"github.com/chitchat-im/chitchat/internal/database"
	"github.com/chitchat-im/chitchat/internal/server"
	"github.com/chitchat-im/chitchat/internal/stats"
	"github.com/chitchat-im/chitchat/internal/unread"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger := log.New(os.Stderr, "[chitchat] ", log.LstdFlags)

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatal("config: ", err)
	}

	dbConn, err := database.NewPgChitChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open: ", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close: ", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate: ", err)
	}

	var unreadStore unread.Store = unread.NewMemoryStore()
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis ping: ", err)
		}
		unreadStore = unread.NewRedisStore(client)
		logger.Println("using redis unread store at", cfg.RedisAddr)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(logger, mux)

	chatServer, err := server.NewChatServer(logger, unreadStore, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server: ", err)
	}

	srv := api.NewChitChatApp(mux, logger, chatServer, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
