package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/Tyrowin/roomchat/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("Could not load .env file: %v", err)
	}

	config := server.NewConfigFromEnv()
	server.SetConfig(config)
	server.ConfigureLogging(config)

	log.Info("Starting room chat server...")

	svc, err := server.NewChatService(config)
	if err != nil {
		log.Fatalf("Failed to create chat service: %v", err)
	}
	svc.Start()
	server.StartHub()

	httpServer := server.CreateServer(config.Port, server.SetupRoutes(svc))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Errorf("HTTP server shutdown failed: %v", err)
	}
	if err := server.GetHub().Shutdown(shutdownTimeout); err != nil {
		log.Errorf("Hub shutdown failed: %v", err)
	}
	if err := svc.Stop(shutdownTimeout); err != nil {
		log.Errorf("Sweeper shutdown failed: %v", err)
	}
	log.Info("Server stopped")
}
