// Command devbox-agent runs the remote development-box HTTP/WebSocket
// agent: workspace file access, the process execution engine, persistent
// shell sessions, and the log subscription multiplexer (SPEC_FULL.md §1-2),
// grounded on the donor's main.go bootstrap idiom (godotenv + logrus +
// swagger host + graceful shutdown).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/devbox-run/agent/internal/config"
	"github.com/devbox-run/agent/internal/httpapi"
)

// @title          devbox-agent API
// @version        1.0.0
// @description    Remote development-box agent: workspace filesystem,
// @description    process execution, interactive shell sessions, and log
// @description    subscriptions over HTTP and WebSocket.
// @BasePath       /
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found; continuing with process environment")
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	server := httpapi.NewServer(cfg)
	router := server.Router()

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		logrus.WithField("addr", cfg.Addr).Info("devbox-agent listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logrus.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("graceful shutdown failed")
	}
}
