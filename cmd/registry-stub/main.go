// Command registry-stub serves the person registry API from memory. It is a
// development stand-in for the external registry, not a deployable service:
// records vanish on restart.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anagrafe/internal/platform/config"
	"anagrafe/internal/platform/httpserver"
	"anagrafe/internal/platform/logger"
	"anagrafe/internal/stubserver"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	stub := stubserver.New(log)

	r := chi.NewRouter()
	r.Mount("/", stub.Router())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, r)

	log.Info("starting registry stub", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
