package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academic-portal/internal/config"
	"academic-portal/internal/mockapi"
	"academic-portal/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

// mockapi serves a stand-in academic backend for local dashboard runs.
func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadMockAPI()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	tokens, err := mockapi.NewManager(cfg.Auth)
	if err != nil {
		log.Error("token manager init failed", "err", err)
		os.Exit(1)
	}
	users, err := mockapi.DemoDirectory(bcrypt.DefaultCost)
	if err != nil {
		log.Error("demo users init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.MockAPIAddr(),
		Handler:           mockapi.NewServer(tokens, users, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("mock api listening", "addr", srv.Addr, "access_ttl", cfg.Auth.AccessTokenTTL.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
