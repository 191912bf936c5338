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

	"academic-portal/internal/audit"
	"academic-portal/internal/auth"
	"academic-portal/internal/config"
	"academic-portal/internal/dashboard"
	"academic-portal/internal/httpclient"
	"academic-portal/internal/session"
	"academic-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDashboard()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	backend, closeStore, err := openStore(rootCtx, cfg, log)
	if err != nil {
		log.Error("token store init failed", "backend", cfg.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	store := session.NewStore(backend, log)
	events := audit.NewMemoryRepo(0)

	gw, err := auth.NewGateway(auth.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout,
		LogoutPath: cfg.API.LogoutPath,
	}, store, audit.NewService(events), log)
	if err != nil {
		log.Error("auth gateway init failed", "err", err)
		os.Exit(1)
	}

	client, err := httpclient.New(httpclient.Options{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
	}, &httpclient.Transport{
		Tokens:    store,
		Auth:      gw,
		Navigator: dashboard.Navigator{},
	})
	if err != nil {
		log.Error("api client init failed", "err", err)
		os.Exit(1)
	}

	srv, err := dashboard.NewServer(dashboard.Deps{
		Gateway: gw,
		Store:   store,
		Client:  client,
		Events:  events,
		Log:     log,
	})
	if err != nil {
		log.Error("dashboard init failed", "err", err)
		os.Exit(1)
	}

	if p, ok := store.Profile(rootCtx); ok && store.HasSession(rootCtx) {
		log.Info("resuming stored session", "username", p.Username, "role", p.Role)
	}

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("dashboard listening", "addr", httpSrv.Addr, "env", cfg.App.Env, "api", cfg.API.BaseURL, "store", cfg.Store.Backend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
