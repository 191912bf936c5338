package main

import (
	"context"
	"fmt"
	"log/slog"

	"academic-portal/internal/config"
	"academic-portal/internal/session"
	"academic-portal/pkg/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// openStore builds the token store backend selected by TOKEN_STORE. The
// returned func releases its connections.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (session.Backend, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("token store: redis", "addr", cfg.RedisAddr(), "namespace", cfg.Store.Namespace)
		return session.NewRedisBackend(rdb, cfg.Store.Namespace), func() { _ = rdb.Close() }, nil

	case config.StorePostgres:
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		b := session.NewPostgresBackend(db, cfg.Store.Namespace)
		if err := b.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		log.Info("token store: postgres", "host", cfg.DB.Host, "db", cfg.DB.Name, "namespace", cfg.Store.Namespace)
		return b, func() { _ = db.Close() }, nil

	case config.StoreMemory:
		log.Warn("token store: memory; sessions will not survive a restart")
		return session.NewMemoryBackend(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.Store.Backend)
	}
}
