package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-insight/internal/store"
)

// openStore builds the configured store backend. Postgres serves production;
// SQLite covers local development against a file or :memory:.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
