package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/transition-map/initiative-cli/internal/db"
	"github.com/transition-map/initiative-cli/internal/initiative"
)

// openStore builds the configured store backend.
func openStore(ctx context.Context) (initiative.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "postgres":
		pool, err := db.Connect(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
		if err != nil {
			return nil, err
		}
		return initiative.NewPostgresStore(pool), nil
	case "sqlite":
		return initiative.NewSQLiteStore(cfg.Store.SQLitePath)
	default:
		return nil, eris.Errorf("unknown store driver %q (valid: postgres, sqlite)", cfg.Store.Driver)
	}
}
