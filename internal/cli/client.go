package cli

import (
	"context"
	"fmt"

	"github.com/latticedb/sync-core/internal/connection"
	"github.com/latticedb/sync-core/internal/repo"
)

// dialRepo returns the Repo registered for cfg.Connection.URL, dialing
// and, if configured, authenticating a fresh Connection on first use.
func dialRepo(ctx context.Context) (*repo.Repo, error) {
	if existing, ok := registry.Get(cfg.Connection.URL); ok {
		return existing, nil
	}

	conn, err := connection.Dial(ctx, cfg.Connection.URL)
	if err != nil {
		return nil, fmt.Errorf("cli: dial %s: %w", cfg.Connection.URL, err)
	}

	if token := cfg.AuthToken(); token != "" {
		if _, err := conn.Auth(ctx, token); err != nil {
			conn.Close()
			return nil, fmt.Errorf("cli: auth: %w", err)
		}
	}

	return registry.GetOrCreate(cfg.Connection.URL, func() *repo.Repo {
		return repo.New(cfg.Connection.URL, conn)
	}), nil
}
