package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/flowkite/flowkite/pkg/persistence"
	"github.com/flowkite/flowkite/pkg/persistence/file"
	"github.com/flowkite/flowkite/pkg/persistence/postgresql"
)

// NewPersistence selects a store implementation from the database URL scheme.
// `postgres://` and `postgresql://` select PostgreSQL, anything else is
// treated as a path for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(err)
		}

		return store
	default:
		root := strings.TrimPrefix(databaseURL, "file://")

		return file.NewPersistence(root)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
