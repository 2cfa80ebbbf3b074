package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/cache"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/dukex/flowcanvas/pkg/persistence/postgresql"
	"github.com/redis/go-redis/v9"
)

// ErrUnsupportedPersistence is returned for database URLs of an unknown scheme.
var ErrUnsupportedPersistence = errors.New("unsupported persistence provider")

// NewPersistence opens the workflow store named by databaseURL:
// "postgres://" or "postgresql://" URLs open PostgreSQL, "file://" URLs and
// bare paths open the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgresql":
		postgres, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgresql persistence: %w", err)
		}

		return postgres, nil
	case "file":
		return file.NewPersistence(databaseURL), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPersistence, databaseURL)
	}
}

// WithCache puts a redis read-through cache in front of p when redisURL is
// set.
func WithCache(ctx context.Context, logger *slog.Logger, p persistence.Persistence, redisURL string) (persistence.Persistence, error) {
	if redisURL == "" {
		return p, nil
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		logger.WarnContext(ctx, "Redis is not reachable, reads fall back to the store", "error", err)
	}

	return cache.NewPersistence(p, client, cache.DefaultTTL, logger), nil
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	switch scheme {
	case "postgres", "postgresql":
		return "postgresql"
	case "file":
		return "file"
	default:
		return scheme
	}
}
