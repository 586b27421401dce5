// Package admin provides destructive maintenance operations on the
// inventory database.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	db "github.com/JonMunkholm/pima/internal/database"
)

// ResetTimeout is the maximum duration for a reset.
const ResetTimeout = 30 * time.Second

// Resetter is the subset of db.Queries that clears stored data.
type Resetter interface {
	CountProductInventory(ctx context.Context) (int64, error)
	ResetProductInventory(ctx context.Context) error
}

var _ Resetter = (*db.Queries)(nil)

type resetFn func(ctx context.Context) error

// ResetInventory deletes every stored inventory record and returns how many
// there were.
func ResetInventory(ctx context.Context, q Resetter, logger *slog.Logger) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	count, err := q.CountProductInventory(ctx)
	if err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}

	if err := runResets(ctx, []resetFn{q.ResetProductInventory}); err != nil {
		return 0, err
	}

	if logger != nil {
		logger.InfoContext(ctx, "inventory reset", "deleted", count)
	}
	return count, nil
}

func runResets(ctx context.Context, resets []resetFn) error {
	for _, reset := range resets {
		if err := reset(ctx); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}
