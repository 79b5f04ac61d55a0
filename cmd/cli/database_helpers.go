package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anstrom/uplink/internal/history"
)

const historyTimeout = 10 * time.Second

// openHistory connects to the history database. Tests replace it.
var openHistory = func(ctx context.Context, cfg *history.Config) (history.Store, error) {
	return history.Connect(ctx, cfg)
}

// HistoryOperation operates on an open history store.
type HistoryOperation func(ctx context.Context, store history.Store) error

// withHistory runs operation against the configured history database and
// closes the connection afterwards.
func withHistory(parent context.Context, operation HistoryOperation) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return fmt.Errorf("scan history is not enabled; set history.enabled in %s", getConfigFilePath())
	}

	ctx, cancel := context.WithTimeout(parent, historyTimeout)
	defer cancel()

	store, err := openHistory(ctx, &cfg.History.Database)
	if err != nil {
		return fmt.Errorf("error connecting to history database: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", closeErr)
		}
	}()

	return operation(ctx, store)
}
