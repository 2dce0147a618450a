package journal

import (
	"fmt"
	"log/slog"

	"reloadr-hq/reloadr/pkg/config"
)

// Open creates the storage backend selected by cfg.
func Open(cfg config.JournalConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Backend {
	case "sqlite", "":
		return NewSQLiteStorage(cfg.SQLite, logger)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}
