package service

import (
	"context"
	"fmt"

	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/adapters/repository/memory"
	"github.com/okian/scoreboard/internal/adapters/repository/postgres"
	"github.com/okian/scoreboard/internal/adapters/repository/sqlite"
	"github.com/okian/scoreboard/internal/config"
)

// OpenStore opens the backend selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory, "":
		return memory.New(), nil
	case config.BackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.PostgresDSN)
	}
	return nil, fmt.Errorf("%w: %q", repository.ErrUnknownBackend, cfg.StoreBackend)
}
