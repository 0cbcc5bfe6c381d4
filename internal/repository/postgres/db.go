package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
	"github.com/xela07ax/resilience-control-plane/internal/infra"
	"go.uber.org/zap"
)

// Open открывает пул соединений. Доступность базы проверяется через
// infra.WaitFor, но ее отсутствие не фатально: проба здоровья покажет failed.
func Open(ctx context.Context, cfg infra.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("postgres: database.url is required")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := infra.WaitFor(ctx, logger, "postgres", db.PingContext); err != nil {
		logger.Warn("continuing without postgres, datastore probe will report unhealthy", zap.Error(err))
	}
	return db, nil
}
