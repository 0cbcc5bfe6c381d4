package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// HealthRepo — запросы, которыми datastore-проба проверяет базу.
type HealthRepo struct {
	db     *sql.DB
	schema string
}

// NewHealthRepo создает репозиторий поверх уже открытого пула.
func NewHealthRepo(db *sql.DB) *HealthRepo {
	return &HealthRepo{db: db, schema: "public"}
}

// Ping — тривиальный round-trip.
func (r *HealthRepo) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("postgres: connect check failed: %w", err)
	}
	return nil
}

// TableExists смотрит в information_schema, есть ли таблица.
func (r *HealthRepo) TableExists(ctx context.Context, table string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, r.schema, table).Scan(&count); err != nil {
		return false, fmt.Errorf("postgres: schema check for %s failed: %w", table, err)
	}
	return count > 0, nil
}

// ReadSample — ограниченное чтение одной строки: доказывает, что данные
// доступны, не сканируя таблицу. Пустая таблица тоже считается доступной.
func (r *HealthRepo) ReadSample(ctx context.Context, table string) error {
	// Имя таблицы приходит из конфига, но экранируем все равно
	query := fmt.Sprintf(`SELECT 1 FROM %s LIMIT 1`, pgx.Identifier{table}.Sanitize())

	var one int
	err := r.db.QueryRowContext(ctx, query).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("postgres: read from %s failed: %w", table, err)
	}
	return nil
}

// CountRows — число строк для details.row_count.
func (r *HealthRepo) CountRows(ctx context.Context, table string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pgx.Identifier{table}.Sanitize())

	var count int64
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count rows in %s failed: %w", table, err)
	}
	return count, nil
}
