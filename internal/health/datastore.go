package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/xela07ax/resilience-control-plane/internal/domain"
	"go.uber.org/zap"
)

// DatastoreChecker — запросы, которые нужны пробе от базы.
// Реализуется postgres.HealthRepo.
type DatastoreChecker interface {
	Ping(ctx context.Context) error
	TableExists(ctx context.Context, table string) (bool, error)
	ReadSample(ctx context.Context, table string) error
	CountRows(ctx context.Context, table string) (int64, error)
}

// DatastoreProbe проверяет соединение, наличие таблицы и чтение из нее.
// Первая же ошибка прерывает остальные шаги.
type DatastoreProbe struct {
	repo   DatastoreChecker
	table  string
	logger *zap.Logger
}

func NewDatastoreProbe(repo DatastoreChecker, table string, logger *zap.Logger) *DatastoreProbe {
	return &DatastoreProbe{
		repo:   repo,
		table:  table,
		logger: logger.With(zap.String("mod", "datastore-probe")),
	}
}

func (p *DatastoreProbe) Name() string { return "database" }

// TableCheck — имя подпроверки таблицы, например "inventory_table".
func (p *DatastoreProbe) TableCheck() string { return p.table + "_table" }

func (p *DatastoreProbe) Check(ctx context.Context) domain.ProbeResult {
	tableCheck := p.TableCheck()

	// 1. Соединение
	if err := p.repo.Ping(ctx); err != nil {
		return p.fail(ctx, err, domain.Checks{
			{Name: "connection", Status: domain.CheckFailed},
			{Name: tableCheck, Status: domain.CheckUnknown},
		})
	}

	// 2. Схема: таблица существует
	exists, err := p.repo.TableExists(ctx, p.table)
	if err == nil && !exists {
		err = fmt.Errorf("%s table does not exist", p.table)
	}
	if err != nil {
		return p.fail(ctx, err, domain.Checks{
			{Name: "connection", Status: domain.CheckOK},
			{Name: tableCheck, Status: domain.CheckNotAccessible},
		})
	}

	// 3. Данные читаются
	err = p.repo.ReadSample(ctx, p.table)
	var count int64
	if err == nil {
		count, err = p.repo.CountRows(ctx, p.table)
	}
	if err != nil {
		return p.fail(ctx, err, domain.Checks{
			{Name: "connection", Status: domain.CheckOK},
			{Name: tableCheck, Status: domain.CheckNotAccessible},
		})
	}

	return domain.HealthyResult(
		domain.Checks{
			{Name: "connection", Status: domain.CheckOK},
			{Name: tableCheck, Status: domain.CheckAccessible},
		},
		map[string]any{"row_count": count},
	)
}

func (p *DatastoreProbe) fail(ctx context.Context, err error, checks domain.Checks) domain.ProbeResult {
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		reason = fmt.Sprintf("datastore probe timed out: %v", err)
	}
	p.logger.Error("database health check failed", zap.String("table", p.table), zap.Error(err))
	return domain.UnhealthyResult(reason, checks, nil)
}
