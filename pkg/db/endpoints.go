package db

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/purelygoods/storefront/pkg/endpoints"
)

const endpointsLogPrefix = "db:endpoints"

// EndpointRow is a row of the endpoints table.
type EndpointRow struct {
	Service   string    `db:"service"`
	Operation string    `db:"operation"`
	Path      string    `db:"path"`
	Modified  time.Time `db:"modified"`
}

// Repository reads and writes the endpoints table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListEndpoints returns every row ordered by service and operation.
func (r *Repository) ListEndpoints(ctx context.Context) ([]EndpointRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT service, operation, path, modified
		 FROM endpoints
		 ORDER BY service, operation`)
	if err != nil {
		return nil, fmt.Errorf("%s - query failed: %w", endpointsLogPrefix, err)
	}

	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[EndpointRow])
	if err != nil {
		return nil, fmt.Errorf("%s - scan failed: %w", endpointsLogPrefix, err)
	}
	slog.Debug(fmt.Sprintf("%s - Loaded %d endpoint rows", endpointsLogPrefix, len(out)))
	return out, nil
}

// LoadTable reads the endpoints table into an endpoints.Table.
func (r *Repository) LoadTable(ctx context.Context) (endpoints.Table, error) {
	rows, err := r.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	return RowsToTable(rows), nil
}

// ReplaceTable replaces the whole endpoints table with t in one transaction.
func (r *Repository) ReplaceTable(ctx context.Context, t endpoints.Table) error {
	rows := TableToRows(t)
	slog.Info(fmt.Sprintf("%s - Writing %d endpoint rows", endpointsLogPrefix, len(rows)))

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin failed: %w", endpointsLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM endpoints`); err != nil {
		return fmt.Errorf("%s - delete failed: %w", endpointsLogPrefix, err)
	}

	now := time.Now().UTC()
	src := make([][]interface{}, len(rows))
	for i, row := range rows {
		src[i] = []interface{}{row.Service, row.Operation, row.Path, now}
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"endpoints"},
		[]string{"service", "operation", "path", "modified"},
		pgx.CopyFromRows(src)); err != nil {
		return fmt.Errorf("%s - copy failed: %w", endpointsLogPrefix, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit failed: %w", endpointsLogPrefix, err)
	}
	return nil
}

// Clear removes every endpoint row. The schema is preserved.
func (r *Repository) Clear(ctx context.Context) error {
	slog.Info(fmt.Sprintf("%s - Clearing endpoints table", endpointsLogPrefix))
	if _, err := r.pool.Exec(ctx, `TRUNCATE TABLE endpoints`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", endpointsLogPrefix, err)
	}
	return nil
}

// RowsToTable groups rows into a Table.
func RowsToTable(rows []EndpointRow) endpoints.Table {
	t := make(endpoints.Table)
	for _, row := range rows {
		svc := endpoints.Service(row.Service)
		if t[svc] == nil {
			t[svc] = make(map[endpoints.Operation]string)
		}
		t[svc][endpoints.Operation(row.Operation)] = row.Path
	}
	return t
}

// TableToRows flattens a Table into rows ordered by service and operation.
func TableToRows(t endpoints.Table) []EndpointRow {
	var rows []EndpointRow
	for svc, ops := range t {
		for op, path := range ops {
			rows = append(rows, EndpointRow{Service: string(svc), Operation: string(op), Path: path})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Service != rows[j].Service {
			return rows[i].Service < rows[j].Service
		}
		return rows[i].Operation < rows[j].Operation
	})
	return rows
}
