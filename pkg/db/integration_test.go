//go:build integration

package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/purelygoods/storefront/pkg/endpoints"
)

const integrationTestPrefix = "db:integration_test"

func setupRepository(t *testing.T) (*Repository, context.Context) {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skipf("%s - DATABASE_URL not set", integrationTestPrefix)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	pool, err := NewPool(ctx, dbURL)
	if err != nil {
		t.Fatalf("%s - NewPool: %v", integrationTestPrefix, err)
	}
	t.Cleanup(pool.Close)

	migrations, err := LoadMigrationFiles(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - LoadMigrationFiles: %v", integrationTestPrefix, err)
	}
	if err := RunMigrations(ctx, pool, migrations); err != nil {
		t.Fatalf("%s - RunMigrations: %v", integrationTestPrefix, err)
	}

	repo := NewRepository(pool)
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("%s - Clear: %v", integrationTestPrefix, err)
	}
	return repo, ctx
}

func TestIntegration_ReplaceAndLoadTable(t *testing.T) {
	repo, ctx := setupRepository(t)

	if err := repo.ReplaceTable(ctx, endpoints.DefaultTable()); err != nil {
		t.Fatalf("%s - ReplaceTable: %v", integrationTestPrefix, err)
	}

	table, err := repo.LoadTable(ctx)
	if err != nil {
		t.Fatalf("%s - LoadTable: %v", integrationTestPrefix, err)
	}
	reg, err := endpoints.NewRegistry("https://api.example.com", table)
	if err != nil {
		t.Fatalf("%s - NewRegistry from DB table: %v", integrationTestPrefix, err)
	}
	if got := reg.PaymentPing(); got != "https://api.example.com/payment-service/ping" {
		t.Errorf("%s - PaymentPing = %q", integrationTestPrefix, got)
	}
}

func TestIntegration_ReplaceTableOverwrites(t *testing.T) {
	repo, ctx := setupRepository(t)

	first := endpoints.DefaultTable()
	first[endpoints.ServicePayment]["REFUND"] = "payment-service/refund"
	if err := repo.ReplaceTable(ctx, first); err != nil {
		t.Fatalf("%s - ReplaceTable first: %v", integrationTestPrefix, err)
	}
	if err := repo.ReplaceTable(ctx, endpoints.DefaultTable()); err != nil {
		t.Fatalf("%s - ReplaceTable second: %v", integrationTestPrefix, err)
	}

	rows, err := repo.ListEndpoints(ctx)
	if err != nil {
		t.Fatalf("%s - ListEndpoints: %v", integrationTestPrefix, err)
	}
	if len(rows) != 2 {
		t.Fatalf("%s - expected 2 rows after replace, got %d", integrationTestPrefix, len(rows))
	}
	for _, row := range rows {
		if row.Modified.IsZero() {
			t.Errorf("%s - row %s.%s has zero modified time", integrationTestPrefix, row.Service, row.Operation)
		}
	}
}

func TestIntegration_Clear(t *testing.T) {
	repo, ctx := setupRepository(t)

	if err := repo.ReplaceTable(ctx, endpoints.DefaultTable()); err != nil {
		t.Fatalf("%s - ReplaceTable: %v", integrationTestPrefix, err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("%s - Clear: %v", integrationTestPrefix, err)
	}
	rows, err := repo.ListEndpoints(ctx)
	if err != nil {
		t.Fatalf("%s - ListEndpoints: %v", integrationTestPrefix, err)
	}
	if len(rows) != 0 {
		t.Errorf("%s - expected no rows after Clear, got %d", integrationTestPrefix, len(rows))
	}
}
