package seed

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/costbook/internal/assembly"
	"github.com/Simplici0/costbook/internal/db"
	"github.com/Simplici0/costbook/internal/migrations"
	"github.com/Simplici0/costbook/internal/store"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()
	database := openTestDB(t)

	want := len(demoMaterials) + len(demoPriceList) + len(demoAssemblies)
	for i := 0; i < 5; i++ {
		stats, err := Run(database)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != want {
				t.Fatalf("expected %d inserts in first run, got %d", want, stats.Inserts)
			}
			continue
		}
		if stats.Inserts != 0 {
			t.Fatalf("expected 0 inserts in iteration %d, got %d", i, stats.Inserts)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM materials`, len(demoMaterials))
	assertCount(t, database, `SELECT COUNT(*) FROM price_history`, len(demoMaterials))
	assertCount(t, database, `SELECT COUNT(*) FROM price_list_items`, len(demoPriceList))
	assertCount(t, database, `SELECT COUNT(*) FROM assemblies WHERE is_default = 1`, len(demoAssemblies))
	assertCount(t, database, `SELECT COUNT(*) FROM assembly_components`, 8)
}

func TestSeededCatalogIsReadableByStore(t *testing.T) {
	t.Parallel()
	database := openTestDB(t)
	if _, err := Run(database); err != nil {
		t.Fatalf("run seed: %v", err)
	}

	st := store.New(database)
	ctx := context.Background()

	m, err := st.GetMaterialByCode(ctx, "WIRE-12-2")
	if err != nil {
		t.Fatalf("GetMaterialByCode: %v", err)
	}
	if !m.CurrentPrice.Equal(decimal.RequireFromString("0.85")) || m.UnitOfMeasure != "FT" {
		t.Fatalf("unexpected material: %+v", m)
	}

	svc := assembly.NewService(st)
	tpl, err := svc.DefaultFor(ctx, "OUTLET")
	if err != nil {
		t.Fatalf("DefaultFor: %v", err)
	}
	cost, err := svc.Cost(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}
	// 15 x 0.85 + 1.20 + 2.50 + 0.75
	if !cost.TotalMaterialCost.Equal(decimal.RequireFromString("17.20")) {
		t.Fatalf("material cost = %s, want 17.20", cost.TotalMaterialCost)
	}
	if cost.TotalLaborMinutes != 45 {
		t.Fatalf("labor minutes = %d, want 45", cost.TotalLaborMinutes)
	}
}

func assertCount(t *testing.T, database *sql.DB, query string, expected int) {
	t.Helper()

	var count int
	if err := database.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("%s: expected count %d, got %d", query, expected, count)
	}
}
