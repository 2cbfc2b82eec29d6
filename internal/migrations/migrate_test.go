package migrations

import (
	"path/filepath"
	"testing"

	"github.com/Simplici0/costbook/internal/db"
)

func TestUpIsRepeatable(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "migrate-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	for i := 0; i < 2; i++ {
		if err := Up(database); err != nil {
			t.Fatalf("run migrations (iteration=%d): %v", i, err)
		}
	}

	v, err := Version(database)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if v != 4 {
		t.Fatalf("expected schema version 4, got %d", v)
	}

	for _, table := range []string{"materials", "price_history", "price_list_items", "assemblies", "assembly_components", "estimates", "estimate_rooms", "estimate_line_items", "jobs", "job_stages"} {
		var n int
		if err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			t.Fatalf("query sqlite_master: %v", err)
		}
		if n != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}
