package db

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenAppliesPragmas(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "pragma-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	// Force a second pooled connection so the check is not satisfied by the first one only.
	database.SetMaxIdleConns(0)

	for i := 0; i < 3; i++ {
		var fk, timeout int
		if err := database.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil {
			t.Fatalf("read foreign_keys: %v", err)
		}
		if err := database.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout); err != nil {
			t.Fatalf("read busy_timeout: %v", err)
		}
		if fk != 1 || timeout != 5000 {
			t.Fatalf("unexpected pragmas: foreign_keys=%d busy_timeout=%d", fk, timeout)
		}
	}

	var mode string
	if err := database.QueryRow(`PRAGMA journal_mode`).Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("expected WAL journal mode, got %q", mode)
	}
}
