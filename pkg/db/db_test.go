package db_test

import (
	"path/filepath"
	"testing"

	"nodedesk/pkg/db"
)

func TestDB(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "nested", "db_test.db")

	d, err := db.Init(path)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if d == nil {
		t.Fatal("Init() returned nil DB")
	}
	defer d.Close()

	var n int
	if err := d.QueryRow("SELECT count(*) FROM pragma_table_info('persistent_state') WHERE name='updated_at'").Scan(&n); err != nil {
		t.Fatalf("pragma query failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected updated_at column after migration, got %d", n)
	}
}

func TestDB_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db_test.db")
	for i := 0; i < 2; i++ {
		d, err := db.Init(path)
		if err != nil {
			t.Fatalf("Init() #%d failed: %v", i+1, err)
		}
		d.Close()
	}
}
