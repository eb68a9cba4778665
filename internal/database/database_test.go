package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/digkill/QuitCoachAPI/internal/config"
)

func TestMigrateSQLiteIsIdempotent(t *testing.T) {
	db, err := Open(config.DriverSQLite, filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := Migrate(ctx, db, config.DriverSQLite); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
	}

	tables := []string{"users", "memberships", "goal_drafts", "quit_plans", "smoking_statuses", "quit_stages", "progress_records", "badges", "user_badges", "coaches", "notifications"}
	for _, name := range tables {
		var count int
		row := db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", name)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("lookup table %s: %v", name, err)
		}
		if count != 1 {
			t.Errorf("table %s missing after migrate", name)
		}
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, err := Open(config.DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	wantErr := context.Canceled
	err = WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO items (id) VALUES (1)"); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx() error = %v, want %v", err, wantErr)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("rows after rollback = %d, want 0", count)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Fatal("Open() accepted unsupported driver")
	}
}
