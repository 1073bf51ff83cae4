package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() }) //nolint:errcheck // Intentionally ignoring close error in test cleanup

	return database, dbPath
}

func TestOpen(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		_, dbPath := openTestDB(t)

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

		database, err := Open(context.Background(), dbPath)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer func() { _ = database.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("database file was not created in nested directory")
		}
	})

	t.Run("runs migrations", func(t *testing.T) {
		database, _ := openTestDB(t)
		ctx := context.Background()

		for _, table := range []string{"sessions", "messages"} {
			var name string
			err := database.Conn().QueryRowContext(ctx,
				"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
			if err != nil {
				t.Fatalf("%s table not created: %v", table, err)
			}
		}
	})

	t.Run("reopening is idempotent", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")
		ctx := context.Background()

		first, err := Open(ctx, dbPath)
		if err != nil {
			t.Fatalf("first Open() error = %v", err)
		}
		_ = first.Close() //nolint:errcheck // Test only

		second, err := Open(ctx, dbPath)
		if err != nil {
			t.Fatalf("second Open() error = %v", err)
		}
		defer func() { _ = second.Close() }() //nolint:errcheck // Intentionally ignoring close error in test cleanup
	})

	t.Run("enables WAL mode", func(t *testing.T) {
		database, _ := openTestDB(t)

		var journalMode string
		err := database.Conn().QueryRowContext(context.Background(), "PRAGMA journal_mode").Scan(&journalMode)
		if err != nil {
			t.Fatalf("failed to get journal_mode: %v", err)
		}
		if journalMode != "wal" {
			t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
		}
	})

	t.Run("enables foreign keys", func(t *testing.T) {
		database, _ := openTestDB(t)

		var foreignKeys int
		err := database.Conn().QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&foreignKeys)
		if err != nil {
			t.Fatalf("failed to get foreign_keys: %v", err)
		}
		if foreignKeys != 1 {
			t.Errorf("foreign_keys = %d, want 1", foreignKeys)
		}
	})
}

func TestDB_PragmasOnEveryConnection(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()

	// Hold several connections at once so the pool has to open new ones.
	const n = 3
	conns := make([]*sql.Conn, 0, n)
	t.Cleanup(func() {
		for _, c := range conns {
			_ = c.Close() //nolint:errcheck // Intentionally ignoring close error in test cleanup
		}
	})
	for range n {
		c, err := database.Conn().Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error = %v", err)
		}
		conns = append(conns, c)
	}

	tests := []struct {
		pragma string
		want   int
	}{
		{"foreign_keys", 1},
		{"synchronous", 1}, // NORMAL
		{"cache_size", -8000},
		{"busy_timeout", 5000},
	}

	for i, c := range conns {
		for _, tt := range tests {
			var got int
			if err := c.QueryRowContext(ctx, "PRAGMA "+tt.pragma).Scan(&got); err != nil {
				t.Fatalf("conn %d: PRAGMA %s: %v", i, tt.pragma, err)
			}
			if got != tt.want {
				t.Errorf("conn %d: %s = %d, want %d", i, tt.pragma, got, tt.want)
			}
		}
	}
}

func TestDB_Version(t *testing.T) {
	database, _ := openTestDB(t)

	v, err := database.Version()
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if v < 1 {
		t.Errorf("Version() = %d, want >= 1", v)
	}
}

func TestDB_Path(t *testing.T) {
	database, dbPath := openTestDB(t)

	if got := database.Path(); got != dbPath {
		t.Errorf("Path() = %q, want %q", got, dbPath)
	}
}

func TestDB_CascadeDelete(t *testing.T) {
	database, _ := openTestDB(t)
	ctx := context.Background()
	conn := database.Conn()

	if _, err := conn.ExecContext(ctx,
		`INSERT INTO sessions (id, owner_id, created_at, updated_at) VALUES ('s1', 'owner', 0, 0)`); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, seq, created_at) VALUES ('m1', 's1', 'user', 'hi', 1, 1)`); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if _, err := conn.ExecContext(ctx, `DELETE FROM sessions WHERE id = 's1'`); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	var count int
	if err := database.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Errorf("messages after cascade = %d, want 0", count)
	}
}

func TestDB_Close(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	database, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := database.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := database.Conn().PingContext(context.Background()); err == nil {
		t.Error("connection should be closed")
	}
}
