package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func setupTestMigrations(t *testing.T, files map[string]string) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

func setupSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewRunner_RejectsUnknownDriver(t *testing.T) {
	if _, err := NewRunner(nil, fstest.MapFS{}, "mysql"); err == nil {
		t.Error("expected an error for an unsupported driver")
	}
}

func TestReadMigrationFiles(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    []int
		wantErr string
	}{
		{
			name: "sorted by version",
			files: map[string]string{
				"002_more.sql": "SELECT 1;",
				"001_init.sql": "SELECT 1;",
				"README.md":    "ignored",
			},
			want: []int{1, 2},
		},
		{
			name:    "bad name",
			files:   map[string]string{"init.sql": "SELECT 1;"},
			wantErr: "invalid migration filename",
		},
		{
			name:    "zero version",
			files:   map[string]string{"000_init.sql": "SELECT 1;"},
			wantErr: "at least 1",
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_a.sql":  "SELECT 1;",
				"0001_b.sql": "SELECT 1;",
			},
			wantErr: "duplicate migration version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRunner(nil, setupTestMigrations(t, tt.files), DriverSQLite)
			if err != nil {
				t.Fatalf("NewRunner() error = %v", err)
			}
			got, err := r.ReadMigrationFiles()
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ReadMigrationFiles() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadMigrationFiles() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d migrations, want %d", len(got), len(tt.want))
			}
			for i, v := range tt.want {
				if got[i].Version != v {
					t.Errorf("migration %d version = %d, want %d", i, got[i].Version, v)
				}
			}
		})
	}
}

func TestApplyMigrations_SQLite(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql":  "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT);",
		"002_extra.sql": "ALTER TABLE notes ADD COLUMN title TEXT;",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	var logs []string
	applied, err := r.ApplyMigrations(ctx, func(s string) { logs = append(logs, s) })
	if err != nil {
		t.Fatalf("ApplyMigrations() error = %v", err)
	}
	if applied != 2 {
		t.Errorf("applied = %d, want 2", applied)
	}
	if len(logs) == 0 {
		t.Error("expected progress messages")
	}

	version, err := r.GetCurrentVersion(ctx)
	if err != nil || version != 2 {
		t.Errorf("GetCurrentVersion() = %d, %v; want 2", version, err)
	}
	if err := r.ValidateVersion(ctx); err != nil {
		t.Errorf("ValidateVersion() error = %v", err)
	}

	again, err := r.ApplyMigrations(ctx, nil)
	if err != nil || again != 0 {
		t.Errorf("second ApplyMigrations() = %d, %v; want 0, nil", again, err)
	}
}

func TestApplyMigrations_RollsBackFailure(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql":   "CREATE TABLE notes (id INTEGER PRIMARY KEY);",
		"002_broken.sql": "CREATE TABLE broken (;",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	applied, err := r.ApplyMigrations(ctx, nil)
	if err == nil {
		t.Fatal("expected the broken migration to fail")
	}
	if applied != 1 {
		t.Errorf("applied = %d, want 1", applied)
	}
	if version, _ := r.GetCurrentVersion(ctx); version != 1 {
		t.Errorf("version = %d, want 1 after rollback", version)
	}
}

func TestValidateVersion_NewerDatabase(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql": "SELECT 1;",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if err := r.SetVersion(ctx, 5); err != nil {
		t.Fatalf("SetVersion() error = %v", err)
	}
	if err := r.ValidateVersion(ctx); err == nil || !strings.Contains(err.Error(), "newer") {
		t.Errorf("ValidateVersion() error = %v, want newer-than-supported", err)
	}
}

func TestGetCurrentVersion_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql": "SELECT 1;",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	version, err := r.GetCurrentVersion(ctx)
	if err != nil || version != 0 {
		t.Errorf("GetCurrentVersion() = %d, %v; want 0 on a fresh database", version, err)
	}
}

func TestSetVersion_ReplacesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, fstest.MapFS{}, DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	for _, v := range []int{3, 1} {
		if err := r.SetVersion(ctx, v); err != nil {
			t.Fatalf("SetVersion(%d) error = %v", v, err)
		}
	}

	var rows int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("counting versions: %v", err)
	}
	if rows != 1 {
		t.Errorf("schema_version has %d rows, want 1", rows)
	}
	if version, _ := r.GetCurrentVersion(ctx); version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
}

func TestValidateVersion_PendingMigrations(t *testing.T) {
	ctx := context.Background()
	db := setupSQLiteDB(t)

	r, err := NewRunner(db, setupTestMigrations(t, map[string]string{
		"001_init.sql": "CREATE TABLE notes (id INTEGER PRIMARY KEY);",
		"002_more.sql": "ALTER TABLE notes ADD COLUMN body TEXT;",
	}), DriverSQLite)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	if err := r.SetVersion(ctx, 1); err != nil {
		t.Fatalf("SetVersion() error = %v", err)
	}
	if err := r.ValidateVersion(ctx); err == nil || !strings.Contains(err.Error(), "migrate") {
		t.Errorf("ValidateVersion() error = %v, want a hint to migrate", err)
	}
	if latest, err := r.GetLatestVersion(); err != nil || latest != 2 {
		t.Errorf("GetLatestVersion() = %d, %v; want 2", latest, err)
	}
}
