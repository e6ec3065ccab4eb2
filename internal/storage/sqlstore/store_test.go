package sqlstore

import (
	"testing"
	"time"
)

func TestBind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{"sqlite untouched", SQLite, "SELECT * FROM tasks WHERE id = ? AND owner_id = ?", "SELECT * FROM tasks WHERE id = ? AND owner_id = ?"},
		{"postgres numbered", Postgres, "SELECT * FROM tasks WHERE id = ? AND owner_id = ?", "SELECT * FROM tasks WHERE id = $1 AND owner_id = $2"},
		{"postgres no params", Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{dialect: tt.dialect}
			if got := s.bind(tt.query); got != tt.want {
				t.Errorf("bind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	if got := placeholders(3); got != "?, ?, ?" {
		t.Errorf("placeholders(3) = %q", got)
	}
	if got := placeholders(1); got != "?" {
		t.Errorf("placeholders(1) = %q", got)
	}
}

func TestFormatTimeIsSortableUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	early := time.Date(2025, 3, 10, 23, 0, 0, 0, ny) // 03:00Z next day
	late := time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC)

	a, b := formatTime(early), formatTime(late)
	if a <= b {
		t.Errorf("formatTime ordering broken: %s should sort after %s", a, b)
	}

	back, err := parseTime(a)
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if !back.Equal(early) {
		t.Errorf("round trip = %v, want %v", back, early)
	}
}
