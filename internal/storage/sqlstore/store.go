// Package sqlstore holds the SQL shared by the SQLite and PostgreSQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// LockFunc serializes writers for one owner inside a transaction.
type LockFunc func(ctx context.Context, tx *sql.Tx, owner string) error

type Store struct {
	db      *sql.DB
	dialect Dialect
	lock    LockFunc
}

func New(db *sql.DB, dialect Dialect, lock LockFunc) *Store {
	return &Store{db: db, dialect: dialect, lock: lock}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// bind rewrites ? placeholders into $n for PostgreSQL.
func (s *Store) bind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(constants.TimestampFormat, s)
}

func parseTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// placeholders returns "?, ?, ..." for n values.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
