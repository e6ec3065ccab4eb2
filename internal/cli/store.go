package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/postgres"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

// IsPostgres reports whether location is a PostgreSQL URL or key=value DSN.
func IsPostgres(location string) bool {
	return strings.HasPrefix(location, "postgres://") ||
		strings.HasPrefix(location, "postgresql://") ||
		strings.Contains(location, "host=") ||
		strings.Contains(location, "dbname=")
}

// OpenStore picks the backend for a resolved storage location. Nothing is
// connected yet; callers Init or Load the returned store.
func OpenStore(location string) (storage.Provider, error) {
	if IsPostgres(location) {
		if valid, err := postgres.ValidateConnString(location); !valid {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, fmt.Errorf("PostgreSQL connection strings with embedded credentials are NOT allowed; store it with 'keyring set' and pass --db keyring, or use .pgpass")
			}
			return nil, err
		}
		return postgres.New(location), nil
	}
	return sqlite.NewStore(ExpandPath(location)), nil
}

// ExpandPath resolves a leading ~ to the home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
