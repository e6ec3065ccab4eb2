package sqlstore

import (
	"context"
	"fmt"

	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
)

// GetSettings returns the owner's profile, or ErrNotFound if none was saved.
func (s *Store) GetSettings(ctx context.Context, owner string) (models.Settings, error) {
	rows, err := s.db.QueryContext(ctx, s.bind("SELECT key, value FROM settings WHERE owner_id = ?"), owner)
	if err != nil {
		return models.Settings{}, err
	}
	defer rows.Close()

	data := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return models.Settings{}, err
		}
		data[key] = value
	}
	if err := rows.Err(); err != nil {
		return models.Settings{}, err
	}
	if len(data) == 0 {
		return models.Settings{}, fmt.Errorf("settings for %q: %w", owner, storage.ErrNotFound)
	}
	return models.MapToSettings(data)
}

func (s *Store) SaveSettings(ctx context.Context, owner string, settings models.Settings) error {
	data, err := models.SettingsToMap(settings)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.bind(`
		INSERT INTO settings (owner_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT (owner_id, key) DO UPDATE SET value = excluded.value`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for key, value := range data {
		if _, err := stmt.ExecContext(ctx, owner, key, value); err != nil {
			return fmt.Errorf("saving setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// Owners lists every owner that has settings or tasks.
func (s *Store) Owners(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_id FROM settings
		UNION
		SELECT owner_id FROM tasks
		ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
