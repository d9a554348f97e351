package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/promptforge/promptforge/models"
)

// ErrManifestNotFound is returned when no manifest exists for a tool.
var ErrManifestNotFound = errors.New("manifest not found")

// SaveManifest validates and upserts a tool's manifest as a JSON payload.
func (db *DB) SaveManifest(ctx context.Context, m *models.IDEManifest) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid manifest: %w", err)
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize manifest %s: %w", m.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO manifests (ide_id, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ide_id) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP
	`, m.ID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save manifest %s: %w", m.ID, err)
	}
	return nil
}

// GetManifest loads and validates a tool's manifest. Stored payloads are
// deserialized and re-validated, never trusted as free-form JSON.
func (db *DB) GetManifest(ctx context.Context, ideID string) (*models.IDEManifest, error) {
	var payload string
	err := db.QueryRowContext(ctx, "SELECT payload FROM manifests WHERE ide_id = ?", ideID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, ideID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", ideID, err)
	}

	var m models.IDEManifest
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return nil, fmt.Errorf("failed to parse stored manifest %s: %w", ideID, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("stored manifest %s is invalid: %w", ideID, err)
	}
	return &m, nil
}

// ListManifestIDs returns the tool IDs with stored manifests, sorted.
func (db *DB) ListManifestIDs(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT ide_id FROM manifests ORDER BY ide_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan manifest id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
