package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pompomputin/wwebjs-webui-docker/internal/model"
)

// SettingsRepository persists per-session feature toggles.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings for sessionID, or zero settings when none were saved.
func (r *SettingsRepository) Get(ctx context.Context, sessionID string) (model.Settings, error) {
	query := `
		SELECT typing_indicator, auto_seen, online_presence
		FROM session_settings
		WHERE session_id = ?
	`

	var s model.Settings
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.TypingIndicator,
		&s.AutoSeen,
		&s.OnlinePresence,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Settings{}, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("failed to get settings: %w", err)
	}
	return s, nil
}

// Save upserts the settings for sessionID.
func (r *SettingsRepository) Save(ctx context.Context, sessionID string, s model.Settings) error {
	query := `
		INSERT INTO session_settings (session_id, typing_indicator, auto_seen, online_presence, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			typing_indicator = excluded.typing_indicator,
			auto_seen = excluded.auto_seen,
			online_presence = excluded.online_presence,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		sessionID,
		s.TypingIndicator,
		s.AutoSeen,
		s.OnlinePresence,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
