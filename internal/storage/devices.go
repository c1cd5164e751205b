package storage

import (
	"context"

	"studiobook/internal/model"
	"studiobook/libs/db"
)

type DeviceRepository struct {
	pool *db.Pool
}

func NewDeviceRepository(pool *db.Pool) *DeviceRepository {
	return &DeviceRepository{pool: pool}
}

// Upsert registers or refreshes a device keyed by the client-supplied device
// id. UserID may be empty (anonymous registration); a later authenticated
// registration from the same device claims it.
func (r *DeviceRepository) Upsert(ctx context.Context, d model.Device) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO devices (id, user_id, token, platform, active)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET user_id = COALESCE(NULLIF(EXCLUDED.user_id::text, '')::text, devices.user_id),
			token = EXCLUDED.token,
			platform = EXCLUDED.platform,
			active = EXCLUDED.active,
			updated_at = now()
	`, d.ID, d.UserID, d.Token, d.Platform, d.Active)
	return err
}

// ActiveTokensForUser returns the user's active push tokens, empties dropped.
func (r *DeviceRepository) ActiveTokensForUser(ctx context.Context, uid string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT token
		FROM devices
		WHERE user_id = $1
			AND active
			AND token <> ''
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tokens, nil
}

// AllActiveTokens returns every active push token regardless of owner.
// Used by the new-scenario broadcast.
func (r *DeviceRepository) AllActiveTokens(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT token
		FROM devices
		WHERE active
			AND token <> ''
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return tokens, nil
}
