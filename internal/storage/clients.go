package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
	"studiobook/libs/db"
)

type ClientRepository struct {
	pool *db.Pool
}

func NewClientRepository(pool *db.Pool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

// Upsert creates or refreshes the caller's profile, keyed by identity uid.
func (r *ClientRepository) Upsert(ctx context.Context, c model.Client) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clients (id, name, phone, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			updated_at = now()
	`, c.ID, c.Name, c.Phone, c.Email)
	return err
}

func (r *ClientRepository) Get(ctx context.Context, id string) (model.Client, error) {
	var c model.Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Client{}, apperr.New(apperr.NotFound, "client not found")
		}
		return model.Client{}, err
	}
	return c, nil
}

// List returns clients matching the optional name search, newest first.
func (r *ClientRepository) List(ctx context.Context, search string, limit int) ([]model.Client, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(email, ''), created_at, updated_at
		FROM clients
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2
	`, search, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		var c model.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return clients, nil
}
