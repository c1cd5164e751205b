package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"studiobook/internal/apperr"
	"studiobook/internal/model"
	"studiobook/internal/outbox"
	"studiobook/libs/db"
)

type PhotoRequestRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPhotoRequestRepository(pool *db.Pool, outboxRepo *outbox.Repository) *PhotoRequestRepository {
	return &PhotoRequestRepository{pool: pool, outbox: outboxRepo}
}

const photoRequestColumns = `
	id, client_id, COALESCE(appointment_id::text, ''), status, COALESCE(download_url, ''), created_at, updated_at`

func scanPhotoRequest(row pgx.Row) (model.PhotoRequest, error) {
	var p model.PhotoRequest
	err := row.Scan(
		&p.ID,
		&p.ClientID,
		&p.AppointmentID,
		&p.Status,
		&p.DownloadURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

func (r *PhotoRequestRepository) Create(ctx context.Context, pr *model.PhotoRequest) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO photo_requests (client_id, appointment_id, status)
		VALUES ($1, NULLIF($2, '')::uuid, $3)
		RETURNING id
	`, pr.ClientID, pr.AppointmentID, pr.Status).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PhotoRequestRepository) Get(ctx context.Context, id string) (model.PhotoRequest, error) {
	pr, err := scanPhotoRequest(r.pool.QueryRow(ctx, `
		SELECT`+photoRequestColumns+`
		FROM photo_requests
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PhotoRequest{}, apperr.New(apperr.NotFound, "photo request not found")
		}
		return model.PhotoRequest{}, err
	}
	return pr, nil
}

// PhotoRequestPatch carries optional field updates; nil means unchanged.
type PhotoRequestPatch struct {
	Status      *string
	DownloadURL *string
}

// Update applies the patch and, when the request transitions into the
// delivered state, writes a delivered event to the outbox in the same
// transaction.
func (r *PhotoRequestRepository) Update(ctx context.Context, id string, patch PhotoRequestPatch) (model.PhotoRequest, model.PhotoRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.PhotoRequest{}, model.PhotoRequest{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanPhotoRequest(tx.QueryRow(ctx, `
		SELECT`+photoRequestColumns+`
		FROM photo_requests
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PhotoRequest{}, model.PhotoRequest{}, apperr.New(apperr.NotFound, "photo request not found")
		}
		return model.PhotoRequest{}, model.PhotoRequest{}, err
	}

	after, err := scanPhotoRequest(tx.QueryRow(ctx, `
		UPDATE photo_requests
		SET status = COALESCE($2, status),
			download_url = COALESCE($3, download_url),
			updated_at = now()
		WHERE id = $1
		RETURNING`+photoRequestColumns,
		id, patch.Status, patch.DownloadURL))
	if err != nil {
		return model.PhotoRequest{}, model.PhotoRequest{}, err
	}

	if before.Status != model.PhotoDelivered && after.Status == model.PhotoDelivered {
		payload, err := json.Marshal(map[string]any{
			"request_id":   after.ID,
			"client_id":    after.ClientID,
			"download_url": after.DownloadURL,
		})
		if err != nil {
			return model.PhotoRequest{}, model.PhotoRequest{}, err
		}
		if err := r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: "photo_request",
			AggregateID:   after.ID,
			EventType:     outbox.TopicPhotoRequestDelivered,
			Payload:       payload,
		}); err != nil {
			return model.PhotoRequest{}, model.PhotoRequest{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return model.PhotoRequest{}, model.PhotoRequest{}, err
	}
	return before, after, nil
}

// List returns photo requests, optionally narrowed to one client.
func (r *PhotoRequestRepository) List(ctx context.Context, clientID string, limit int) ([]model.PhotoRequest, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+photoRequestColumns+`
		FROM photo_requests
		WHERE $1 = '' OR client_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []model.PhotoRequest
	for rows.Next() {
		pr, err := scanPhotoRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, pr)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return requests, nil
}
