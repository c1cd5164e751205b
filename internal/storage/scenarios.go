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

type ScenarioRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewScenarioRepository(pool *db.Pool, outboxRepo *outbox.Repository) *ScenarioRepository {
	return &ScenarioRepository{pool: pool, outbox: outboxRepo}
}

const scenarioColumns = `
	id, name, COALESCE(category, ''), COALESCE(description, ''), images, session_minutes, created_at, updated_at`

func scanScenario(row pgx.Row) (model.Scenario, error) {
	var s model.Scenario
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Category,
		&s.Description,
		&s.Images,
		&s.SessionMinutes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// Create inserts the scenario and a scenario-created event in one
// transaction; the event drives the "new scenario" broadcast.
func (r *ScenarioRepository) Create(ctx context.Context, sc *model.Scenario) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO scenarios (name, category, description, images, session_minutes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, sc.Name, sc.Category, sc.Description, sc.Images, sc.SessionMinutes).Scan(&id)
	if err != nil {
		return "", err
	}

	image := ""
	if len(sc.Images) > 0 {
		image = sc.Images[0]
	}
	payload, err := json.Marshal(map[string]any{
		"scenario_id": id,
		"name":        sc.Name,
		"category":    sc.Category,
		"image":       image,
	})
	if err != nil {
		return "", err
	}
	if err := r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "scenario",
		AggregateID:   id,
		EventType:     outbox.TopicScenarioCreated,
		Payload:       payload,
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScenarioRepository) Get(ctx context.Context, id string) (model.Scenario, error) {
	sc, err := scanScenario(r.pool.QueryRow(ctx, `
		SELECT`+scenarioColumns+`
		FROM scenarios
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Scenario{}, apperr.New(apperr.NotFound, "scenario not found")
		}
		return model.Scenario{}, err
	}
	return sc, nil
}

// ScenarioPatch carries optional field updates; nil means leave unchanged.
type ScenarioPatch struct {
	Name           *string
	Category       *string
	Description    *string
	Images         *[]string
	SessionMinutes *int
}

func (r *ScenarioRepository) Update(ctx context.Context, id string, patch ScenarioPatch) (model.Scenario, error) {
	sc, err := scanScenario(r.pool.QueryRow(ctx, `
		UPDATE scenarios
		SET name = COALESCE($2, name),
			category = COALESCE($3, category),
			description = COALESCE($4, description),
			images = COALESCE($5, images),
			session_minutes = COALESCE($6, session_minutes),
			updated_at = now()
		WHERE id = $1
		RETURNING`+scenarioColumns,
		id, patch.Name, patch.Category, patch.Description, patch.Images, patch.SessionMinutes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Scenario{}, apperr.New(apperr.NotFound, "scenario not found")
		}
		return model.Scenario{}, err
	}
	return sc, nil
}

func (r *ScenarioRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scenarios WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "scenario not found")
	}
	return nil
}

func (r *ScenarioRepository) List(ctx context.Context, category string, limit int, afterID string) ([]model.Scenario, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+scenarioColumns+`
		FROM scenarios
		WHERE ($1 = '' OR category = $1)
			AND ($3 = '' OR (created_at, id) < (SELECT created_at, id FROM scenarios WHERE id::text = $3))
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, category, limit, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []model.Scenario
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, sc)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return scenarios, nil
}
