package storage

import (
	"context"

	"studiobook/libs/db"
)

// AdminRepository answers administrator membership checks against the
// admins table. It satisfies authz.MembershipStore.
type AdminRepository struct {
	pool *db.Pool
}

func NewAdminRepository(pool *db.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) IsMember(ctx context.Context, uid string) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM admins WHERE user_id = $1)
	`, uid).Scan(&member)
	if err != nil {
		return false, err
	}
	return member, nil
}

func (r *AdminRepository) Add(ctx context.Context, uid string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admins (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, uid)
	return err
}

func (r *AdminRepository) Remove(ctx context.Context, uid string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM admins WHERE user_id = $1`, uid)
	return err
}
