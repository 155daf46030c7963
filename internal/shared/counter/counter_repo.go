package counter

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const TypeShift = "SHIFT"

//go:generate mockgen -destination=mock/counter_repo_mock.go -package=mock . Repository
type Repository interface {
	GetNextValue(ctx context.Context, ownerID string, counterType string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// GetNextValue bumps the per-owner sequence in a single UPSERT so
// concurrent callers never observe the same value.
func (r *repository) GetNextValue(ctx context.Context, ownerID string, counterType string) (int64, error) {
	var nextValue int64

	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO entity_counters (owner_id, counter_type, last_value, updated_at)
		VALUES (?, ?, 1, now())
		ON CONFLICT (owner_id, counter_type) DO UPDATE
		SET last_value = entity_counters.last_value + 1, updated_at = now()
		RETURNING last_value
	`, ownerID, counterType).Scan(&nextValue).Error

	if err != nil {
		return 0, err
	}

	return nextValue, nil
}

func ShiftReference(n int64) string {
	return fmt.Sprintf("SHF-%06d", n)
}
