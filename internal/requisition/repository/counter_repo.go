package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// CounterRepository hands out monotonically increasing sequence values.
type CounterRepository struct {
	db *gorm.DB
}

func NewCounterRepository(db *gorm.DB) *CounterRepository {
	return &CounterRepository{db: db}
}

// NextValue increments the named counter and returns the new value in one
// statement, creating the counter on first use.
func (r *CounterRepository) NextValue(ctx context.Context, name string) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO counters (name, seq) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET seq = counters.seq + 1
		 RETURNING seq`, name,
	).Scan(&seq).Error
	if err != nil {
		return 0, fmt.Errorf("next value for %s: %w", name, err)
	}
	return seq, nil
}
