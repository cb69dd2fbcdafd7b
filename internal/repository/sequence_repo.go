package repository

import (
	"context"

	"gorm.io/gorm"
)

// SequenceRepository per-year certificate number counters.
type SequenceRepository interface {
	// Next atomically increments and returns the counter for year. Call it
	// inside the issuing transaction so a rollback releases the number.
	Next(ctx context.Context, year int) (int64, error)
}

type sequenceRepo struct {
	db *gorm.DB
}

func NewSequenceRepo(db *gorm.DB) SequenceRepository {
	return &sequenceRepo{db: db}
}

func (r *sequenceRepo) Next(ctx context.Context, year int) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO certificate_sequences (year, last_value) VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = certificate_sequences.last_value + 1
		RETURNING last_value`, year).Scan(&next).Error
	return next, err
}
