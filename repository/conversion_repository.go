package repository

import (
	"fmt"

	"gorm.io/gorm"

	"mp4tomp3/model"
)

// ConversionRepository records finished conversions for the history endpoint.
type ConversionRepository interface {
	Record(rec *model.ConversionRecord) error
	Recent(limit int) ([]model.ConversionRecord, error)
}

// GormConversionRepository is the MySQL-backed implementation.
type GormConversionRepository struct {
	db *gorm.DB
}

// NewGormConversionRepository creates a repository on the given gorm handle.
func NewGormConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

func (r *GormConversionRepository) Record(rec *model.ConversionRecord) error {
	if err := r.db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to record conversion %s: %w", rec.JobID, err)
	}
	return nil
}

func (r *GormConversionRepository) Recent(limit int) ([]model.ConversionRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []model.ConversionRecord
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversion history: %w", err)
	}
	return recs, nil
}

var _ ConversionRepository = (*GormConversionRepository)(nil)
