package database

import "gorm.io/gorm"

// ConversionRepository handles conversion log operations
type ConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository creates a new conversion repository
func NewConversionRepository(db *gorm.DB) *ConversionRepository {
	return &ConversionRepository{db: db}
}

// Create adds a conversion record
func (r *ConversionRepository) Create(c *Conversion) error {
	return r.db.Create(c).Error
}

// GetRecent retrieves the most recent N conversions
func (r *ConversionRepository) GetRecent(limit int) ([]Conversion, error) {
	var conversions []Conversion
	err := r.db.Order("created_at DESC").Limit(limit).Find(&conversions).Error
	return conversions, err
}

// GetBySourcePath retrieves conversions of a specific file
func (r *ConversionRepository) GetBySourcePath(path string, limit int) ([]Conversion, error) {
	var conversions []Conversion
	err := r.db.Where("source_path = ?", path).
		Order("created_at DESC").
		Limit(limit).
		Find(&conversions).Error
	return conversions, err
}
