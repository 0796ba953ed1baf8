package database

import (
	"time"

	"gorm.io/gorm"
)

// Conversion is one processed VGM file
type Conversion struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	SourcePath   string    `gorm:"index;not null" json:"source_path"`
	Chips        string    `gorm:"size:64" json:"chips"`         // Comma-separated source chips
	CommandBytes int       `gorm:"not null" json:"command_bytes"` // Finalized image size
	PCMBlocks    int       `gorm:"default:0" json:"pcm_blocks"`
	PCMBytes     int       `gorm:"default:0" json:"pcm_bytes"`
	RewrotePCM   bool      `json:"rewrote_pcm"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Conversion
func (Conversion) TableName() string {
	return "conversions"
}

// BeforeCreate hook to ensure CreatedAt is set
func (c *Conversion) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	return nil
}
