package schema

import (
	"time"
)

// AthleteClass represents the athlete_classes table - one row per registered
// athlete. The primary key is assigned by the identifier allocator, not by
// the database.
type AthleteClass struct {
	// ID is the allocated class id (identity, never reused)
	ID uint64 `gorm:"column:id;primaryKey"`
	// Name is the athlete's full name
	Name string `gorm:"column:name;not null;type:text"`
	// HeightMM is the athlete's height in millimeters
	HeightMM uint32 `gorm:"column:height_mm;not null"`
	// WeightGrams is the athlete's weight in grams
	WeightGrams uint32 `gorm:"column:weight_grams;not null"`
	// PhotoRef is an optional hex content hash of the athlete's photo
	PhotoRef *string `gorm:"column:photo_ref;type:text"`
	// MetadataHash is the canonical content hash of the registration
	// metadata; the unique index is what enforces registry uniqueness
	MetadataHash string `gorm:"column:metadata_hash;not null;uniqueIndex;type:text"`
	// CardsMinted records whether the card population has been created.
	// The mint path refuses a class already flagged.
	CardsMinted bool `gorm:"column:cards_minted;not null;default:false"`
	// CreatedAt is the timestamp when this class was registered
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the AthleteClass model
func (AthleteClass) TableName() string {
	return "athlete_classes"
}
