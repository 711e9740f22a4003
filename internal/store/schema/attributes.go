package schema

import "time"

// ClassAttribute represents the class_attributes table - one typed value per
// (class, attribute) pair. Values are text-encoded; the attribute store owns
// the encode/decode contract.
type ClassAttribute struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID   uint64    `gorm:"column:class_id;not null;uniqueIndex:idx_class_attributes_key,priority:1"`
	Attribute string    `gorm:"column:attribute;not null;type:text;uniqueIndex:idx_class_attributes_key,priority:2"`
	Value     string    `gorm:"column:value;not null;type:text"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (ClassAttribute) TableName() string {
	return "class_attributes"
}

// CardAttribute represents the card_attributes table - one typed value per
// (class, instance, attribute) triple.
type CardAttribute struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ClassID    uint64    `gorm:"column:class_id;not null;uniqueIndex:idx_card_attributes_key,priority:1"`
	InstanceID uint32    `gorm:"column:instance_id;not null;uniqueIndex:idx_card_attributes_key,priority:2"`
	Attribute  string    `gorm:"column:attribute;not null;type:text;uniqueIndex:idx_card_attributes_key,priority:3"`
	Value      string    `gorm:"column:value;not null;type:text"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

func (CardAttribute) TableName() string {
	return "card_attributes"
}
