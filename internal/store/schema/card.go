package schema

import "time"

// Card represents the cards table - the asset ledger's ownership record.
// This table is the single source of truth for "who owns instance X of
// class Y"; card attributes never duplicate ownership.
type Card struct {
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// ClassID and InstanceID form the card's composite identity
	ClassID    uint64 `gorm:"column:class_id;not null;uniqueIndex:idx_cards_class_instance,priority:1"`
	InstanceID uint32 `gorm:"column:instance_id;not null;uniqueIndex:idx_cards_class_instance,priority:2"`
	// Owner is the current owner's account address
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// CreatedAt is the timestamp when the card was minted
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last ownership change
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the Card model
func (Card) TableName() string {
	return "cards"
}

// CardClass represents the card_classes table - the asset ledger's class
// resource, created once per athlete class before any instance is minted.
type CardClass struct {
	// ClassID matches the athlete class id
	ClassID uint64 `gorm:"column:class_id;primaryKey"`
	// Admin is the account that administers the class
	Admin string `gorm:"column:admin;not null;type:text"`
	// Owner is the account that initially owns minted instances
	Owner string `gorm:"column:owner;not null;type:text"`
	// CreatedAt is the timestamp when the class resource was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

func (CardClass) TableName() string {
	return "card_classes"
}
