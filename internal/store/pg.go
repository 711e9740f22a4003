package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// classCounterKey is the key_value_store key holding the class-id counter
const classCounterKey = "class_id_counter"

// Attribute names. The set is closed; the typed accessors below are the
// only way in or out of the attribute tables.
const (
	attrPrice       = "price"
	attrTotalShares = "total_shares"
	attrTier        = "tier"
	attrViews       = "views"
	attrVotes       = "votes"

	classAttrName     = "name"
	classAttrHeightMM = "height_mm"
	classAttrWeightG  = "weight_grams"
	classAttrPhoto    = "photo"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the database schema for all models
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.KeyValueStore{},
		&schema.AthleteClass{},
		&schema.ClassAttribute{},
		&schema.CardAttribute{},
		&schema.CardClass{},
		&schema.Card{},
		&schema.Account{},
	)
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// conn returns the connection for ctx, joining an ambient transaction if open
func (s *pgStore) conn(ctx context.Context) *gorm.DB {
	return Conn(ctx, s.db)
}

// Transact runs fn inside a single database transaction
func (s *pgStore) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		// Already inside a transaction, join it
		return fn(ctx)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}

// =============================================================================
// Allocator
// =============================================================================

// NextClassID increments and persists the class-id counter and returns the
// new id. Absent counter means no class has been registered yet; the first
// issued id is 1.
func (s *pgStore) NextClassID(ctx context.Context) (domain.ClassID, error) {
	var current uint64

	var kv schema.KeyValueStore
	err := s.conn(ctx).Where("key = ?", classCounterKey).First(&kv).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		current = 0
	case err != nil:
		return 0, fmt.Errorf("failed to get class counter: %w", err)
	default:
		current, err = strconv.ParseUint(kv.Value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse class counter: %w", err)
		}
	}

	if current == math.MaxUint64 {
		return 0, domain.ErrIDSpaceExhausted
	}
	next := current + 1

	save := schema.KeyValueStore{
		Key:   classCounterKey,
		Value: strconv.FormatUint(next, 10),
	}
	if err := s.conn(ctx).Save(&save).Error; err != nil {
		return 0, fmt.Errorf("failed to persist class counter: %w", err)
	}

	return domain.ClassID(next), nil
}

// =============================================================================
// Registry
// =============================================================================

// CreateClass inserts a registered athlete class
func (s *pgStore) CreateClass(ctx context.Context, class *schema.AthleteClass) error {
	err := s.conn(ctx).Create(class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrAthleteAlreadyExists
		}
		return fmt.Errorf("failed to create athlete class: %w", err)
	}
	return nil
}

// GetClassByID retrieves a class by its id
func (s *pgStore) GetClassByID(ctx context.Context, id domain.ClassID) (*schema.AthleteClass, error) {
	var class schema.AthleteClass
	err := s.conn(ctx).Where("id = ?", uint64(id)).First(&class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get athlete class: %w", err)
	}
	return &class, nil
}

// GetClassByMetadataHash retrieves a class by its metadata content hash
func (s *pgStore) GetClassByMetadataHash(ctx context.Context, hash string) (*schema.AthleteClass, error) {
	var class schema.AthleteClass
	err := s.conn(ctx).Where("metadata_hash = ?", hash).First(&class).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get athlete class by hash: %w", err)
	}
	return &class, nil
}

// ListClasses retrieves registered classes ordered by id
func (s *pgStore) ListClasses(ctx context.Context, limit, offset int) ([]*schema.AthleteClass, uint64, error) {
	var total int64
	if err := s.conn(ctx).Model(&schema.AthleteClass{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count athlete classes: %w", err)
	}

	var classes []*schema.AthleteClass
	err := s.conn(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&classes).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list athlete classes: %w", err)
	}

	return classes, uint64(total), nil
}

// MarkCardsMinted flips the cards_minted flag for a class
func (s *pgStore) MarkCardsMinted(ctx context.Context, id domain.ClassID) error {
	result := s.conn(ctx).
		Model(&schema.AthleteClass{}).
		Where("id = ?", uint64(id)).
		Update("cards_minted", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark cards minted: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrClassNotFound
	}
	return nil
}

// =============================================================================
// Attribute store
// =============================================================================

// setCardAttr upserts one card-scoped attribute record
func (s *pgStore) setCardAttr(ctx context.Context, id domain.ClassID, instance domain.InstanceID, attr, value string) error {
	record := schema.CardAttribute{
		ClassID:    uint64(id),
		InstanceID: uint32(instance),
		Attribute:  attr,
		Value:      value,
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}, {Name: "instance_id"}, {Name: "attribute"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to set card attribute %q: %w", attr, err)
	}
	return nil
}

// getCardAttr reads one card-scoped attribute record; ok=false when absent
func (s *pgStore) getCardAttr(ctx context.Context, id domain.ClassID, instance domain.InstanceID, attr string) (string, bool, error) {
	var record schema.CardAttribute
	err := s.conn(ctx).
		Where("class_id = ? AND instance_id = ? AND attribute = ?", uint64(id), uint32(instance), attr).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get card attribute %q: %w", attr, err)
	}
	return record.Value, true, nil
}

// mandatoryCardAttr reads a card attribute that must have been initialized
// at mint time; an absent record indicates corruption, never a default.
func (s *pgStore) mandatoryCardAttr(ctx context.Context, id domain.ClassID, instance domain.InstanceID, attr string) (string, error) {
	value, ok, err := s.getCardAttr(ctx, id, instance, attr)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s for card %d/%d", domain.ErrAttributeMissing, attr, id, instance)
	}
	return value, nil
}

// SetPrice writes the card's price; nil deletes the listing
func (s *pgStore) SetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID, price *decimal.Decimal) error {
	if price == nil {
		err := s.conn(ctx).
			Where("class_id = ? AND instance_id = ? AND attribute = ?", uint64(id), uint32(instance), attrPrice).
			Delete(&schema.CardAttribute{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear card price: %w", err)
		}
		return nil
	}
	return s.setCardAttr(ctx, id, instance, attrPrice, price.String())
}

// GetPrice reads the card's price; nil means not for sale
func (s *pgStore) GetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*decimal.Decimal, error) {
	value, ok, err := s.getCardAttr(ctx, id, instance, attrPrice)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse card price: %w", err)
	}
	return &price, nil
}

func (s *pgStore) SetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID, shares uint32) error {
	return s.setCardAttr(ctx, id, instance, attrTotalShares, formatUint32(shares))
}

func (s *pgStore) GetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	value, err := s.mandatoryCardAttr(ctx, id, instance, attrTotalShares)
	if err != nil {
		return 0, err
	}
	return parseUint32(value, attrTotalShares)
}

func (s *pgStore) SetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID, tier domain.Tier) error {
	return s.setCardAttr(ctx, id, instance, attrTier, string(tier))
}

func (s *pgStore) GetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Tier, error) {
	value, err := s.mandatoryCardAttr(ctx, id, instance, attrTier)
	if err != nil {
		return "", err
	}
	tier := domain.Tier(value)
	if !domain.IsValidTier(tier) {
		return "", fmt.Errorf("failed to decode tier %q for card %d/%d", value, id, instance)
	}
	return tier, nil
}

func (s *pgStore) SetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID, views uint32) error {
	return s.setCardAttr(ctx, id, instance, attrViews, formatUint32(views))
}

func (s *pgStore) GetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	value, err := s.mandatoryCardAttr(ctx, id, instance, attrViews)
	if err != nil {
		return 0, err
	}
	return parseUint32(value, attrViews)
}

func (s *pgStore) SetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID, votes uint32) error {
	return s.setCardAttr(ctx, id, instance, attrVotes, formatUint32(votes))
}

func (s *pgStore) GetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error) {
	value, err := s.mandatoryCardAttr(ctx, id, instance, attrVotes)
	if err != nil {
		return 0, err
	}
	return parseUint32(value, attrVotes)
}

// CardAttributes aggregates the full attribute record of one card
func (s *pgStore) CardAttributes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*domain.CardAttributes, error) {
	price, err := s.GetPrice(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	shares, err := s.GetTotalShares(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	tier, err := s.GetTier(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	views, err := s.GetViews(ctx, id, instance)
	if err != nil {
		return nil, err
	}
	votes, err := s.GetVotes(ctx, id, instance)
	if err != nil {
		return nil, err
	}

	return &domain.CardAttributes{
		Price:       price,
		TotalShares: shares,
		Tier:        tier,
		Views:       views,
		Votes:       votes,
	}, nil
}

// setClassAttr upserts one class-scoped attribute record
func (s *pgStore) setClassAttr(ctx context.Context, id domain.ClassID, attr, value string) error {
	record := schema.ClassAttribute{
		ClassID:   uint64(id),
		Attribute: attr,
		Value:     value,
	}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_id"}, {Name: "attribute"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to set class attribute %q: %w", attr, err)
	}
	return nil
}

// classAttr reads a mandatory class attribute
func (s *pgStore) classAttr(ctx context.Context, id domain.ClassID, attr string) (string, bool, error) {
	var record schema.ClassAttribute
	err := s.conn(ctx).
		Where("class_id = ? AND attribute = ?", uint64(id), attr).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get class attribute %q: %w", attr, err)
	}
	return record.Value, true, nil
}

// SetClassAttributes writes the class-level attribute records
func (s *pgStore) SetClassAttributes(ctx context.Context, id domain.ClassID, meta domain.AthleteMetadata) error {
	if err := s.setClassAttr(ctx, id, classAttrName, meta.Name); err != nil {
		return err
	}
	if err := s.setClassAttr(ctx, id, classAttrHeightMM, formatUint32(meta.Height.Millimeters)); err != nil {
		return err
	}
	if err := s.setClassAttr(ctx, id, classAttrWeightG, formatUint32(meta.Weight.Grams)); err != nil {
		return err
	}
	if meta.Photo != nil {
		if err := s.setClassAttr(ctx, id, classAttrPhoto, string(*meta.Photo)); err != nil {
			return err
		}
	}
	return nil
}

// ClassAttributes reads back the full class-level attribute record
func (s *pgStore) ClassAttributes(ctx context.Context, id domain.ClassID) (*domain.AthleteMetadata, error) {
	name, ok, err := s.classAttr(ctx, id, classAttrName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s for class %d", domain.ErrAttributeMissing, classAttrName, id)
	}

	heightRaw, ok, err := s.classAttr(ctx, id, classAttrHeightMM)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s for class %d", domain.ErrAttributeMissing, classAttrHeightMM, id)
	}
	height, err := parseUint32(heightRaw, classAttrHeightMM)
	if err != nil {
		return nil, err
	}

	weightRaw, ok, err := s.classAttr(ctx, id, classAttrWeightG)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s for class %d", domain.ErrAttributeMissing, classAttrWeightG, id)
	}
	weight, err := parseUint32(weightRaw, classAttrWeightG)
	if err != nil {
		return nil, err
	}

	meta := domain.AthleteMetadata{
		Name:   name,
		Height: domain.HeightFromMillimeters(height),
		Weight: domain.WeightFromGrams(weight),
	}

	photoRaw, ok, err := s.classAttr(ctx, id, classAttrPhoto)
	if err != nil {
		return nil, err
	}
	if ok {
		photo := domain.PhotoRef(photoRaw)
		meta.Photo = &photo
	}

	return &meta, nil
}

func formatUint32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func parseUint32(value, attr string) (uint32, error) {
	v, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s attribute: %w", attr, err)
	}
	return uint32(v), nil
}
