package ledger

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

type pgAssetLedger struct {
	db *gorm.DB
}

// NewPGAssetLedger creates a Postgres-backed asset ledger. Operations join
// the ambient store transaction when one is open on the context.
func NewPGAssetLedger(db *gorm.DB) AssetLedger {
	return &pgAssetLedger{db: db}
}

func (l *pgAssetLedger) conn(ctx context.Context) *gorm.DB {
	return store.Conn(ctx, l.db)
}

func (l *pgAssetLedger) CreateClass(ctx context.Context, id domain.ClassID, admin domain.Account) error {
	record := schema.CardClass{
		ClassID: uint64(id),
		Admin:   string(admin),
		Owner:   string(admin),
	}
	if err := l.conn(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to create card class %d: %w", id, err)
	}
	return nil
}

func (l *pgAssetLedger) MintInstance(ctx context.Context, id domain.ClassID, instance domain.InstanceID, owner domain.Account) error {
	record := schema.Card{
		ClassID:    uint64(id),
		InstanceID: uint32(instance),
		Owner:      string(owner),
	}
	if err := l.conn(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to mint card %d/%d: %w", id, instance, err)
	}
	return nil
}

func (l *pgAssetLedger) OwnerOf(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Account, error) {
	var card schema.Card
	err := l.conn(ctx).
		Where("class_id = ? AND instance_id = ?", uint64(id), uint32(instance)).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrCardHasNoOwner
		}
		return "", fmt.Errorf("failed to resolve owner of card %d/%d: %w", id, instance, err)
	}
	return domain.Account(card.Owner), nil
}

// Transfer reassigns ownership. The update is conditioned on the current
// owner so a stale caller cannot move a card that changed hands under it.
func (l *pgAssetLedger) Transfer(ctx context.Context, id domain.ClassID, instance domain.InstanceID, from, to domain.Account) error {
	result := l.conn(ctx).
		Model(&schema.Card{}).
		Where("class_id = ? AND instance_id = ? AND owner = ?", uint64(id), uint32(instance), string(from)).
		Update("owner", string(to))
	if result.Error != nil {
		return fmt.Errorf("failed to transfer card %d/%d: %w", id, instance, result.Error)
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing card from a stale owner
		if _, err := l.OwnerOf(ctx, id, instance); err != nil {
			return err
		}
		return domain.ErrMustBeCardOwner
	}
	return nil
}

func (l *pgAssetLedger) CardsOwnedBy(ctx context.Context, owner domain.Account) ([]*schema.Card, error) {
	var cards []*schema.Card
	err := l.conn(ctx).
		Where("owner = ?", string(owner)).
		Order("class_id ASC, instance_id ASC").
		Find(&cards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cards owned by %s: %w", owner, err)
	}
	return cards, nil
}
