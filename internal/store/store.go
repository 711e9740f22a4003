package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// Allocator issues class ids. Ids are strictly increasing by 1 per
// successful allocation; the counter persists across restarts.
type Allocator interface {
	// NextClassID increments and persists the class-id counter and returns
	// the new id. The first issued id is 1. Returns
	// domain.ErrIDSpaceExhausted if the counter would wrap, leaving it
	// unchanged.
	NextClassID(ctx context.Context) (domain.ClassID, error)
}

// Registry maps allocated class ids to athlete metadata and enforces
// content uniqueness via the metadata hash index.
type Registry interface {
	// CreateClass inserts a registered athlete class. Returns
	// domain.ErrAthleteAlreadyExists if a class with the same metadata
	// hash is already registered.
	CreateClass(ctx context.Context, class *schema.AthleteClass) error
	// GetClassByID retrieves a class by its id; nil when absent
	GetClassByID(ctx context.Context, id domain.ClassID) (*schema.AthleteClass, error)
	// GetClassByMetadataHash retrieves a class by metadata hash; nil when absent
	GetClassByMetadataHash(ctx context.Context, hash string) (*schema.AthleteClass, error)
	// ListClasses retrieves registered classes ordered by id
	ListClasses(ctx context.Context, limit, offset int) ([]*schema.AthleteClass, uint64, error)
	// MarkCardsMinted flips the cards_minted flag for a class
	MarkCardsMinted(ctx context.Context, id domain.ClassID) error
}

// AttributeStore is the typed attribute surface over class- and
// card-scoped records. It does nothing beyond encode/decode and existence
// checks; mandatory attributes that were never written surface as
// domain.ErrAttributeMissing.
type AttributeStore interface {
	// SetClassAttributes writes the class-level attribute records
	SetClassAttributes(ctx context.Context, id domain.ClassID, meta domain.AthleteMetadata) error
	// ClassAttributes reads back the full class-level attribute record
	ClassAttributes(ctx context.Context, id domain.ClassID) (*domain.AthleteMetadata, error)

	// SetPrice writes the card's price; nil deletes the listing
	SetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID, price *decimal.Decimal) error
	// GetPrice reads the card's price; nil means not for sale
	GetPrice(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*decimal.Decimal, error)

	SetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID, shares uint32) error
	GetTotalShares(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error)

	SetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID, tier domain.Tier) error
	GetTier(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Tier, error)

	SetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID, views uint32) error
	GetViews(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error)

	SetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID, votes uint32) error
	GetVotes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (uint32, error)

	// CardAttributes aggregates the full attribute record of one card
	CardAttributes(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*domain.CardAttributes, error)
}

// Store is the persistence surface consumed by the card core
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	Allocator
	Registry
	AttributeStore

	// Transact runs fn inside a single database transaction. All store and
	// ledger operations performed with the context passed to fn join that
	// transaction; a nested Transact joins the ambient one instead of
	// opening a new transaction.
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}
