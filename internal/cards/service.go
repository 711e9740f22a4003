// Package cards implements the card marketplace state machine: athlete
// registration with the one-shot tiered mint, owner-gated price listing,
// atomic purchase settlement across the value and asset ledgers, and the
// privileged attestation intake. Every public operation runs inside a
// single store transaction.
package cards

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/ledger"
	"github.com/mdaamer248/Athelete/internal/logger"
	"github.com/mdaamer248/Athelete/internal/store"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// Service is the card core. It owns no state of its own; the store and
// the two ledgers are its only collaborators.
type Service struct {
	store  store.Store
	assets ledger.AssetLedger
	funds  ledger.ValueLedger
}

// NewService creates a new card core service
func NewService(s store.Store, assets ledger.AssetLedger, funds ledger.ValueLedger) *Service {
	return &Service{
		store:  s,
		assets: assets,
		funds:  funds,
	}
}

// CardDetail is the read model of a single card
type CardDetail struct {
	ClassID    domain.ClassID        `json:"class_id"`
	InstanceID domain.InstanceID     `json:"instance_id"`
	Owner      domain.Account        `json:"owner"`
	Attributes domain.CardAttributes `json:"attributes"`
}

// RegisterAndMint registers a new athlete class and issues its full card
// population in one transaction. The admin account becomes the initial
// owner of every instance. Returns domain.ErrAthleteAlreadyExists when
// metadata byte-identical to an existing registration is submitted, and
// domain.ErrIDSpaceExhausted when the id space is used up; in both cases
// nothing is persisted.
func (s *Service) RegisterAndMint(ctx context.Context, admin domain.Account, meta domain.AthleteMetadata) (domain.ClassID, error) {
	if admin == "" {
		return 0, fmt.Errorf("admin account is required")
	}
	if err := meta.Validate(); err != nil {
		return 0, fmt.Errorf("invalid athlete metadata: %w", err)
	}

	var classID domain.ClassID
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		hash := meta.Hash()
		existing, err := s.store.GetClassByMetadataHash(ctx, hash)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAthleteAlreadyExists
		}

		classID, err = s.store.NextClassID(ctx)
		if err != nil {
			return err
		}

		class := schema.AthleteClass{
			ID:           uint64(classID),
			Name:         meta.Name,
			HeightMM:     meta.Height.Millimeters,
			WeightGrams:  meta.Weight.Grams,
			MetadataHash: hash,
		}
		if meta.Photo != nil {
			photo := string(*meta.Photo)
			class.PhotoRef = &photo
		}
		if err := s.store.CreateClass(ctx, &class); err != nil {
			return err
		}
		if err := s.store.SetClassAttributes(ctx, classID, meta); err != nil {
			return err
		}

		if err := s.assets.CreateClass(ctx, classID, admin); err != nil {
			return err
		}
		return s.mintPopulation(ctx, &class, admin)
	})
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "Registered athlete class",
		zap.Uint64("class_id", uint64(classID)),
		zap.String("name", meta.Name),
		zap.String("admin", string(admin)))
	return classID, nil
}

// mintPopulation issues every card instance of a class with its initial
// attributes: no price, zero shares, zero views and votes. Refuses a class
// whose population was already created.
func (s *Service) mintPopulation(ctx context.Context, class *schema.AthleteClass, owner domain.Account) error {
	if class.CardsMinted {
		return domain.ErrCardsAlreadyMinted
	}

	for i := 0; i < domain.CardsPerClass; i++ {
		instance := domain.InstanceID(i)
		classID := domain.ClassID(class.ID)

		if err := s.assets.MintInstance(ctx, classID, instance, owner); err != nil {
			return err
		}
		if err := s.store.SetTier(ctx, classID, instance, domain.TierForInstance(instance)); err != nil {
			return err
		}
		if err := s.store.SetTotalShares(ctx, classID, instance, 0); err != nil {
			return err
		}
		if err := s.store.SetViews(ctx, classID, instance, 0); err != nil {
			return err
		}
		if err := s.store.SetVotes(ctx, classID, instance, 0); err != nil {
			return err
		}
	}

	return s.store.MarkCardsMinted(ctx, domain.ClassID(class.ID))
}

// SetPrice lists a card for sale at the given price, or delists it when
// price is nil. Only the card's current owner may call this; anyone else
// gets domain.ErrMustBeCardOwner.
func (s *Service) SetPrice(ctx context.Context, caller domain.Account, id domain.ClassID, instance domain.InstanceID, price *decimal.Decimal) error {
	if price != nil && price.IsNegative() {
		return fmt.Errorf("price must not be negative")
	}

	err := s.store.Transact(ctx, func(ctx context.Context) error {
		owner, err := s.assets.OwnerOf(ctx, id, instance)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrMustBeCardOwner
		}
		return s.store.SetPrice(ctx, id, instance, price)
	})
	if err != nil {
		return err
	}

	if price == nil {
		logger.InfoCtx(ctx, "Delisted card",
			zap.Uint64("class_id", uint64(id)),
			zap.Uint32("instance_id", uint32(instance)))
	} else {
		logger.InfoCtx(ctx, "Listed card",
			zap.Uint64("class_id", uint64(id)),
			zap.Uint32("instance_id", uint32(instance)),
			zap.String("price", price.String()))
	}
	return nil
}

// Purchase buys a listed card for the buyer at its listed price. The value
// transfer, the ownership transfer, and the delisting settle in one
// transaction; any failure leaves balances, ownership, and the listing
// untouched. Returns the price paid.
func (s *Service) Purchase(ctx context.Context, buyer domain.Account, id domain.ClassID, instance domain.InstanceID) (decimal.Decimal, error) {
	if buyer == "" {
		return decimal.Zero, fmt.Errorf("buyer account is required")
	}

	var paid decimal.Decimal
	var seller domain.Account
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		var err error
		seller, err = s.assets.OwnerOf(ctx, id, instance)
		if err != nil {
			return err
		}

		price, err := s.store.GetPrice(ctx, id, instance)
		if err != nil {
			return err
		}
		if price == nil {
			return domain.ErrCardNotForSale
		}
		paid = *price

		if err := s.funds.Transfer(ctx, buyer, seller, paid); err != nil {
			return err
		}
		if err := s.assets.Transfer(ctx, id, instance, seller, buyer); err != nil {
			return err
		}
		// A sold card is no longer for sale; the new owner relists
		// explicitly if they want to.
		return s.store.SetPrice(ctx, id, instance, nil)
	})
	if err != nil {
		return decimal.Zero, err
	}

	logger.InfoCtx(ctx, "Card purchased",
		zap.Uint64("class_id", uint64(id)),
		zap.Uint32("instance_id", uint32(instance)),
		zap.String("seller", string(seller)),
		zap.String("buyer", string(buyer)),
		zap.String("price", paid.String()))
	return paid, nil
}

// RecordSignal overwrites a card's views and votes with the submitted
// values. This is the privileged attestation intake: callers are trusted
// by construction and no signature is checked here; authentication happens
// at the worker boundary before this is ever reached.
func (s *Service) RecordSignal(ctx context.Context, id domain.ClassID, instance domain.InstanceID, views, votes uint32) error {
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		// Reject signals for cards that were never issued
		if _, err := s.assets.OwnerOf(ctx, id, instance); err != nil {
			return err
		}
		if err := s.store.SetViews(ctx, id, instance, views); err != nil {
			return err
		}
		return s.store.SetVotes(ctx, id, instance, votes)
	})
	if err != nil {
		return err
	}

	logger.DebugCtx(ctx, "Recorded attestation signal",
		zap.Uint64("class_id", uint64(id)),
		zap.Uint32("instance_id", uint32(instance)),
		zap.Uint32("views", views),
		zap.Uint32("votes", votes))
	return nil
}

// GetClass retrieves a registered class; domain.ErrClassNotFound when absent
func (s *Service) GetClass(ctx context.Context, id domain.ClassID) (*schema.AthleteClass, error) {
	class, err := s.store.GetClassByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if class == nil {
		return nil, domain.ErrClassNotFound
	}
	return class, nil
}

// ListClasses retrieves registered classes ordered by id
func (s *Service) ListClasses(ctx context.Context, limit, offset int) ([]*schema.AthleteClass, uint64, error) {
	return s.store.ListClasses(ctx, limit, offset)
}

// GetCard retrieves the full read model of one card
func (s *Service) GetCard(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (*CardDetail, error) {
	var detail *CardDetail
	err := s.store.Transact(ctx, func(ctx context.Context) error {
		owner, err := s.assets.OwnerOf(ctx, id, instance)
		if err != nil {
			return err
		}
		attrs, err := s.store.CardAttributes(ctx, id, instance)
		if err != nil {
			return err
		}
		detail = &CardDetail{
			ClassID:    id,
			InstanceID: instance,
			Owner:      owner,
			Attributes: *attrs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

// CardsOwnedBy lists the cards currently held by an account
func (s *Service) CardsOwnedBy(ctx context.Context, owner domain.Account) ([]*schema.Card, error) {
	return s.assets.CardsOwnedBy(ctx, owner)
}

// BalanceOf reads an account's spendable balance
func (s *Service) BalanceOf(ctx context.Context, account domain.Account) (decimal.Decimal, error) {
	return s.funds.BalanceOf(ctx, account)
}

// Deposit credits an account, creating it on first use
func (s *Service) Deposit(ctx context.Context, account domain.Account, amount decimal.Decimal) error {
	if account == "" {
		return fmt.Errorf("account is required")
	}
	return s.funds.Deposit(ctx, account, amount)
}
