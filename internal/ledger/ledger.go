// Package ledger holds the two external collaborator surfaces of the card
// core: the value ledger that moves funds between accounts and the asset
// ledger that tracks card classes and instance ownership. The card core
// only ever talks to these interfaces; the Postgres implementations in
// this package are the reference backing and join the ambient store
// transaction so a purchase settles atomically across both ledgers.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// ValueLedger moves funds between accounts
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks
type ValueLedger interface {
	// BalanceOf reads the current balance of an account. Unknown accounts
	// read as zero.
	BalanceOf(ctx context.Context, account domain.Account) (decimal.Decimal, error)

	// Deposit credits an account, creating it on first use
	Deposit(ctx context.Context, account domain.Account, amount decimal.Decimal) error

	// Transfer moves amount from one account to another. Returns
	// domain.ErrAccountNotFound when the payer has no account and
	// domain.ErrInsufficientFunds when the payer's balance does not cover
	// the amount. On error no balance changes.
	Transfer(ctx context.Context, from, to domain.Account, amount decimal.Decimal) error
}

// AssetLedger tracks card classes and per-instance ownership. It is the
// single source of truth for who owns a card.
type AssetLedger interface {
	// CreateClass records a new card class under the given admin account
	CreateClass(ctx context.Context, id domain.ClassID, admin domain.Account) error

	// MintInstance records a newly issued card instance owned by owner
	MintInstance(ctx context.Context, id domain.ClassID, instance domain.InstanceID, owner domain.Account) error

	// OwnerOf resolves the current owner of a card. Returns
	// domain.ErrCardHasNoOwner when the instance was never issued.
	OwnerOf(ctx context.Context, id domain.ClassID, instance domain.InstanceID) (domain.Account, error)

	// Transfer reassigns a card from its current owner to a new owner.
	// Returns domain.ErrCardHasNoOwner when the instance was never issued.
	Transfer(ctx context.Context, id domain.ClassID, instance domain.InstanceID, from, to domain.Account) error

	// CardsOwnedBy lists the cards currently held by an account
	CardsOwnedBy(ctx context.Context, owner domain.Account) ([]*schema.Card, error)
}
