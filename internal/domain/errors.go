package domain

import "errors"

var (
	// ErrAthleteAlreadyExists is returned when registering metadata that is
	// byte-identical to an already registered athlete class
	ErrAthleteAlreadyExists = errors.New("athlete already exists")

	// ErrIDSpaceExhausted is returned when the class-id counter would wrap
	ErrIDSpaceExhausted = errors.New("class id space exhausted")

	// ErrClassNotFound is returned when a class id does not exist
	ErrClassNotFound = errors.New("athlete class not found")

	// ErrCardsAlreadyMinted is returned when minting a class whose card
	// population already exists
	ErrCardsAlreadyMinted = errors.New("cards already minted for class")

	// ErrCardHasNoOwner is returned when the asset ledger reports no owner
	// for a card expected to have one
	ErrCardHasNoOwner = errors.New("card does not have an owner")

	// ErrMustBeCardOwner is returned when a caller attempts an owner-only
	// action on a card it does not own
	ErrMustBeCardOwner = errors.New("caller must be the card owner")

	// ErrCardNotForSale is returned when purchasing a card with no price set
	ErrCardNotForSale = errors.New("card is not for sale")

	// ErrInsufficientFunds is returned by the value ledger when the sender
	// cannot cover a transfer
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when a value-ledger account does not exist
	ErrAccountNotFound = errors.New("account not found")

	// ErrAttributeMissing is returned when a mandatory attribute was never
	// initialized. This indicates data corruption and is never defaulted over.
	ErrAttributeMissing = errors.New("card attribute does not exist")
)
