package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ClassID identifies a registered athlete. Allocated once, never reused.
type ClassID uint64

// InstanceID identifies a single card within a class. Assigned contiguously
// starting at 0 during the mint.
type InstanceID uint32

// Account is a value-ledger / asset-ledger account address.
type Account string

// Tier is the rarity bucket of a card, fixed at mint time by instance index.
type Tier string

const (
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// Tier population per class. Instances [0,100) are Silver, [100,140) Gold,
// [140,150) Platinum. These counts are contract, not configuration.
const (
	SilverCount   = 100
	GoldCount     = 40
	PlatinumCount = 10
	CardsPerClass = SilverCount + GoldCount + PlatinumCount
)

// TierForInstance returns the tier assigned to an instance index at mint time.
func TierForInstance(id InstanceID) Tier {
	switch {
	case id < SilverCount:
		return TierSilver
	case id < SilverCount+GoldCount:
		return TierGold
	default:
		return TierPlatinum
	}
}

// IsValidTier checks if a tier is one of the known rarity buckets
func IsValidTier(t Tier) bool {
	return t == TierSilver || t == TierGold || t == TierPlatinum
}

// Height is an athlete's height stored as integer millimeters.
type Height struct {
	Millimeters uint32 `json:"millimeters"`
}

// HeightFromMillimeters creates a Height from a millimeter value
func HeightFromMillimeters(mm uint32) Height {
	return Height{Millimeters: mm}
}

func (h Height) Meters() float64 {
	return float64(h.Millimeters) / 1000.0
}

func (h Height) Inches() float64 {
	return float64(h.Millimeters) / 25.4
}

// Weight is an athlete's weight stored as integer grams.
type Weight struct {
	Grams uint32 `json:"grams"`
}

// WeightFromGrams creates a Weight from a gram value
func WeightFromGrams(g uint32) Weight {
	return Weight{Grams: g}
}

func (w Weight) Kilograms() float64 {
	return float64(w.Grams) / 1000.0
}

func (w Weight) Pounds() float64 {
	return float64(w.Grams) / 453.592
}

// PhotoRef is a hex-encoded 256-bit content hash referencing a photo held in
// off-chain storage. The photo bytes themselves are never stored here.
type PhotoRef string

var photoRefPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Valid checks if the reference is a well-formed lowercase hex digest
func (p PhotoRef) Valid() bool {
	return photoRefPattern.MatchString(string(p))
}

// AthleteMetadata is the registration payload for a new athlete class.
// Two registrations with byte-identical metadata refer to the same athlete
// and the second one is rejected.
type AthleteMetadata struct {
	Name   string    `json:"name"`
	Height Height    `json:"height"`
	Weight Weight    `json:"weight"`
	Photo  *PhotoRef `json:"photo,omitempty"`
}

// Hash returns the canonical content hash of the metadata, used as the
// registry's uniqueness key. The encoding is length-prefixed so that
// ("ab", photo "c") and ("a", photo "bc") cannot collide.
func (m AthleteMetadata) Hash() string {
	h := sha256.New()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], uint64(len(m.Name)))
	h.Write(buf[:])
	h.Write([]byte(m.Name))

	binary.BigEndian.PutUint32(buf[:4], m.Height.Millimeters)
	h.Write(buf[:4])
	binary.BigEndian.PutUint32(buf[:4], m.Weight.Grams)
	h.Write(buf[:4])

	if m.Photo != nil {
		h.Write([]byte{1})
		h.Write([]byte(*m.Photo))
	} else {
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Validate checks the metadata is acceptable for registration
func (m AthleteMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.Height.Millimeters == 0 {
		return fmt.Errorf("height is required")
	}
	if m.Weight.Grams == 0 {
		return fmt.Errorf("weight is required")
	}
	if m.Photo != nil && !m.Photo.Valid() {
		return fmt.Errorf("photo reference must be a 64-character hex digest")
	}
	return nil
}

// CardAttributes is the full attribute record of a single card instance.
// Ownership is not part of this record; the asset ledger is the single
// source of truth for who owns a card.
type CardAttributes struct {
	// Price is the listed sale price. Nil means the card is not for sale.
	Price       *decimal.Decimal `json:"price,omitempty"`
	TotalShares uint32           `json:"total_shares"`
	Tier        Tier             `json:"tier"`
	Views       uint32           `json:"views"`
	Votes       uint32           `json:"votes"`
}

// AttestationEvent is the oracle's self-submitted signal for one card.
// Published to JetStream by the oracle scheduler and consumed by the
// attestation bridge; the signature covers the payload and is verified at
// the worker boundary, never by the intake itself.
type AttestationEvent struct {
	EventID    string     `json:"event_id"` // ULID, used for workflow dedup
	ClassID    ClassID    `json:"class_id"`
	InstanceID InstanceID `json:"instance_id"`
	Views      uint32     `json:"views"`
	Votes      uint32     `json:"votes"`
	Signature  string     `json:"signature"`
	Timestamp  time.Time  `json:"timestamp"`
}
