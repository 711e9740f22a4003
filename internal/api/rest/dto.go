package rest

import (
	"time"

	"github.com/mdaamer248/Athelete/internal/cards"
	"github.com/mdaamer248/Athelete/internal/store/schema"
)

// RegisterAthleteRequest creates an athlete class and mints its card
// population. Admin is honored only for API-key callers; JWT callers always
// act as their token subject.
type RegisterAthleteRequest struct {
	Name        string `json:"name" binding:"required"`
	HeightMM    uint32 `json:"height_mm" binding:"required"`
	WeightGrams uint32 `json:"weight_grams" binding:"required"`
	Photo       string `json:"photo,omitempty"`
	Admin       string `json:"admin,omitempty"`
}

type RegisterAthleteResponse struct {
	ClassID     uint64 `json:"class_id"`
	CardsMinted int    `json:"cards_minted"`
}

// SetPriceRequest updates a card's asking price. A null price delists the card.
type SetPriceRequest struct {
	Price *string `json:"price"`
}

type DepositRequest struct {
	Account string `json:"account" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

type ClassResponse struct {
	ClassID      uint64    `json:"class_id"`
	Name         string    `json:"name"`
	HeightMM     uint32    `json:"height_mm"`
	WeightGrams  uint32    `json:"weight_grams"`
	Photo        string    `json:"photo,omitempty"`
	CardsMinted  bool      `json:"cards_minted"`
	MetadataHash string    `json:"metadata_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type ClassListResponse struct {
	Classes []ClassResponse `json:"classes"`
	Total   uint64          `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type CardResponse struct {
	ClassID     uint64  `json:"class_id"`
	InstanceID  uint32  `json:"instance_id"`
	Owner       string  `json:"owner"`
	Tier        string  `json:"tier"`
	Price       *string `json:"price"`
	TotalShares uint32  `json:"total_shares"`
	Views       uint32  `json:"views"`
	Votes       uint32  `json:"votes"`
}

type CardRef struct {
	ClassID    uint64 `json:"class_id"`
	InstanceID uint32 `json:"instance_id"`
}

type CardListResponse struct {
	Cards []CardRef `json:"cards"`
}

type PurchaseResponse struct {
	ClassID    uint64 `json:"class_id"`
	InstanceID uint32 `json:"instance_id"`
	Buyer      string `json:"buyer"`
	Paid       string `json:"paid"`
}

type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func classToResponse(class *schema.AthleteClass) ClassResponse {
	resp := ClassResponse{
		ClassID:      class.ID,
		Name:         class.Name,
		HeightMM:     class.HeightMM,
		WeightGrams:  class.WeightGrams,
		CardsMinted:  class.CardsMinted,
		MetadataHash: class.MetadataHash,
		CreatedAt:    class.CreatedAt,
	}
	if class.PhotoRef != nil {
		resp.Photo = *class.PhotoRef
	}
	return resp
}

func cardToResponse(card *cards.CardDetail) CardResponse {
	resp := CardResponse{
		ClassID:     uint64(card.ClassID),
		InstanceID:  uint32(card.InstanceID),
		Owner:       string(card.Owner),
		Tier:        string(card.Attributes.Tier),
		TotalShares: card.Attributes.TotalShares,
		Views:       card.Attributes.Views,
		Votes:       card.Attributes.Votes,
	}
	if card.Attributes.Price != nil {
		s := card.Attributes.Price.String()
		resp.Price = &s
	}
	return resp
}

func cardRefs(owned []*schema.Card) []CardRef {
	out := make([]CardRef, 0, len(owned))
	for _, c := range owned {
		out = append(out, CardRef{
			ClassID:    c.ClassID,
			InstanceID: c.InstanceID,
		})
	}
	return out
}
