package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mdaamer248/Athelete/internal/api/middleware"
	"github.com/mdaamer248/Athelete/internal/cards"
	"github.com/mdaamer248/Athelete/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler defines the HTTP surface of the card service
type Handler interface {
	RegisterAthlete(c *gin.Context)
	GetClass(c *gin.Context)
	ListClasses(c *gin.Context)
	GetCard(c *gin.Context)
	ListCardsByOwner(c *gin.Context)
	SetCardPrice(c *gin.Context)
	PurchaseCard(c *gin.Context)
	Deposit(c *gin.Context)
	GetBalance(c *gin.Context)
	HealthCheck(c *gin.Context)
}

type handler struct {
	service *cards.Service
}

// NewHandler creates a REST handler backed by the card service
func NewHandler(service *cards.Service) Handler {
	return &handler{service: service}
}

// RegisterAthlete handles POST /api/v1/athletes
func (h *handler) RegisterAthlete(c *gin.Context) {
	var req RegisterAthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	admin := middleware.CallerAccount(c)
	if admin == "" {
		// API-key callers name the admin account explicitly.
		admin = domain.Account(req.Admin)
	}
	if admin == "" {
		respondBadRequest(c, "admin account is required")
		return
	}

	meta := domain.AthleteMetadata{
		Name:   req.Name,
		Height: domain.HeightFromMillimeters(req.HeightMM),
		Weight: domain.WeightFromGrams(req.WeightGrams),
	}
	if req.Photo != "" {
		photo := domain.PhotoRef(req.Photo)
		if !photo.Valid() {
			respondBadRequest(c, "photo must be a 64-character hex content hash")
			return
		}
		meta.Photo = &photo
	}
	if err := meta.Validate(); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	classID, err := h.service.RegisterAndMint(c.Request.Context(), admin, meta)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterAthleteResponse{
		ClassID:     uint64(classID),
		CardsMinted: domain.CardsPerClass,
	})
}

// GetClass handles GET /api/v1/athletes/:class_id
func (h *handler) GetClass(c *gin.Context) {
	classID, ok := parseClassID(c)
	if !ok {
		return
	}

	class, err := h.service.GetClass(c.Request.Context(), classID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, classToResponse(class))
}

// ListClasses handles GET /api/v1/athletes
func (h *handler) ListClasses(c *gin.Context) {
	limit, offset, ok := parsePagination(c)
	if !ok {
		return
	}

	classes, total, err := h.service.ListClasses(c.Request.Context(), limit, offset)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	resp := ClassListResponse{
		Classes: make([]ClassResponse, 0, len(classes)),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	for _, class := range classes {
		resp.Classes = append(resp.Classes, classToResponse(class))
	}

	c.JSON(http.StatusOK, resp)
}

// GetCard handles GET /api/v1/cards/:class_id/:instance_id
func (h *handler) GetCard(c *gin.Context) {
	classID, instanceID, ok := parseCardID(c)
	if !ok {
		return
	}

	card, err := h.service.GetCard(c.Request.Context(), classID, instanceID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, cardToResponse(card))
}

// ListCardsByOwner handles GET /api/v1/accounts/:account/cards
func (h *handler) ListCardsByOwner(c *gin.Context) {
	account := domain.Account(c.Param("account"))
	if account == "" {
		respondBadRequest(c, "account is required")
		return
	}

	owned, err := h.service.CardsOwnedBy(c.Request.Context(), account)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, CardListResponse{Cards: cardRefs(owned)})
}

// SetCardPrice handles PUT /api/v1/cards/:class_id/:instance_id/price.
// Only the card's current owner may change the price; a null price delists.
func (h *handler) SetCardPrice(c *gin.Context) {
	classID, instanceID, ok := parseCardID(c)
	if !ok {
		return
	}

	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	caller := middleware.CallerAccount(c)
	if caller == "" {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "caller identity is required")
		return
	}

	var price *decimal.Decimal
	if req.Price != nil {
		parsed, err := decimal.NewFromString(*req.Price)
		if err != nil {
			respondBadRequest(c, "invalid price: "+err.Error())
			return
		}
		price = &parsed
	}

	if err := h.service.SetPrice(c.Request.Context(), caller, classID, instanceID, price); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PurchaseCard handles POST /api/v1/cards/:class_id/:instance_id/purchase
func (h *handler) PurchaseCard(c *gin.Context) {
	classID, instanceID, ok := parseCardID(c)
	if !ok {
		return
	}

	buyer := middleware.CallerAccount(c)
	if buyer == "" {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, "caller identity is required")
		return
	}

	paid, err := h.service.Purchase(c.Request.Context(), buyer, classID, instanceID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, PurchaseResponse{
		ClassID:    uint64(classID),
		InstanceID: uint32(instanceID),
		Buyer:      string(buyer),
		Paid:       paid.String(),
	})
}

// Deposit handles POST /api/v1/accounts/deposit
func (h *handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondBadRequest(c, "invalid amount: "+err.Error())
		return
	}
	if amount.IsNegative() {
		respondBadRequest(c, "amount must not be negative")
		return
	}

	if err := h.service.Deposit(c.Request.Context(), domain.Account(req.Account), amount); err != nil {
		respondDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetBalance handles GET /api/v1/accounts/:account/balance
func (h *handler) GetBalance(c *gin.Context) {
	account := domain.Account(c.Param("account"))
	if account == "" {
		respondBadRequest(c, "account is required")
		return
	}

	balance, err := h.service.BalanceOf(c.Request.Context(), account)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, BalanceResponse{
		Account: string(account),
		Balance: balance.String(),
	})
}

// HealthCheck handles GET /healthz
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseClassID(c *gin.Context) (domain.ClassID, bool) {
	raw := c.Param("class_id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid class_id")
		return 0, false
	}
	return domain.ClassID(id), true
}

func parseCardID(c *gin.Context) (domain.ClassID, domain.InstanceID, bool) {
	classID, ok := parseClassID(c)
	if !ok {
		return 0, 0, false
	}
	raw := c.Param("instance_id")
	instance, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid instance_id")
		return 0, 0, false
	}
	return classID, domain.InstanceID(instance), true
}

func parsePagination(c *gin.Context) (int, int, bool) {
	limit := defaultListLimit
	offset := 0

	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondBadRequest(c, "invalid limit")
			return 0, 0, false
		}
		if parsed > maxListLimit {
			parsed = maxListLimit
		}
		limit = parsed
	}

	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondBadRequest(c, "invalid offset")
			return 0, 0, false
		}
		offset = parsed
	}

	return limit, offset, true
}
