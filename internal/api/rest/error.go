package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mdaamer248/Athelete/internal/domain"
	"github.com/mdaamer248/Athelete/internal/logger"
)

// ErrorCode identifies a class of API failure in error responses.
type ErrorCode string

const (
	ErrCodeBadRequest        ErrorCode = "bad_request"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeConflict          ErrorCode = "conflict"
	ErrCodeForbidden         ErrorCode = "forbidden"
	ErrCodePaymentRequired   ErrorCode = "payment_required"
	ErrCodeInternal          ErrorCode = "internal_error"
	ErrCodeUnauthorized      ErrorCode = "unauthorized"
	ErrCodeValidationFailure ErrorCode = "validation_failure"
)

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func respondError(c *gin.Context, status int, code ErrorCode, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// respondDomainError maps known domain failures onto HTTP statuses. Anything
// unrecognized becomes a 500 and gets logged with the request path.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAthleteAlreadyExists):
		respondError(c, http.StatusConflict, ErrCodeConflict, "athlete class with identical metadata already exists")
	case errors.Is(err, domain.ErrCardsAlreadyMinted):
		respondError(c, http.StatusConflict, ErrCodeConflict, "cards already minted for this class")
	case errors.Is(err, domain.ErrClassNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "athlete class not found")
	case errors.Is(err, domain.ErrCardHasNoOwner):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "card not found")
	case errors.Is(err, domain.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
	case errors.Is(err, domain.ErrMustBeCardOwner):
		respondError(c, http.StatusForbidden, ErrCodeForbidden, "caller is not the card owner")
	case errors.Is(err, domain.ErrCardNotForSale):
		respondError(c, http.StatusConflict, ErrCodeConflict, "card is not for sale")
	case errors.Is(err, domain.ErrInsufficientFunds):
		respondError(c, http.StatusPaymentRequired, ErrCodePaymentRequired, "insufficient funds")
	default:
		logger.ErrorCtx(c.Request.Context(), err,
			zap.String("path", c.Request.URL.Path),
		)
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}
