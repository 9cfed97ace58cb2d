package handler

import (
	"errors"
	"net/http"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the uniform error body. Reason is set only for policy
// denials so clients can render "upgrade" vs "wait" without string matching.
type ErrorResponse struct {
	Error  string              `json:"error"`
	Reason domain.DenialReason `json:"reason,omitempty"`
}

// respondError maps the domain error taxonomy onto HTTP. Isolation
// violations deliberately surface as plain not-found.
func respondError(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if denial, ok := domain.AsDenial(err); ok {
		status := http.StatusBadRequest
		if denial.Reason == domain.ReasonTierRequired {
			status = http.StatusForbidden
		}
		c.JSON(status, ErrorResponse{Error: denial.Error(), Reason: denial.Reason})
		return
	}

	var transient *domain.TransientStorageError
	if errors.As(err, &transient) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "temporary storage failure, retry the request"})
		return
	}

	switch {
	case errors.Is(err, domain.ErrSelfLike),
		errors.Is(err, domain.ErrInvalidContext),
		errors.Is(err, domain.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
	case errors.Is(err, domain.ErrCodeMismatch):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "verification code mismatch"})
	case errors.Is(err, domain.ErrNotVerified):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "phone verification required"})
	case errors.Is(err, domain.ErrAlreadyMatched):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "pair is already matched"})
	case errors.Is(err, domain.ErrLikeNotPending):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "like is no longer pending"})
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrProfileNotFound),
		errors.Is(err, domain.ErrLikeNotFound),
		errors.Is(err, domain.ErrMatchNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrInterestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// accountID reads the account set by the auth middleware.
func accountID(c *gin.Context) string {
	return c.GetString("account_id")
}
