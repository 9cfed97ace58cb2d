package handler

import (
	"net/http"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/usecase/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RequestCodeRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=8,max=20"`
}

// RequestCode creates the account on first contact and sends a one-time
// verification code out of band.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req RequestCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.authService.RequestCode(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_id": account.ID})
}

type IssueTokenRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,min=8,max=20"`
	Code        string `json:"code" binding:"required,len=6"`
}

// IssueToken exchanges a verification code for a bearer token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	resp, err := h.authService.IssueToken(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me returns the caller's own account. This is the only handler that ever
// serializes an Account.
func (h *AuthHandler) Me(c *gin.Context) {
	account, err := h.authService.Account(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type UpgradeTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (h *AuthHandler) UpgradeTier(c *gin.Context) {
	var req UpgradeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	account, err := h.authService.UpgradeTier(c.Request.Context(), accountID(c), domain.SubscriptionTier(req.Tier))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}
