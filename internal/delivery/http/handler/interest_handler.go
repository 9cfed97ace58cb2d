package handler

import (
	"net/http"

	"github.com/b0ho/glimpse-sub008/internal/usecase/interest"
	"github.com/b0ho/glimpse-sub008/internal/usecase/quota"
	"github.com/gin-gonic/gin"
)

type InterestHandler struct {
	interests *interest.Service
	quota     *quota.Policy
}

func NewInterestHandler(interests *interest.Service, quota *quota.Policy) *InterestHandler {
	return &InterestHandler{interests: interests, quota: quota}
}

// Register claims a concurrent-registration slot.
func (h *InterestHandler) Register(c *gin.Context) {
	var req interest.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	reg, err := h.interests.Register(c.Request.Context(), accountID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (h *InterestHandler) List(c *gin.Context) {
	regs, err := h.interests.List(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"interests": regs})
}

func (h *InterestHandler) Withdraw(c *gin.Context) {
	if err := h.interests.Withdraw(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Usage reports the caller's quota consumption snapshot.
func (h *InterestHandler) Usage(c *gin.Context) {
	usage, err := h.quota.Usage(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}
