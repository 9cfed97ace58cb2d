package handler

import (
	"net/http"
	"strconv"

	"github.com/b0ho/glimpse-sub008/internal/usecase/like"
	"github.com/gin-gonic/gin"
)

type LikeHandler struct {
	engine *like.Engine
}

func NewLikeHandler(engine *like.Engine) *LikeHandler {
	return &LikeHandler{engine: engine}
}

// Send records a like; the body includes the match when this like completed
// a reciprocal pair.
func (h *LikeHandler) Send(c *gin.Context) {
	var req like.SendLikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.engine.SendLike(c.Request.Context(), accountID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *LikeHandler) Cancel(c *gin.Context) {
	if err := h.engine.CancelLike(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Received lists pending incoming likes; premium only.
func (h *LikeHandler) Received(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	likes, err := h.engine.ListReceived(c.Request.Context(), accountID(c), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"likes": likes})
}
