package handler

import (
	"net/http"
	"strconv"

	"github.com/b0ho/glimpse-sub008/internal/usecase/like"
	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	engine *like.Engine
}

func NewMatchHandler(engine *like.Engine) *MatchHandler {
	return &MatchHandler{engine: engine}
}

func (h *MatchHandler) List(c *gin.Context) {
	matches, err := h.engine.ListMatches(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// Reveal reports the current disclosure stage and the counterpart fields it
// unlocks. chat_turns comes from the chat collaborator via the client.
func (h *MatchHandler) Reveal(c *gin.Context) {
	chatTurns, _ := strconv.Atoi(c.DefaultQuery("chat_turns", "0"))
	if chatTurns < 0 {
		chatTurns = 0
	}

	status, err := h.engine.RevealStage(c.Request.Context(), accountID(c), c.Param("id"), chatTurns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Consent records the caller's agreement to mutual reveal.
func (h *MatchHandler) Consent(c *gin.Context) {
	if err := h.engine.Consent(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *MatchHandler) Unmatch(c *gin.Context) {
	if err := h.engine.Unmatch(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ReportRequest struct {
	MatchID string `json:"match_id" binding:"required"`
	Reason  string `json:"reason" binding:"required,min=1,max=500"`
}

// Report files an abuse/mismatch report and deactivates the match.
func (h *MatchHandler) Report(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	report, err := h.engine.ReportMismatch(c.Request.Context(), accountID(c), req.MatchID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": report.ID, "status": report.Status})
}
