package handler

import (
	"net/http"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/usecase/profile"
	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profiles *profile.Store
}

func NewProfileHandler(profiles *profile.Store) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

type CreateProfileRequest struct {
	ContextType string `json:"context_type" binding:"required,contexttype"`
	ContextID   string `json:"context_id"`
}

// Create materializes the caller's profile for a context, or returns the
// existing one. The response is the full owned view, not the sanitized one.
func (h *ProfileHandler) Create(c *gin.Context) {
	var req CreateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	p, err := h.profiles.GetOrCreate(c.Request.Context(), accountID(c), domain.ContextType(req.ContextType), req.ContextID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ListMine returns all of the caller's active profiles across contexts.
func (h *ProfileHandler) ListMine(c *gin.Context) {
	profiles, err := h.profiles.ListOwned(c.Request.Context(), accountID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// GetMine returns one owned profile. Other accounts' profiles are only ever
// served through match and like views, already sanitized.
func (h *ProfileHandler) GetMine(c *gin.Context) {
	p, err := h.profiles.ResolveOwned(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	Nickname  string   `json:"nickname" binding:"required,min=1,max=50"`
	Bio       string   `json:"bio" binding:"max=500"`
	Age       int      `json:"age" binding:"omitempty,min=18,max=120"`
	Interests []string `json:"interests" binding:"max=20"`
	PhotoURL  string   `json:"photo_url" binding:"omitempty,url"`
	RealName  string   `json:"real_name" binding:"max=100"`

	AnonymityLevel   string   `json:"anonymity_level" binding:"omitempty,oneof=FULL PARTIAL VERIFIED REVEALED"`
	RevealableFields []string `json:"revealable_fields"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	current, err := h.profiles.ResolveOwned(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	updated := *current
	updated.Nickname = req.Nickname
	updated.Bio = optString(req.Bio)
	updated.Age = optInt(req.Age)
	updated.Interests = req.Interests
	updated.PhotoURL = optString(req.PhotoURL)
	updated.RealName = optString(req.RealName)
	if req.AnonymityLevel != "" {
		updated.Anonymity.Level = domain.RevealStage(req.AnonymityLevel)
	}
	if req.RevealableFields != nil {
		fields, err := domain.ParseFieldSet(req.RevealableFields)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		updated.Anonymity.RevealableFields = fields
	}

	p, err := h.profiles.Update(c.Request.Context(), accountID(c), &updated)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

// Deactivate retires the profile from its context. INSTANT profiles are
// purged outright.
func (h *ProfileHandler) Deactivate(c *gin.Context) {
	err := h.profiles.Deactivate(c.Request.Context(), accountID(c), c.Param("id"), domain.ReasonContextLeft)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
