package handler

import (
	"net/http"
	"strconv"

	"github.com/b0ho/glimpse-sub008/internal/domain"
	"github.com/b0ho/glimpse-sub008/internal/usecase/group"
	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	groups *group.Service
}

func NewGroupHandler(groups *group.Service) *GroupHandler {
	return &GroupHandler{groups: groups}
}

func (h *GroupHandler) Create(c *gin.Context) {
	var req group.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	g, err := h.groups.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *GroupHandler) Get(c *gin.Context) {
	g, err := h.groups.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// Join materializes the caller's profile for the group's context.
func (h *GroupHandler) Join(c *gin.Context) {
	m, err := h.groups.Join(c.Request.Context(), accountID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *GroupHandler) Leave(c *gin.Context) {
	if err := h.groups.Leave(c.Request.Context(), accountID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Nearby serves the proximity query for location groups.
func (h *GroupHandler) Nearby(c *gin.Context) {
	lat, latErr := strconv.ParseFloat(c.Query("latitude"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("longitude"), 64)
	radius, radErr := strconv.ParseFloat(c.DefaultQuery("radius", "5000"), 64)
	if latErr != nil || lonErr != nil || radErr != nil ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 || radius <= 0 {
		respondError(c, domain.ErrInvalidInput)
		return
	}

	groups, err := h.groups.DiscoverNearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}
