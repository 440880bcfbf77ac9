package handlers

import (
	"net/http"

	"team-shortlink/internal/services"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// LinkClicks returns a link's click events grouped per UTC day
// @Summary Per-day click analytics for a short link
// @Tags analytics
// @Produce json
// @Router /analytics/{domain}/{path} [get]
func (h *AnalyticsHandler) LinkClicks(c *gin.Context) {
	buckets, err := h.analytics.LinkClicks(c.GetString("team_id"), c.Param("domain"), c.Param("path"))
	if err != nil {
		writeLinkError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": buckets})
}
