package handlers

import (
	"net"
	"net/http"

	"team-shortlink/internal/pipeline"
	"team-shortlink/internal/services"

	"github.com/gin-gonic/gin"
)

// Edge-provided geo hint headers, all optional.
const (
	GeoCountryHeader = "X-Geo-Country"
	GeoRegionHeader  = "X-Geo-Region"
	GeoCityHeader    = "X-Geo-City"
	GeoLatLongHeader = "X-Geo-Lat-Long"
)

type RedirectHandler struct {
	links *services.LinkService
	pipe  *pipeline.Pipeline
}

func NewRedirectHandler(links *services.LinkService, pipe *pipeline.Pipeline) *RedirectHandler {
	return &RedirectHandler{links: links, pipe: pipe}
}

// Redirect resolves the inbound host + path and answers 302 with the stored
// long URL. Click capture is scheduled fire-and-forget: the redirect never
// waits on, and never fails because of, the background pipeline.
func (h *RedirectHandler) Redirect(c *gin.Context) {
	domain := hostOnly(c.Request.Host)
	path := c.Param("path")

	link, err := h.links.Get(domain, path)
	if err != nil {
		c.String(http.StatusNotFound, "404 page not found")
		return
	}

	h.pipe.ScheduleCapture(pipeline.ClickCapture{
		LinkID:          link.ID,
		TeamID:          link.TeamID,
		Referrer:        c.Request.Referer(),
		IPAddress:       c.ClientIP(),
		LocationCountry: c.GetHeader(GeoCountryHeader),
		LocationRegion:  c.GetHeader(GeoRegionHeader),
		LocationCity:    c.GetHeader(GeoCityHeader),
		LocationLatLong: c.GetHeader(GeoLatLongHeader),
		UserAgentRaw:    c.Request.UserAgent(),
		Query:           c.Request.URL.Query(),
	})

	c.Redirect(http.StatusFound, link.LongURL)
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
