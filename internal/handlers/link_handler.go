package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"team-shortlink/internal/models"
	"team-shortlink/internal/services"

	"github.com/gin-gonic/gin"
)

type LinkHandler struct {
	links *services.LinkService
}

func NewLinkHandler(links *services.LinkService) *LinkHandler {
	return &LinkHandler{links: links}
}

type ShortenRequest struct {
	URL        string `json:"url"`
	Domain     string `json:"domain"`
	CustomPath string `json:"custom_path"`
}

type PatchRequest struct {
	Tag  string `json:"tag"`
	Memo string `json:"memo"`
}

type LinkResponse struct {
	ID          string        `json:"id"`
	ShortURL    string        `json:"short_url"`
	LongURL     string        `json:"long_url"`
	Title       string        `json:"title"`
	SiteName    string        `json:"site_name"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
	Memo        string        `json:"memo"`
	Tags        models.TagSet `json:"tags"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Warning     string        `json:"warning,omitempty"`
}

type ListResponse struct {
	Results    []LinkResponse `json:"results"`
	NextCursor *string        `json:"next_cursor"`
	More       bool           `json:"more"`
}

func toLinkResponse(link *models.ShortLink, warning string) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		ShortURL:    link.ShortURL,
		LongURL:     link.LongURL,
		Title:       link.Title,
		SiteName:    link.SiteName,
		Description: link.Description,
		Image:       link.Image,
		Memo:        link.Memo,
		Tags:        link.Tags,
		CreatedAt:   link.CreatedAt,
		UpdatedAt:   link.UpdatedAt,
		Warning:     warning,
	}
}

// Create shortens a URL for the caller's team
// @Summary Shorten a URL
// @Tags links
// @Accept json
// @Produce json
// @Router /links [post]
func (h *LinkHandler) Create(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}

	link, warning, err := h.links.Create(c.Request.Context(), c.GetString("team_id"), c.GetString("member_id"), req.URL, req.Domain, req.CustomPath)
	if err != nil {
		writeLinkError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link, warning))
}

// List pages the team's links newest first
// @Summary List short links
// @Tags links
// @Produce json
// @Router /links [get]
func (h *LinkHandler) List(c *gin.Context) {
	links, next, more, err := h.links.List(c.GetString("team_id"), c.Query("cursor"))
	if err != nil {
		writeLinkError(c, err, http.StatusBadRequest)
		return
	}

	results := make([]LinkResponse, 0, len(links))
	for i := range links {
		results = append(results, toLinkResponse(&links[i], ""))
	}

	resp := ListResponse{Results: results, More: more}
	if next != "" {
		resp.NextCursor = &next
	}
	c.JSON(http.StatusOK, resp)
}

// Update appends a tag and/or replaces the memo
// @Summary Patch a short link
// @Tags links
// @Accept json
// @Produce json
// @Router /links/{domain}/{path} [patch]
func (h *LinkHandler) Update(c *gin.Context) {
	var req PatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}

	link, err := h.links.Update(c.Param("domain"), c.Param("path"), c.GetString("team_id"), c.GetString("member_id"), req.Tag, req.Memo)
	if err != nil {
		// A patch against an unknown or foreign link is a plain bad request.
		writeLinkError(c, err, http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link, ""))
}

// RemoveTag drops one tag from the link's set
// @Summary Remove a tag
// @Tags links
// @Produce json
// @Router /links/{domain}/{path}/tags/{tag} [delete]
func (h *LinkHandler) RemoveTag(c *gin.Context) {
	link, err := h.links.RemoveTag(c.Param("domain"), c.Param("path"), c.GetString("team_id"), c.GetString("member_id"), c.Param("tag"))
	if err != nil {
		writeLinkError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, toLinkResponse(link, ""))
}

// Delete hard-deletes a short link
// @Summary Delete a short link
// @Tags links
// @Produce json
// @Router /links/{domain}/{path} [delete]
func (h *LinkHandler) Delete(c *gin.Context) {
	if err := h.links.Delete(c.Param("domain"), c.Param("path"), c.GetString("team_id")); err != nil {
		writeLinkError(c, err, http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": "the url was deleted"})
}

// writeLinkError maps service errors onto the JSON error-list contract.
// notFoundStatus differs per route: PATCH treats an unknown link as 400,
// DELETE as 404.
func writeLinkError(c *gin.Context, err error, notFoundStatus int) {
	var v *services.ValidationError
	switch {
	case errors.As(err, &v):
		c.JSON(http.StatusBadRequest, gin.H{"errors": v.Messages})
	case errors.Is(err, services.ErrDuplicatePath),
		errors.Is(err, services.ErrNothingToUpdate),
		errors.Is(err, services.ErrInvalidCursor),
		errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{err.Error()}})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(notFoundStatus, gin.H{"errors": []string{err.Error()}})
	default:
		log.Printf("Unexpected error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{"An internal error occurred."}})
	}
}
