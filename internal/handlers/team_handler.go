package handlers

import (
	"errors"
	"net/http"
	"regexp"

	"team-shortlink/internal/database"
	"team-shortlink/internal/middleware"
	"team-shortlink/internal/models"
	"team-shortlink/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var teamDomainPattern = regexp.MustCompile(`^[a-z0-9]+$`)

type TeamHandler struct {
	db       *gorm.DB
	identity *services.IdentityService
}

func NewTeamHandler(db *gorm.DB, identity *services.IdentityService) *TeamHandler {
	return &TeamHandler{db: db, identity: identity}
}

type RegisterRequest struct {
	UserName   string `json:"user_name"`
	TeamName   string `json:"team_name"`
	TeamDomain string `json:"team_domain"`
}

type SessionRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
}

// CreateSession issues a signed member-session cookie. It stands in for the
// upstream identity provider's login callback.
func (h *TeamHandler) CreateSession(c *gin.Context) {
	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}

	token, err := h.identity.IssueSession(req.Identity, req.DisplayName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{"An internal error occurred."}})
		return
	}

	c.SetCookie(middleware.SessionCookie, token, 86400, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"session": token})
}

// Register provisions a team and its primary owner in one transaction
// @Summary Register a team
// @Tags teams
// @Accept json
// @Produce json
// @Router /register [post]
func (h *TeamHandler) Register(c *gin.Context) {
	token, err := c.Cookie(middleware.SessionCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": []string{services.ErrNoIdentity.Error()}})
		return
	}
	claims, err := h.identity.ResolveSession(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"errors": []string{services.ErrNoIdentity.Error()}})
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []string{"Invalid request body"}})
		return
	}

	if messages := validateRegister(h.db, req); len(messages) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"errors": messages})
		return
	}

	displayName := req.UserName
	if claims.DisplayName != "" {
		displayName = claims.DisplayName
	}

	team := &models.Team{
		ID:          req.TeamDomain,
		TeamName:    req.TeamName,
		BillingPlan: "trial",
	}
	owner, err := database.CreateTeamWithOwner(h.db, team, claims.MemberIdentity, displayName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"errors": []string{"An internal error occurred."}})
		return
	}

	c.SetCookie(middleware.TeamCookie, team.ID, 86400*30, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"team_id":   team.ID,
		"team_name": team.TeamName,
		"member_id": owner.ID,
		"role":      owner.Role,
	})
}

func validateRegister(db *gorm.DB, req RegisterRequest) []string {
	var messages []string
	if l := len(req.UserName); l < 1 || l > 25 {
		messages = append(messages, "User Name should be between 1 and 25 characters")
	}
	if l := len(req.TeamName); l < 1 || l > 25 {
		messages = append(messages, "Team Name should be between 1 and 25 characters")
	}
	if l := len(req.TeamDomain); l < 1 || l > 10 || !teamDomainPattern.MatchString(req.TeamDomain) {
		messages = append(messages, "Team Domain is invalid")
	} else {
		var existing models.Team
		err := db.First(&existing, "id = ?", req.TeamDomain).Error
		if err == nil {
			messages = append(messages, "Team Domain already used")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			messages = append(messages, "An internal error occurred.")
		}
	}
	return messages
}
