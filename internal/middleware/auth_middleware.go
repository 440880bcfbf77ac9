package middleware

import (
	"errors"
	"net/http"
	"strings"

	"team-shortlink/internal/database"
	"team-shortlink/internal/services"

	"github.com/gin-gonic/gin"
)

// Cookie names for the tenant-scoping token and the member session.
const (
	TeamCookie    = "team"
	SessionCookie = "session"
)

// TeamSession gates every protected route: it resolves the member identity
// from the session cookie, validates the (team, member) pair through the
// access cache, and injects the validated tenant into the request context.
func TeamSession(identity *services.IdentityService, access *services.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		teamID, err := c.Cookie(TeamCookie)
		if err != nil || teamID == "" {
			abortUnauthorized(c, services.ErrNoTeamSession.Error())
			return
		}

		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			abortUnauthorized(c, services.ErrNoIdentity.Error())
			return
		}

		claims, err := identity.ResolveSession(token)
		if err != nil {
			abortUnauthorized(c, services.ErrNoIdentity.Error())
			return
		}

		teamName, err := access.Validate(teamID, claims.MemberIdentity)
		if err != nil {
			if errors.Is(err, services.ErrAccessDenied) {
				abortUnauthorized(c, err.Error())
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"errors": []string{"internal error"}})
			return
		}

		c.Set("team_id", teamID)
		c.Set("team_name", teamName)
		c.Set("member_id", database.MemberID(teamID, claims.MemberIdentity))

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"errors": []string{message}})
}

// ValidationMiddleware rejects mutating requests without a JSON content type.
func ValidationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPatch {
			contentType := c.GetHeader("Content-Type")
			if contentType != "" && !strings.Contains(contentType, "application/json") {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"errors": []string{"Content-Type must be application/json"}})
				return
			}
		}
		c.Next()
	}
}
