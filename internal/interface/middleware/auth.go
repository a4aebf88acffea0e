package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/collabhub/collabhub/pkg/helpers"
	"github.com/collabhub/collabhub/pkg/response"
)

const (
	CtxUserIDKey    = "userID"
	CtxUsernameKey  = "userName"
	CtxUserEmailKey = "userEmail"
)

// SessionValidator resolves an access token to the live session fields.
type SessionValidator interface {
	Validate(ctx context.Context, accessToken string) (map[string]string, error)
}

// Auth validates the access token cookie and ensures the session it names
// is still the active one. It sets userID, userName, and userEmail in the
// Gin context on success.
func Auth(sessions SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(helpers.AccessCookie)
		if err != nil || token == "" {
			response.Abort(c, http.StatusUnauthorized, "missing access token")
			return
		}
		data, err := sessions.Validate(c.Request.Context(), token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "session not found")
			return
		}

		c.Set(CtxUserIDKey, data["user_id"])
		c.Set(CtxUsernameKey, data["username"])
		c.Set(CtxUserEmailKey, data["email"])
		c.Next()
	}
}
