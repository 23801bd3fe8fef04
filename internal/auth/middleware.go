package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextUserKey is the gin context key the middleware stores the
// authenticated user under.
const ContextUserKey = "authUser"

// Middleware returns a gin handler that requires a valid Bearer token
// and resolves it to a live account.
func Middleware(issuer *TokenIssuer, users *UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token required"})
			return
		}

		userID, err := issuer.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		user, err := users.FindByID(userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the account the middleware resolved for this
// request.
func CurrentUser(c *gin.Context) (User, bool) {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return User{}, false
	}
	user, ok := value.(User)
	return user, ok
}
