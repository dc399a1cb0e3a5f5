package middleware

import "github.com/gin-gonic/gin"

const (
	// userIDKey holds the authenticated user's ID.
	userIDKey = contextKey("userID")
	// roleKey holds the role claim of the authenticated user.
	roleKey = contextKey("role")
)

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, userIDKey)
}

// GetRoleFromContext retrieves the role claim of the authenticated user.
func GetRoleFromContext(c *gin.Context) (string, bool) {
	return stringFromContext(c, roleKey)
}

func stringFromContext(c *gin.Context, key contextKey) (string, bool) {
	val, exists := c.Get(string(key))
	if !exists {
		// check in the request context as well
		if v, ok := c.Request.Context().Value(key).(string); ok {
			return v, true
		}
		return "", false
	}

	s, ok := val.(string)
	return s, ok
}
