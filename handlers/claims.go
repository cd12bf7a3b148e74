package handlers

import (
	"fmt"
	"strconv"

	"storefront-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// claimsOfRequest pulls the verified claims out of the request context and
// resolves the numeric user id they carry.
func claimsOfRequest(c *gin.Context) (auth.Claims, int64, error) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		return auth.Claims{}, 0, fmt.Errorf("claims not found in request context")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return auth.Claims{}, 0, fmt.Errorf("bad subject %q: %w", claims.Subject, err)
	}
	return claims, userID, nil
}
