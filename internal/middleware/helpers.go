// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// MustGetUID gets the user ID from context or panics
func MustGetUID(c *gin.Context) string {
	uid, exists := GetUID(c)
	if !exists {
		panic("uid not found in context")
	}
	return uid
}

// MustGetJTI gets JTI from context or panics
func MustGetJTI(c *gin.Context) string {
	jti, exists := GetJTI(c)
	if !exists {
		panic("jti not found in context")
	}
	return jti
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("uid")
	return exists
}
