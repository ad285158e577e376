package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore marks responses as private to the caller. Attempt papers and
// results must not be kept by shared caches.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "private, no-store")
		c.Next()
	}
}
