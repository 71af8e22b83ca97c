// internal/middleware/cors.go
package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{
			"X-Payment-Required",
			"X-Payment-Id",
			"X-Payment-Address",
			"X-Expires-At",
			"Content-Disposition",
		},
		MaxAge: 12 * time.Hour,
	})
}
