package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the local dev origins plus any configured ones. A "*" entry
// allows every origin without credentials.
func CORS(extraOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Content-Length", "Authorization", "Accept", "Origin", "X-Requested-With", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        10 * time.Minute,
	}

	for _, o := range extraOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = append(append([]string{}, defaultOrigins...), extraOrigins...)
	cfg.AllowCredentials = true
	return cors.New(cfg)
}
