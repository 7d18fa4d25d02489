package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cabinbook/internal/pkg/logger"
	"cabinbook/internal/pkg/response"
)

const (
	HeaderRequestID = "X-Request-ID"
	ctxRequestID    = "request_id"
)

// RequestID propagates the caller's X-Request-ID or generates one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger logs every request and recovers from panics with the
// standard error envelope.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Error("panic recovered",
					"error", fmt.Sprintf("%v", recovered),
					"method", c.Request.Method,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(ctxRequestID),
					"stack", string(debug.Stack()),
				)
				response.Abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
			}

			attrs := []any{
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"latency", time.Since(start),
				"client_ip", c.ClientIP(),
				"request_id", c.GetString(ctxRequestID),
				"user_id", c.GetInt64(ctxUserID),
			}
			if len(c.Errors) > 0 {
				attrs = append(attrs, "errors", c.Errors.String())
			}

			switch status := c.Writer.Status(); {
			case status >= http.StatusInternalServerError:
				log.Error("request failed", attrs...)
			case status >= http.StatusBadRequest:
				log.Warn("request rejected", attrs...)
			default:
				log.Info("request", attrs...)
			}
		}()

		c.Next()
	}
}
