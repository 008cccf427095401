package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/readiness/internal/pkg/apikey"
	"github.com/xxxsen/readiness/internal/pkg/errcode"
	"github.com/xxxsen/readiness/internal/pkg/response"
)

const (
	HeaderAPIKey       = "X-API-Key"
	ContextAPIKeyIDKey = "api_key_id"
)

// APIKeyAuth rejects requests whose X-API-Key header does not match one of
// the configured keys. With no keys configured every request passes.
func APIKeyAuth(verifier *apikey.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if verifier == nil || !verifier.Enabled() {
			c.Next()
			return
		}
		key := c.GetHeader(HeaderAPIKey)
		if key == "" || !verifier.Verify(key) {
			logutil.GetLogger(c.Request.Context()).Warn("api key rejected",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
				zap.Bool("present", key != ""),
			)
			response.Error(c, errcode.ErrUnauthorized, "invalid or missing API key")
			c.Abort()
			return
		}
		c.Set(ContextAPIKeyIDKey, apikey.Fingerprint(key))
		c.Next()
	}
}
