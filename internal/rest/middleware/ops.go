package middleware

import (
	"crypto/subtle"

	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/logger"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/gin-gonic/gin"
)

// OpsTokenMiddleware requires X-Ops-Token to equal token. With an empty
// token every request passes, which is only meant for local runs.
func OpsTokenMiddleware(token string, log *logger.Logger) gin.HandlerFunc {
	if token == "" {
		log.Warnw("ops endpoints are not protected, set server.ops_token")
		return func(c *gin.Context) {
			c.Next()
		}
	}

	expected := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader(types.HeaderOpsToken))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			log.Warnw("rejected ops request",
				"path", c.FullPath(),
				"request_id", types.GetRequestID(c.Request.Context()),
			)
			_ = c.Error(ierr.NewError("invalid ops token").
				WithHintf("A valid %s header is required", types.HeaderOpsToken).
				Mark(ierr.ErrPermissionDenied))
			c.Abort()
			return
		}
		c.Next()
	}
}
