package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/talktojesus/api_server/internal/pkg/response"
	"github.com/talktojesus/api_server/internal/service"
)

// RequireEntitlement rejects users who used up the free tier without a
// subscription that grants access. It must run after Auth.
func RequireEntitlement(entitlement *service.EntitlementService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			response.AuthError(c, "")
			c.Abort()
			return
		}

		d := entitlement.Decide(c.Request.Context(), userID)
		if !d.Allowed {
			response.ErrorWithData(c, response.CodePaymentRequired, "", gin.H{
				"reason":     d.Reason,
				"free_limit": entitlement.FreeLimit(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
