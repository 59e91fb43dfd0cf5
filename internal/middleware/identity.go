package middleware

import (
	"github.com/gin-gonic/gin"
)

const DeviceHeader = "X-Device-ID"

// Identity resolves who is calling without rejecting anyone. A valid bearer
// token sets "user_id"; a device id from the query string or the X-Device-ID
// header sets "device_id". An invalid token is treated as anonymous.
func Identity(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenStr, ok := bearer(c); ok {
			if userID, err := v.UserID(tokenStr); err == nil {
				c.Set("user_id", userID)
			}
		}

		deviceID := c.Query("device_id")
		if deviceID == "" {
			deviceID = c.GetHeader(DeviceHeader)
		}
		if deviceID != "" {
			c.Set("device_id", deviceID)
		}

		c.Next()
	}
}
