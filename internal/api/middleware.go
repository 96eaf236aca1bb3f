package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"table-orders/internal/logger"
	"table-orders/internal/session"
)

const (
	deviceCookieName = "device_token"
	deviceCookieAge  = 365 * 24 * 60 * 60

	deviceIDKey  = "deviceID"
	requestIDKey = "requestID"
)

// deviceIdentity resolves the caller's device id from the signed cookie,
// minting a fresh id and token for first-time devices. A cookie that fails
// signature or claim checks is treated the same as a missing one.
func (s *Server) deviceIdentity() gin.HandlerFunc {
	secret := s.cfg.Server.DeviceTokenSecret

	return func(c *gin.Context) {
		requestID := logger.GenerateRequestID()
		c.Set(requestIDKey, requestID)

		deviceID := ""
		if token, err := c.Cookie(deviceCookieName); err == nil {
			deviceID, err = session.ParseDeviceToken(token, secret)
			if err != nil {
				s.logger.Debug("device_token_rejected", "Reissuing device token", requestID, map[string]interface{}{
					"reason": err.Error(),
				})
				deviceID = ""
			}
		}

		if deviceID == "" {
			deviceID = uuid.NewString()
			token, err := session.GenerateDeviceToken(deviceID, secret)
			if err != nil {
				s.logger.Error("device_token_issue_failed", "Failed to sign device token", requestID, err, nil)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to establish device identity"})
				return
			}
			c.SetCookie(deviceCookieName, token, deviceCookieAge, "/", "", false, true)
			s.logger.Info("device_registered", "Issued new device identity", requestID, map[string]interface{}{
				"device_id": deviceID,
			})
		}

		c.Set(deviceIDKey, deviceID)
		c.Next()
	}
}

func deviceID(c *gin.Context) string {
	return c.GetString(deviceIDKey)
}

func requestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
