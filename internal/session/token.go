package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Device tokens carry the device id between the browser and the service.
// They scope an order stream to one customer session; this is identity,
// not authentication.

// GenerateDeviceToken signs a device id into a token for the client cookie.
func GenerateDeviceToken(deviceID, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"device_id": deviceID,
		"iat":       time.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}

// ParseDeviceToken extracts the device id from a signed token.
func ParseDeviceToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse device token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid device token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid device token claims")
	}
	deviceID, ok := claims["device_id"].(string)
	if !ok || deviceID == "" {
		return "", fmt.Errorf("device token missing device_id")
	}
	return deviceID, nil
}
