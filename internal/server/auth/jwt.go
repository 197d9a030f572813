// Package auth validates device bearer tokens on the ingest API. Tokens are
// issued elsewhere (the identity service); this package only verifies the
// HS256 signature and extracts the device identity.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lukeboustridge-prog/RANZ-Roofing-report-sub006/internal/common"
)

// Claims carries the registered claims plus the capture-device identifier.
type Claims struct {
	jwt.RegisteredClaims
	DeviceID string
}

// GenerateToken signs a device token. The server never calls this in
// production (issuance is external); it exists for tests and local tooling.
func GenerateToken(deviceID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		DeviceID: deviceID,
	})

	return token.SignedString(secretKey)
}

// GetDeviceIDFromToken verifies tokenString against secretKey and returns
// the embedded device id.
func GetDeviceIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.DeviceID, nil
}
