package auth

import (
	"menedzer-sesji/internal/models"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type AppClaims struct {
	UserID       int64    `json:"user_id"`
	Username     string   `json:"username"`
	Capabilities []string `json:"capabilities,omitempty"`
	jwt.RegisteredClaims
}

// HasCapability reports whether the token carries the named permission grant.
func (c *AppClaims) HasCapability(name string) bool {
	for _, grant := range c.Capabilities {
		if grant == name {
			return true
		}
	}
	return false
}

func GenerateJWT(user *models.User, secret string) (string, error) {
	expirationTime := time.Now().Add(1 * time.Hour)

	claims := &AppClaims{
		UserID:       user.ID,
		Username:     user.Username,
		Capabilities: user.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "session-manager",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func VerifyJWT(tokenString, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
