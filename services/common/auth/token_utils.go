package auth

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

func init() {
	_ = godotenv.Load()
	SetSecret(os.Getenv("JWT_SECRET"))
}

// SetSecret replaces the HMAC key used to verify tokens. An empty secret disables verification.
func SetSecret(secret string) {
	secret = strings.TrimSpace(secret)
	secretMu.Lock()
	defer secretMu.Unlock()
	if secret == "" {
		secretKey = nil
		return
	}
	secretKey = []byte(secret)
}

func currentSecret() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return secretKey
}

// ParseAndValidateToken parses a JWT token string and returns its claims.
// If expectedType is non-empty, the claim "typ" must match it.
func ParseAndValidateToken(tokenStr, expectedType string) (jwt.MapClaims, error) {
	key := currentSecret()
	if key == nil {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	})

	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	if expectedType != "" {
		if typ, ok := claims["typ"].(string); !ok || typ != expectedType {
			return nil, fmt.Errorf("invalid token type")
		}
	}
	return claims, nil
}

// Identity extracts the user id and role from verified claims. The id may be issued
// as "id", "_id" or the standard "sub".
func Identity(claims jwt.MapClaims) (userID, role string, err error) {
	for _, key := range []string{"id", "_id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			userID = v
			break
		}
	}
	if userID == "" {
		return "", "", fmt.Errorf("token carries no user id")
	}
	role, _ = claims["role"].(string)
	return userID, role, nil
}
