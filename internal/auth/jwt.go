package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

// HeaderToken is the header the web client sends the token in.
const HeaderToken = "x-auth-token"

const userIDKey = "auth.userID"

var (
	ErrNoToken      = errors.New("no token, authorization denied")
	ErrInvalidToken = errors.New("token is not valid")
	ErrDisabled     = errors.New("authentication is not configured")
)

// Verifier checks HMAC-signed tokens issued elsewhere.
type Verifier struct {
	secret []byte
}

// NewVerifier returns nil when secret is empty. A nil Verifier rejects
// every request.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret)}
}

// Verify parses token and returns the user id it carries, taken from
// the "user.id" claim or, failing that, "sub".
func (v *Verifier) Verify(token string) (string, error) {
	if v == nil {
		return "", ErrDisabled
	}
	if token == "" {
		return "", ErrNoToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	if user, ok := claims["user"].(map[string]interface{}); ok {
		if id, ok := user["id"].(string); ok && id != "" {
			return id, nil
		}
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", ErrInvalidToken
}

// TokenFromRequest reads x-auth-token, falling back to a Bearer header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(HeaderToken)); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// Middleware aborts with 401 unless the request carries a valid token.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.Verify(TokenFromRequest(c.Request))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user for the request.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// Sign issues a token for userID. It exists for tests and local tooling;
// production tokens come from the identity service.
func Sign(secret, userID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]interface{}{"id": userID},
	})
	return token.SignedString([]byte(secret))
}
