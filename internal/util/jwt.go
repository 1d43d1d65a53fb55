package util

import (
	"errors"
	"quiz_arena_backend/internal/model"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ContextUserKey is where the auth middleware stores the parsed *Claims.
const ContextUserKey = "user"

type Claims struct {
	SubjectID uint       `json:"sid"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email"`
	TokenType TokenType  `json:"typ"`
	jwt.RegisteredClaims
}

// TokenID returns the jti used by the revocation list.
func (c *Claims) TokenID() string {
	return c.ID
}

// Remaining reports how long the token stays valid from now.
func (c *Claims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

func GenerateJWT(subjectID uint, role model.Role, email string, typ TokenType, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		SubjectID: subjectID,
		Role:      role,
		Email:     email,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token claims")
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
