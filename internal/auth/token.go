package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"delivery_api/internal/models"
	"delivery_api/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "delivery_api"

// Claims carried by session tokens.
type Claims struct {
	UserID      uint     `json:"user_id"`
	Email       string   `json:"email"`
	Groups      []string `json:"groups"`
	AccessLevel int      `json:"access_level"`
	jwt.RegisteredClaims
}

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID      uint
	Email       string
	Groups      []string
	AccessLevel int
}

func (c Caller) IsManager() bool {
	return c.AccessLevel >= models.ManagerAccessLevel
}

func (c *Claims) Caller() Caller {
	return Caller{
		UserID:      c.UserID,
		Email:       c.Email,
		Groups:      c.Groups,
		AccessLevel: c.AccessLevel,
	}
}

// TokenManager issues and verifies HS256 session tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user with its current groups and access level.
func (m *TokenManager) Issue(user *models.User) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Groups:      user.GroupNames(),
		AccessLevel: user.AccessLevel(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns its claims. Every failure is reported as
// Unauthenticated.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.NewUnauthenticatedError("token expired")
		}
		return nil, apperrors.NewUnauthenticatedError("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, apperrors.NewUnauthenticatedError("invalid token")
	}
	return claims, nil
}
