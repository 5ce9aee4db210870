package handler

import (
	"auctionhouse/backend/internal/config"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

var errUnauthorized = errors.New("admin token required")

// IssueAdminToken signs an HS256 token carrying the admin role.
func IssueAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("admin jwt secret is empty")
	}
	if subject == "" {
		subject = uuid.NewString()
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": config.AdminRole,
		"iss":  config.AdminTokenIssuer,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// AdminAuth rejects requests without a valid admin bearer token.
func AdminAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" || len(secret) == 0 {
			JSONError(c, http.StatusUnauthorized, errUnauthorized, "unauthorized", nil)
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(config.AdminTokenIssuer),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			JSONError(c, http.StatusUnauthorized, fmt.Errorf("invalid token: %w", err), "unauthorized", nil)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != config.AdminRole {
			JSONError(c, http.StatusForbidden, errors.New("admin role required"), "forbidden", nil)
			return
		}
		if sub, err := claims.GetSubject(); err == nil {
			c.Set("admin_subject", sub)
		}
		c.Next()
	}
}
