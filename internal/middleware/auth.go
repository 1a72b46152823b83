// Package middleware provides authentication middleware for the backend API.
package middleware

import (
	"strings"
	"time"

	"stride/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// GenerateToken mints a bearer token for the given actor id.
func GenerateToken(actorID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": actorID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

func actorFromHeader(authHeader string) (string, bool) {
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", false
	}
	return sub, true
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	actorID, ok := actorFromHeader(authHeader)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	c.Locals("actorID", actorID)
	return c.Next()
}

// OptionalAuth resolves the actor when a valid token is present but lets
// anonymous requests through; public reads annotate liked status only for
// authenticated callers.
func OptionalAuth(c *fiber.Ctx) error {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		if actorID, ok := actorFromHeader(authHeader); ok {
			c.Locals("actorID", actorID)
		}
	}
	return c.Next()
}

// ActorID returns the authenticated actor id set by AuthRequired or
// OptionalAuth, or empty for anonymous requests.
func ActorID(c *fiber.Ctx) string {
	if v, ok := c.Locals("actorID").(string); ok {
		return v
	}
	return ""
}
