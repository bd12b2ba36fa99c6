// Package middleware contains HTTP middleware functions for the club API.
// Middleware sits between the HTTP server and route handlers. It runs on every
// request that passes through it, which makes it the place for cross-cutting
// concerns like authentication and request metrics.
package middleware

import (
	"errors"
	"strings"

	// fiber is the HTTP framework; fiber.Handler is the function signature for middleware
	"github.com/gofiber/fiber/v2"
	// jwt is used to parse and verify JSON Web Tokens (JWTs) from the Authorization header
	"github.com/golang-jwt/jwt/v5"

	"github.com/trentd187/badminton-club/internal/config"
)

// Roles carried in the "role" claim. Admins manage matches, players and payments;
// members can read everything and trigger the status auto-update.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Locals keys set by Auth for downstream handlers.
const (
	LocalUserID   = "userID"
	LocalUserRole = "userRole"
)

// Claims defines the data we expect inside a token issued by the club's auth provider.
// Subject is the provider's user ID; Role is a custom claim added by the provider's token template.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT fields: Subject (user ID), ExpiresAt, IssuedAt, etc.
	Role                 string `json:"role"`  // Custom claim: "admin" or "member"
	Email                string `json:"email"` // Custom claim, informational only
	Name                 string `json:"name"`  // Custom claim, informational only
}

// Auth returns a Fiber middleware handler that:
//  1. Reads the JWT from the "Authorization: Bearer <token>" header
//  2. Verifies its HS256 signature with the shared JWT_SECRET (and exp/nbf when present)
//  3. Stores the subject and role in the request context (c.Locals)
//     so downstream handlers and RequireRole can read them without re-parsing the token
//
// The club does not keep a users table: identity lives with the auth provider, so there is
// nothing to sync on each request.
func Auth(cfg *config.Config) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	keyFunc := func(*jwt.Token) (any, error) {
		return secret, nil
	}

	return func(c *fiber.Ctx) error {
		// --- Step 1: Extract the token from the Authorization header ---
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		// --- Step 2: Parse and verify the JWT ---
		claims := &Claims{}
		if _, err := parser.ParseWithClaims(tokenStr, claims, keyFunc); err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		if claims.Subject == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		// --- Step 3: Store identity in the request context ---
		c.Locals(LocalUserID, claims.Subject)
		c.Locals(LocalUserRole, roleFromClaim(claims.Role))

		return c.Next()
	}
}

// roleFromClaim maps the raw role claim onto a known role.
// Missing or unrecognised roles default to "member" (least privileged).
func roleFromClaim(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleMember
	}
}
