package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the fiber.Locals key every auth middleware stores the caller's user id under
const UserIDKey = "userID"

// UserClaims is the bearer token payload. UID wins over the standard subject.
type UserClaims struct {
	UID string `json:"uid,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the id the token speaks for
func (c *UserClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// VerifyToken validates an HMAC-signed JWT and stores its user id in the context
func VerifyToken(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization token",
			})
		}

		// Parse and validate token
		token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*UserClaims)
		if !ok || !token.Valid || claims.UserID() == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		c.Locals(UserIDKey, claims.UserID())
		return c.Next()
	}
}

// GetUserID extracts the user ID from Fiber context
// Should only be called after one of the auth middlewares
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// bearerToken accepts "Bearer <token>" as well as a bare token
func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if authHeader == "" {
		return "", false
	}
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		authHeader = strings.TrimSpace(authHeader[7:])
	}
	return authHeader, authHeader != ""
}
