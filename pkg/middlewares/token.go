package middlewares

import (
	"exotoura_chat/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	// QueryToken token in query name, used by browsers that cannot set headers on upgrade
	QueryToken = "auth"

	// TokenMemberID c.Locals key of the user id taken from the token
	TokenMemberID = "MemberID"
	// TokenRole c.Locals key of the role taken from the token
	TokenRole = "role"
)

// JWTMiddleware validates the bearer token of the request against secret
func JWTMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Get(fiber.HeaderAuthorization)
		if tokenStr == "" {
			tokenStr = c.Query(QueryToken)
		}
		if token.StripBearer(tokenStr) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := token.ParseJWT(secret, tokenStr)
		if err != nil || claims.MemberID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		return c.Next()
	}
}
