package middleware

import (
	"context"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// UserSyncer maps verified identity provider claims to a local user.
type UserSyncer interface {
	SyncExternal(ctx context.Context, claims *auth.Claims) (*domain.User, error)
}

// BearerIdentity authenticates requests carrying an Authorization bearer token.
// The user is synced on every request so name and avatar come from the server.
// Requests without a bearer token keep whatever the session provided.
func BearerIdentity(verifier *auth.TokenVerifier, users UserSyncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Next()
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			return response.FromError(c, err)
		}
		u, err := users.SyncExternal(c.UserContext(), claims)
		if err != nil {
			log.Error().Err(err).Str("trace_id", GetTraceID(c)).Str("subject", claims.Subject).Msg("user sync failed")
			return response.FromError(c, err)
		}
		c.Locals(userLocal, auth.IdentityOf(u).ToSession())
		return c.Next()
	}
}
