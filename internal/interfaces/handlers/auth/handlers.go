package auth

import (
	"context"

	authsvc "stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// UserLoader reloads the account behind a session.
type UserLoader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Handlers holds dependencies for auth endpoints.
type Handlers struct {
	UserFinder authsvc.UserFinder
	Users      UserLoader
	Rdb        *redis.Client
	Config     middleware.SessionConfig
}

// LoginRequest body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login POST /api/v1/auth/login: authenticate, start a session, track it under user_sessions:<id>.
func (h *Handlers) Login(c *fiber.Ctx) error {
	if h.UserFinder == nil {
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}
	if req.Email == "" || req.Password == "" {
		return response.Error(c, "Email and password are required", fiber.StatusBadRequest, nil)
	}

	user, err := h.UserFinder.FindByEmailAndPassword(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return response.FromError(c, err)
	}

	sessionID := middleware.RegenerateSessionID(c)
	identity := authsvc.IdentityOf(user)
	middleware.SetSessionUser(c, identity)

	if err := h.Rdb.SAdd(c.UserContext(), userSessionsPrefix+user.ID.String(), sessionID).Err(); err != nil {
		log.Error().Err(err).Str("user_id", user.ID.String()).Msg("session tracking failed")
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	}

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sessionID
	c.Cookie(&cookie)

	log.Info().Str("user_id", user.ID.String()).Msg("login")
	return response.Success(c, "Login successful", fiber.Map{"user": identity}, nil)
}

// Me GET /api/v1/auth/me. Name, avatar and role are read from the account, not the session.
func (h *Handlers) Me(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		if middleware.GetSessionID(c) != "" {
			log.Debug().Str("path", c.Path()).Msg("session present but carries no user")
		}
		return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
	}
	if h.Users == nil {
		return response.Success(c, "Authenticated", fiber.Map{"user": identity}, nil)
	}
	u, err := h.Users.Get(c.UserContext(), identity.UserID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return response.Error(c, "Not authenticated", fiber.StatusUnauthorized, nil)
		}
		return response.FromError(c, err)
	}
	fresh := authsvc.IdentityOf(u)
	if middleware.GetSessionID(c) != "" {
		middleware.SetSessionUser(c, fresh)
	}
	return response.Success(c, "Authenticated", fiber.Map{"user": fresh}, nil)
}

// Logout DELETE /api/v1/auth/logout: forget the session and clear the cookie.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	ctx := c.UserContext()

	if identity := middleware.CurrentIdentity(c); identity != nil && sessionID != "" {
		_ = h.Rdb.SRem(ctx, userSessionsPrefix+identity.UserID.String(), sessionID).Err()
	}
	if sessionID != "" {
		_ = h.Rdb.Del(ctx, middleware.SessionRedisPrefix+sessionID).Err()
	}
	middleware.DestroySession(c)

	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = ""
	cookie.MaxAge = -1
	c.Cookie(&cookie)

	return response.Success(c, "Logged out successfully", nil, nil)
}
