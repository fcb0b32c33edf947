package users

import (
	authsvc "stayloft-backend/internal/application/auth"
	usersvc "stayloft-backend/internal/application/users"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

// Handlers serves account endpoints. Rdb is used to track sessions opened at registration.
type Handlers struct {
	Service *usersvc.Service
	Rdb     *redis.Client
	Config  middleware.SessionConfig
}

// Register POST /api/v1/users/register: create the account and sign it in.
func (h *Handlers) Register(c *fiber.Ctx) error {
	var req usersvc.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.Register(c.UserContext(), req)
	if err != nil {
		return response.FromError(c, err)
	}

	sid := middleware.RegenerateSessionID(c)
	middleware.SetSessionUser(c, authsvc.IdentityOf(u))
	if h.Rdb != nil {
		if err := h.Rdb.SAdd(c.UserContext(), userSessionsPrefix+u.ID.String(), sid).Err(); err != nil {
			log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("session tracking failed")
		}
	}
	cookie := middleware.SessionCookieConfig(h.Config)
	cookie.Value = "s:" + sid
	c.Cookie(&cookie)

	log.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return response.SuccessCreated(c, "User registered successfully", fiber.Map{"user": u}, nil)
}

// Me GET /api/v1/users/me
func (h *Handlers) Me(c *fiber.Ctx) error {
	u, err := h.current(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User fetched successfully", u, nil)
}

// Role GET /api/v1/users/me/role. Accounts without a role report NONE.
func (h *Handlers) Role(c *fiber.Ctx) error {
	u, err := h.current(c)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Role fetched successfully", fiber.Map{"role": u.RoleName()}, nil)
}

type roleRequest struct {
	Role string `json:"role"`
}

// UpdateRole PATCH /api/v1/users/me/role
func (h *Handlers) UpdateRole(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return response.FromError(c, authsvc.ErrNotAuthenticated)
	}
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "role is required", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.UpdateRole(c.UserContext(), identity.UserID, req.Role)
	if err != nil {
		return response.FromError(c, err)
	}
	h.refreshSession(c, u)
	return response.Success(c, "Role updated successfully", fiber.Map{"role": u.RoleName()}, nil)
}

// UpdateProfile PUT /api/v1/users/me/profile
func (h *Handlers) UpdateProfile(c *fiber.Ctx) error {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return response.FromError(c, authsvc.ErrNotAuthenticated)
	}
	var req usersvc.ProfileInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Request body must be a JSON object", fiber.StatusBadRequest, nil)
	}
	u, err := h.Service.UpdateProfile(c.UserContext(), identity.UserID, req)
	if err != nil {
		return response.FromError(c, err)
	}
	h.refreshSession(c, u)
	return response.Success(c, "Profile updated successfully", u, nil)
}

func (h *Handlers) current(c *fiber.Ctx) (*domain.User, error) {
	identity := middleware.CurrentIdentity(c)
	if identity == nil {
		return nil, authsvc.ErrNotAuthenticated
	}
	return h.Service.Get(c.UserContext(), identity.UserID)
}

// refreshSession keeps a cookie session in step with the account.
func (h *Handlers) refreshSession(c *fiber.Ctx, u *domain.User) {
	if middleware.GetSessionID(c) != "" {
		middleware.SetSessionUser(c, authsvc.IdentityOf(u))
	}
}
