package auth

import (
	"context"
	"errors"
	"strings"

	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailPasswordRequired = apperr.Validation("email", "email and password are required")
	ErrInvalidCredentials    = apperr.Unauthorized("invalid email or password")
	ErrNotAuthenticated      = apperr.Unauthorized("not authenticated")
)

// LoginInput for login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the acting user of a request, as stored in the session.
type Identity struct {
	UserID uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Image  *string   `json:"image"`
}

// UserFinder abstracts user lookup by email+password (GORM in production, doubles in tests).
type UserFinder interface {
	FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error)
}

// GormUserFinder implements UserFinder using GORM and bcrypt.
type GormUserFinder struct{ DB *gorm.DB }

func (g *GormUserFinder) FindByEmailAndPassword(ctx context.Context, email, password string) (*domain.User, error) {
	return LoginUser(g.DB.WithContext(ctx), LoginInput{Email: email, Password: password})
}

// LoginUser finds the user by email and verifies the password.
func LoginUser(db *gorm.DB, input LoginInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrEmailPasswordRequired
	}
	var u domain.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Persistence("load user", err)
	}
	// Accounts synced from the identity provider have no local password.
	if u.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

// IdentityOf builds the session identity of u.
func IdentityOf(u *domain.User) Identity {
	return Identity{UserID: u.ID, Name: u.Name, Email: u.Email, Role: u.RoleName(), Image: u.AvatarURL}
}

// ToSession encodes the identity in the map shape kept in the session store.
func (i Identity) ToSession() map[string]interface{} {
	m := map[string]interface{}{
		"user_id": i.UserID.String(),
		"name":    i.Name,
		"email":   i.Email,
		"role":    i.Role,
	}
	if i.Image != nil {
		m["image"] = *i.Image
	}
	return m
}

// VerifyUser validates the session user value and returns the acting identity.
func VerifyUser(sessionUser interface{}) (*Identity, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	id, err := uuid.Parse(str(m["user_id"]))
	if err != nil || id == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	out := &Identity{
		UserID: id,
		Name:   str(m["name"]),
		Email:  str(m["email"]),
		Role:   str(m["role"]),
	}
	if img := str(m["image"]); img != "" {
		out.Image = &img
	}
	if out.Role == "" {
		out.Role = "NONE"
	}
	return out, nil
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
