package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/constants"
	"stayloft-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service holds the DB for user operations.
type Service struct {
	DB      *gorm.DB
	Timeout time.Duration
}

func (s *Service) db(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.Timeout <= 0 {
		return s.DB.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	return s.DB.WithContext(ctx), cancel
}

// RegisterInput is the body of the registration endpoint.
type RegisterInput struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a local account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	if !validation.IsValidName(name) {
		return nil, apperr.Validation("name", "is required and may only contain letters, spaces, hyphens and apostrophes")
	}
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, apperr.Validation("username", "is required")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !validation.IsValidEmail(email) {
		return nil, apperr.Validation("email", "invalid email format")
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, apperr.Validation("password", "must be at least 8 characters with a letter, a number and a symbol")
	}

	db, cancel := s.db(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperr.Persistence("check email", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("email already registered")
	}
	if err := db.Model(&domain.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, apperr.Persistence("check username", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("username already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Name:         name,
		Username:     &username,
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := db.Create(u).Error; err != nil {
		return nil, apperr.Persistence("create user", err)
	}
	return u, nil
}

// Get loads a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	db, cancel := s.db(ctx)
	defer cancel()

	var u domain.User
	if err := db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Persistence("load user", err)
	}
	return &u, nil
}

// SyncExternal returns the user linked to the identity provider subject,
// creating it on first sight. A local account with the same email is linked
// instead of duplicated.
func (s *Service) SyncExternal(ctx context.Context, claims *auth.Claims) (*domain.User, error) {
	if claims == nil || claims.Subject == "" {
		return nil, auth.ErrNotAuthenticated
	}
	db, cancel := s.db(ctx)
	defer cancel()

	var u domain.User
	err := db.Where("external_id = ?", claims.Subject).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Persistence("load user", err)
	}

	email := strings.ToLower(strings.TrimSpace(claims.Email))
	subject := claims.Subject
	err = db.Where("email = ?", email).First(&u).Error
	switch {
	case err == nil:
		if err := db.Model(&u).Update("external_id", subject).Error; err != nil {
			return nil, apperr.Persistence("link user", err)
		}
		u.ExternalID = &subject
		return &u, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperr.Persistence("load user", err)
	}

	username := strings.SplitN(email, "@", 2)[0]
	u = domain.User{
		ExternalID: &subject,
		Name:       strings.TrimSpace(claims.Name),
		Username:   &username,
		Email:      email,
	}
	if u.Name == "" {
		u.Name = username
	}
	if claims.Picture != "" {
		pic := claims.Picture
		u.AvatarURL = &pic
	}
	if err := db.Create(&u).Error; err != nil {
		return nil, apperr.Persistence("create user", err)
	}
	return &u, nil
}

// UpdateRole sets the caller's role to TENANT or OWNER.
func (s *Service) UpdateRole(ctx context.Context, id uuid.UUID, role string) (*domain.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !constants.IsSelectableRole(role) {
		return nil, apperr.Validation("role", "must be TENANT or OWNER")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	db, cancel := s.db(ctx)
	defer cancel()
	if err := db.Model(u).Update("role", role).Error; err != nil {
		return nil, apperr.Persistence("update role", err)
	}
	u.Role = &role
	return u, nil
}

// Notifications are the per-channel notification preferences of a profile.
type Notifications struct {
	Email            bool `json:"email"`
	Push             bool `json:"push"`
	SMS              bool `json:"sms"`
	NewMessages      bool `json:"newMessages"`
	BookingUpdates   bool `json:"bookingUpdates"`
	PaymentReminders bool `json:"paymentReminders"`
	Promotions       bool `json:"promotions"`
}

// ProfileInput is the body of the profile endpoint.
type ProfileInput struct {
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	Address       string         `json:"address"`
	Bio           string         `json:"bio"`
	Language      string         `json:"language"`
	Theme         string         `json:"theme"`
	Notifications *Notifications `json:"notifications"`
}

// UpdateProfile replaces the editable profile fields of the user.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*domain.User, error) {
	name := strings.Join(strings.Fields(in.Name), " ")
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, apperr.Validation("name", "name and email are required")
	}
	if !validation.IsValidEmail(email) {
		return nil, apperr.Validation("email", "invalid email format")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	db, cancel := s.db(ctx)
	defer cancel()

	if email != u.Email {
		var count int64
		if err := db.Model(&domain.User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
			return nil, apperr.Persistence("check email", err)
		}
		if count > 0 {
			return nil, apperr.Conflict("email already registered")
		}
	}

	var notifications datatypes.JSON
	if in.Notifications != nil {
		raw, err := json.Marshal(in.Notifications)
		if err != nil {
			return nil, apperr.Validation("notifications", "invalid preferences")
		}
		notifications = datatypes.JSON(raw)
	}

	u.Name = name
	u.Email = email
	u.Phone = optional(in.Phone)
	u.Address = optional(in.Address)
	u.Bio = optional(in.Bio)
	u.Language = withDefault(in.Language, "English")
	u.Theme = withDefault(in.Theme, "system")
	u.Notifications = notifications

	err = db.Model(u).Select("name", "email", "phone", "address", "bio", "language", "theme", "notifications").
		Updates(u).Error
	if err != nil {
		return nil, apperr.Persistence("update profile", err)
	}
	return u, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func withDefault(s, def string) *string {
	if v := optional(s); v != nil {
		return v
	}
	return &def
}
