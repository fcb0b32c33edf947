package users

import (
	"context"
	"testing"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUsers(t *testing.T) *Service {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}))
	return &Service{DB: db}
}

func registerAsha(t *testing.T, s *Service) *domain.User {
	u, err := s.Register(context.Background(), RegisterInput{
		Name: "  Asha   Rao ", Username: "asha", Email: "Asha@Example.com", Password: "secret-123",
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s := setupUsers(t)
	u := registerAsha(t, s)
	assert.Equal(t, "Asha Rao", u.Name)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.NotEmpty(t, u.PasswordHash)
	assert.Equal(t, "NONE", u.RoleName())

	_, err := auth.LoginUser(s.DB, auth.LoginInput{Email: "asha@example.com", Password: "secret-123"})
	assert.NoError(t, err)
}

func TestRegister_Duplicates(t *testing.T) {
	s := setupUsers(t)
	registerAsha(t, s)

	_, err := s.Register(context.Background(), RegisterInput{Name: "Other", Username: "other", Email: "asha@example.com", Password: "secret-123"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = s.Register(context.Background(), RegisterInput{Name: "Other", Username: "asha", Email: "other@example.com", Password: "secret-123"})
	assert.EqualError(t, err, "username already registered")
}

func TestRegister_Validation(t *testing.T) {
	s := setupUsers(t)
	cases := map[string]RegisterInput{
		"name":     {Name: "R2D2", Username: "r", Email: "r@example.com", Password: "secret-123"},
		"username": {Name: "Ravi", Username: " ", Email: "r@example.com", Password: "secret-123"},
		"email":    {Name: "Ravi", Username: "r", Email: "nope", Password: "secret-123"},
		"password": {Name: "Ravi", Username: "r", Email: "r@example.com", Password: "short"},
	}
	for field, in := range cases {
		_, err := s.Register(context.Background(), in)
		assert.Equal(t, field, apperr.FieldOf(err), field)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := setupUsers(t)
	_, err := s.Get(context.Background(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSyncExternal_CreatesThenFinds(t *testing.T) {
	s := setupUsers(t)
	claims := &auth.Claims{Email: "neha@example.com", Name: "Neha", Picture: "https://img/n.png",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "idp|neha"}}

	first, err := s.SyncExternal(context.Background(), claims)
	require.NoError(t, err)
	require.NotNil(t, first.Username)
	assert.Equal(t, "neha", *first.Username)
	require.NotNil(t, first.AvatarURL)

	second, err := s.SyncExternal(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	s.DB.Model(&domain.User{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSyncExternal_LinksLocalAccount(t *testing.T) {
	s := setupUsers(t)
	local := registerAsha(t, s)

	u, err := s.SyncExternal(context.Background(), &auth.Claims{Email: "asha@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "idp|asha"}})
	require.NoError(t, err)
	assert.Equal(t, local.ID, u.ID)

	reloaded, err := s.Get(context.Background(), local.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.ExternalID)
	assert.Equal(t, "idp|asha", *reloaded.ExternalID)
}

func TestUpdateRole(t *testing.T) {
	s := setupUsers(t)
	u := registerAsha(t, s)

	updated, err := s.UpdateRole(context.Background(), u.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "OWNER", updated.RoleName())

	_, err = s.UpdateRole(context.Background(), u.ID, "ADMIN")
	assert.Equal(t, "role", apperr.FieldOf(err))

	reloaded, _ := s.Get(context.Background(), u.ID)
	assert.Equal(t, "OWNER", reloaded.RoleName())
}

func TestUpdateProfile(t *testing.T) {
	s := setupUsers(t)
	u := registerAsha(t, s)

	updated, err := s.UpdateProfile(context.Background(), u.ID, ProfileInput{
		Name: "Asha R", Email: "asha.r@example.com", Phone: " 98450 ", Theme: "",
		Notifications: &Notifications{Email: true, BookingUpdates: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "asha.r@example.com", updated.Email)

	reloaded, err := s.Get(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha R", reloaded.Name)
	require.NotNil(t, reloaded.Phone)
	assert.Equal(t, "98450", *reloaded.Phone)
	assert.Nil(t, reloaded.Address)
	assert.Equal(t, "English", *reloaded.Language)
	assert.Equal(t, "system", *reloaded.Theme)
	assert.JSONEq(t, `{"email":true,"push":false,"sms":false,"newMessages":false,"bookingUpdates":true,"paymentReminders":false,"promotions":false}`, string(reloaded.Notifications))
}

func TestUpdateProfile_RequiresNameAndEmail(t *testing.T) {
	s := setupUsers(t)
	u := registerAsha(t, s)
	_, err := s.UpdateProfile(context.Background(), u.ID, ProfileInput{Name: "Asha"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestUpdateProfile_EmailTaken(t *testing.T) {
	s := setupUsers(t)
	u := registerAsha(t, s)
	_, err := s.Register(context.Background(), RegisterInput{Name: "Ravi", Username: "ravi", Email: "ravi@example.com", Password: "secret-123"})
	require.NoError(t, err)

	_, err = s.UpdateProfile(context.Background(), u.ID, ProfileInput{Name: "Asha", Email: "ravi@example.com"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}
