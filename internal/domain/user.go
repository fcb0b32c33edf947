package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// User is a tenant or property owner. ExternalID links accounts created through
// the identity provider; PasswordHash is set for local (session) accounts.
type User struct {
	ID            uuid.UUID      `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	ExternalID    *string        `gorm:"column:external_id;type:varchar(191);uniqueIndex" json:"externalId,omitempty"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Username      *string        `gorm:"column:username;type:varchar(64)" json:"username"`
	Email         string         `gorm:"column:email;type:varchar(191);not null;uniqueIndex" json:"email"`
	PasswordHash  string         `gorm:"column:password_hash" json:"-"`
	AvatarURL     *string        `gorm:"column:avatar_url" json:"image"`
	Role          *string        `gorm:"column:role;type:varchar(16)" json:"role"`
	Phone         *string        `gorm:"column:phone;type:varchar(32)" json:"phone"`
	Address       *string        `gorm:"column:address" json:"address"`
	Bio           *string        `gorm:"column:bio" json:"bio"`
	Language      *string        `gorm:"column:language;type:varchar(16)" json:"language"`
	Theme         *string        `gorm:"column:theme;type:varchar(16)" json:"theme"`
	Notifications datatypes.JSON `gorm:"column:notifications" json:"notifications"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleName returns the role or "NONE" for accounts that have not picked one yet.
func (u *User) RoleName() string {
	if u.Role == nil || *u.Role == "" {
		return "NONE"
	}
	return *u.Role
}
