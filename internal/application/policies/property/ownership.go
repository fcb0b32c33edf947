package policies

import (
	"errors"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotAuthenticated = apperr.Unauthorized("not authenticated")
	ErrPropertyNotFound = apperr.NotFound("property not found")
	ErrNotOwner         = apperr.Forbidden("not owner")
)

// OrderedRooms preloads rooms in their display order.
func OrderedRooms(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}

// LoadProperty reads the property with its rooms and features.
func LoadProperty(db *gorm.DB, propertyID uuid.UUID) (*domain.Property, error) {
	var p domain.Property
	err := db.Preload("Rooms", OrderedRooms).Preload("Features").
		First(&p, "id = ?", propertyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPropertyNotFound
		}
		return nil, err
	}
	return &p, nil
}

// AuthorizeOwner is the gate in front of every property mutation. It returns
// the property only when actor owns it. Checks run in a fixed order: identity,
// existence, ownership.
func AuthorizeOwner(db *gorm.DB, actor *auth.Identity, propertyID uuid.UUID) (*domain.Property, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	p, err := LoadProperty(db, propertyID)
	if err != nil {
		return nil, err
	}
	if !p.OwnedBy(actor.UserID) {
		return nil, ErrNotOwner
	}
	return p, nil
}

// CanView reports whether viewer may see p. Inactive listings are private to their owner.
func CanView(p *domain.Property, viewer *auth.Identity) bool {
	if p.IsActive {
		return true
	}
	return viewer != nil && p.OwnedBy(viewer.UserID)
}

// VisibleRooms strips inactive rooms for anyone but the owner.
func VisibleRooms(p *domain.Property, viewer *auth.Identity) {
	if viewer != nil && p.OwnedBy(viewer.UserID) {
		return
	}
	active := p.Rooms[:0:0]
	for _, r := range p.Rooms {
		if r.IsActive {
			active = append(active, r)
		}
	}
	p.Rooms = active
}
