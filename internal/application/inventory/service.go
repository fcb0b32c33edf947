package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stayloft-backend/internal/application/auth"
	policies "stayloft-backend/internal/application/policies/property"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notifier is told about every committed change.
type Notifier interface {
	InventoryChanged(ctx context.Context, p *domain.Property, actorID uuid.UUID, eventType string, roomIDs []uuid.UUID)
}

// Service applies room inventory changes to a property. Every change runs in
// one transaction behind the ownership gate and bumps the property version.
type Service struct {
	DB       *gorm.DB
	Timeout  time.Duration
	Notifier Notifier
}

// ErrStaleVersion is returned when the property changed after the caller read it.
var ErrStaleVersion = apperr.Conflict("property was modified by another request; reload and retry")

// Mutation is the outcome of a change function run by Apply.
type Mutation struct {
	EventType string
	Data      any
	RoomIDs   []uuid.UUID
	// ExplicitActive is set when the caller chose isActive; activation is then
	// validated instead of the property being deactivated automatically.
	ExplicitActive bool
}

// ChangeFunc mutates p inside tx. It must validate everything before writing.
type ChangeFunc func(tx *gorm.DB, p *domain.Property) (Mutation, error)

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// Apply runs change against the property behind the ownership gate.
func (s *Service) Apply(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID, expectedVersion *int, op string, change ChangeFunc) (*domain.Property, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperr.FromStore(ctx, op, tx.Error)
	}
	p, m, err := s.applyTx(tx, actor, propertyID, expectedVersion, change)
	if err != nil {
		tx.Rollback()
		return nil, apperr.FromStore(ctx, op, err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperr.FromStore(ctx, op, err)
	}

	log.Info().Str("property_id", p.ID.String()).Str("event_type", m.EventType).Int("version", p.Version).
		Bool("is_active", p.IsActive).Msg("inventory change committed")
	if s.Notifier != nil {
		s.Notifier.InventoryChanged(ctx, p, actor.UserID, m.EventType, m.RoomIDs)
	}
	return p, nil
}

func (s *Service) applyTx(tx *gorm.DB, actor *auth.Identity, propertyID uuid.UUID, expectedVersion *int, change ChangeFunc) (*domain.Property, Mutation, error) {
	p, err := policies.AuthorizeOwner(tx, actor, propertyID)
	if err != nil {
		return nil, Mutation{}, err
	}
	if expectedVersion != nil && *expectedVersion != p.Version {
		return nil, Mutation{}, ErrStaleVersion
	}

	m, err := change(tx, p)
	if err != nil {
		return nil, Mutation{}, err
	}

	deactivated := false
	if m.ExplicitActive {
		if err := p.ValidateActivation(); err != nil {
			return nil, Mutation{}, err
		}
	} else {
		deactivated = p.SyncActive()
	}

	loaded := p.Version
	res := tx.Model(&domain.Property{}).
		Where("id = ? AND version = ?", p.ID, loaded).
		Updates(map[string]interface{}{
			"version":    loaded + 1,
			"is_active":  p.IsActive,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, Mutation{}, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, Mutation{}, ErrStaleVersion
	}
	p.Version = loaded + 1

	events := []domain.InventoryEvent{
		domain.NewInventoryEvent(p.ID, actor.UserID, m.EventType, p.Version, m.Data),
	}
	if deactivated {
		events = append(events, domain.NewInventoryEvent(p.ID, actor.UserID, domain.EventPropertyDeactivated, p.Version,
			map[string]any{"reason": "no active room with available beds"}))
	}
	if err := tx.Create(&events).Error; err != nil {
		return nil, Mutation{}, err
	}
	return p, m, nil
}

func saveRoom(tx *gorm.DB, r *domain.Room) error {
	return tx.Model(&domain.Room{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
		"type":           r.Type,
		"name":           r.Name,
		"room_number":    r.RoomNumber,
		"price":          r.Price,
		"capacity":       r.Capacity,
		"available_beds": r.AvailableBeds,
		"is_active":      r.IsActive,
		"position":       r.Position,
		"updated_at":     time.Now(),
	}).Error
}

// reason drops the field prefix so the error can be re-keyed to the request entry.
func reason(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func roomNotFound() error {
	return apperr.NotFound("room not found")
}

// ToggleRoomActive flips the active flag of one room.
func (s *Service) ToggleRoomActive(ctx context.Context, actor *auth.Identity, propertyID, roomID uuid.UUID) (*domain.Property, error) {
	return s.Apply(ctx, actor, propertyID, nil, "toggle room", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		r := p.Room(roomID)
		if r == nil {
			return Mutation{}, roomNotFound()
		}
		r.ToggleActive()
		if err := saveRoom(tx, r); err != nil {
			return Mutation{}, err
		}
		return Mutation{
			EventType: domain.EventRoomToggled,
			Data:      map[string]any{"roomId": r.ID, "isActive": r.IsActive},
			RoomIDs:   []uuid.UUID{r.ID},
		}, nil
	})
}

// SetAvailableBeds sets the free bed count of one room.
func (s *Service) SetAvailableBeds(ctx context.Context, actor *auth.Identity, propertyID, roomID uuid.UUID, n int) (*domain.Property, error) {
	return s.Apply(ctx, actor, propertyID, nil, "update available beds", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		r := p.Room(roomID)
		if r == nil {
			return Mutation{}, roomNotFound()
		}
		before := r.AvailableBeds
		if err := r.SetAvailableBeds(n); err != nil {
			return Mutation{}, err
		}
		if err := saveRoom(tx, r); err != nil {
			return Mutation{}, err
		}
		return Mutation{
			EventType: domain.EventRoomBedsUpdated,
			Data:      map[string]any{"roomId": r.ID, "from": before, "to": r.AvailableBeds},
			RoomIDs:   []uuid.UUID{r.ID},
		}, nil
	})
}

// SetCapacity changes the total beds of one room, clamping its free beds.
func (s *Service) SetCapacity(ctx context.Context, actor *auth.Identity, propertyID, roomID uuid.UUID, capacity int) (*domain.Property, error) {
	return s.Apply(ctx, actor, propertyID, nil, "update capacity", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		r := p.Room(roomID)
		if r == nil {
			return Mutation{}, roomNotFound()
		}
		before := r.Capacity
		if err := r.SetCapacity(capacity); err != nil {
			return Mutation{}, err
		}
		if err := saveRoom(tx, r); err != nil {
			return Mutation{}, err
		}
		return Mutation{
			EventType: domain.EventRoomCapacityUpdated,
			Data:      map[string]any{"roomId": r.ID, "from": before, "to": r.Capacity, "availableBeds": r.AvailableBeds},
			RoomIDs:   []uuid.UUID{r.ID},
		}, nil
	})
}

// AvailabilityChange is one entry of an availability update, keyed by room type.
type AvailabilityChange struct {
	RoomType      domain.RoomType `json:"roomType"`
	TotalBeds     int             `json:"totalBeds"`
	AvailableBeds *int            `json:"availableBeds,omitempty"`
	IsActive      *bool           `json:"isActive,omitempty"`
}

// UpdateRoomAvailability applies capacity (and optionally free beds and the
// active flag) to every room of each listed type. All entries are validated
// against copies before any row is written.
func (s *Service) UpdateRoomAvailability(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID, changes []AvailabilityChange, expectedVersion *int) (*domain.Property, error) {
	return s.Apply(ctx, actor, propertyID, expectedVersion, "update room availability", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		if len(changes) == 0 {
			return Mutation{}, apperr.Validation("rooms", "at least one room type is required")
		}
		seen := make(map[domain.RoomType]bool, len(changes))
		updated := make([]domain.Room, len(p.Rooms))
		copy(updated, p.Rooms)
		touched := make(map[int]bool)

		for i, c := range changes {
			field := func(name string) string { return fmt.Sprintf("rooms[%d].%s", i, name) }
			rt, ok := domain.ParseRoomType(string(c.RoomType))
			if !ok {
				return Mutation{}, apperr.Validation(field("roomType"), "unknown room type")
			}
			if seen[rt] {
				return Mutation{}, apperr.Validation(field("roomType"), "listed more than once")
			}
			seen[rt] = true

			matched := false
			for j := range updated {
				r := &updated[j]
				if r.Type != rt {
					continue
				}
				matched = true
				if err := r.SetCapacity(c.TotalBeds); err != nil {
					return Mutation{}, apperr.Validation(field("totalBeds"), reason(err))
				}
				if c.AvailableBeds != nil {
					if err := r.SetAvailableBeds(*c.AvailableBeds); err != nil {
						return Mutation{}, apperr.Validation(field("availableBeds"), reason(err))
					}
				}
				if c.IsActive != nil {
					r.IsActive = *c.IsActive
				}
				touched[j] = true
			}
			if !matched {
				return Mutation{}, apperr.NotFound(fmt.Sprintf("no %s room on this property", rt))
			}
		}

		ids := make([]uuid.UUID, 0, len(touched))
		for j := range updated {
			if !touched[j] {
				continue
			}
			if err := saveRoom(tx, &updated[j]); err != nil {
				return Mutation{}, err
			}
			ids = append(ids, updated[j].ID)
		}
		p.Rooms = updated
		return Mutation{
			EventType: domain.EventRoomAvailabilityUpdated,
			Data:      map[string]any{"changes": changes},
			RoomIDs:   ids,
		}, nil
	})
}

// ReplaceRooms makes the property's rooms equal to specs. Rooms are matched by
// id, then by type and room number; matched rooms keep their ids, unmatched
// existing rooms are deleted and the rest inserted.
func (s *Service) ReplaceRooms(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID, specs []domain.RoomSpec, expectedVersion *int) (*domain.Property, error) {
	p, err := s.Apply(ctx, actor, propertyID, expectedVersion, "replace rooms", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		diff, err := ReconcileRooms(tx, p, specs)
		if err != nil {
			return Mutation{}, err
		}
		return Mutation{
			EventType: domain.EventRoomsReplaced,
			Data:      diff.Summary(),
			RoomIDs:   diff.RoomIDs(),
		}, nil
	})
	if err != nil && apperr.KindOf(err) == apperr.KindPersistence {
		return nil, apperr.Retryable("rooms were not replaced; no change was applied, retry", err)
	}
	return p, err
}

// RoomAvailability returns the per-type projection of the owner's rooms.
func (s *Service) RoomAvailability(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID) ([]domain.RoomAvailability, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	p, err := policies.AuthorizeOwner(s.DB.WithContext(ctx), actor, propertyID)
	if err != nil {
		return nil, apperr.FromStore(ctx, "load rooms", err)
	}
	return domain.Availability(p.Rooms), nil
}

// Events lists the audit trail of a property, newest first.
func (s *Service) Events(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID, limit int) ([]domain.InventoryEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	db := s.DB.WithContext(ctx)
	if _, err := policies.AuthorizeOwner(db, actor, propertyID); err != nil {
		return nil, apperr.FromStore(ctx, "load events", err)
	}
	var events []domain.InventoryEvent
	if err := db.Where("property_id = ?", propertyID).
		Order("created_at DESC").Order("version DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, apperr.FromStore(ctx, "load events", err)
	}
	return events, nil
}
