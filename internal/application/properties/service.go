package properties

import (
	"context"
	"time"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/application/inventory"
	policies "stayloft-backend/internal/application/policies/property"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/infrastructure/cache"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service owns the property lifecycle and the tenant-facing reads. Room
// changes go through the inventory service so they share its gate and versioning.
type Service struct {
	DB        *gorm.DB
	Timeout   time.Duration
	Inventory *inventory.Service
	Cache     *cache.Store
	Notifier  inventory.Notifier
}

// Input is a full property submission. A nil Rooms leaves the rooms of an
// existing property untouched; an empty one removes them all.
type Input struct {
	Details domain.PropertyDetails
	Rooms   []domain.RoomSpec
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

func (s *Service) notify(ctx context.Context, p *domain.Property, actorID uuid.UUID, eventType string, roomIDs []uuid.UUID) {
	if s.Notifier != nil {
		s.Notifier.InventoryChanged(ctx, p, actorID, eventType, roomIDs)
	}
}

// Create stores a new property with its rooms and amenities in one transaction.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, in Input) (*domain.Property, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, policies.ErrNotAuthenticated
	}
	p := &domain.Property{ID: uuid.New(), OwnerID: actor.UserID}
	if err := in.Details.Apply(p); err != nil {
		return nil, err
	}
	features, err := in.Details.FeatureRows(p.ID)
	if err != nil {
		return nil, err
	}
	if err := inventory.ValidateRoomSpecs(in.Rooms); err != nil {
		return nil, err
	}
	rooms := make([]domain.Room, 0, len(in.Rooms))
	for i, spec := range in.Rooms {
		r := spec.ToRoom(p.ID)
		r.Position = i
		rooms = append(rooms, r)
	}
	p.Rooms = rooms
	if err := p.ValidateActivation(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperr.FromStore(ctx, "create property", tx.Error)
	}
	if err := tx.Omit("Rooms", "Features", "Owner").Create(p).Error; err != nil {
		tx.Rollback()
		return nil, apperr.FromStore(ctx, "create property", err)
	}
	if len(p.Rooms) > 0 {
		if err := tx.Create(&p.Rooms).Error; err != nil {
			tx.Rollback()
			return nil, apperr.FromStore(ctx, "create property", err)
		}
	}
	if len(features) > 0 {
		if err := tx.Create(&features).Error; err != nil {
			tx.Rollback()
			return nil, apperr.FromStore(ctx, "create property", err)
		}
	}
	event := domain.NewInventoryEvent(p.ID, actor.UserID, domain.EventPropertyCreated, p.Version,
		map[string]any{"rooms": len(p.Rooms), "isActive": p.IsActive})
	if err := tx.Create(&event).Error; err != nil {
		tx.Rollback()
		return nil, apperr.FromStore(ctx, "create property", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, apperr.FromStore(ctx, "create property", err)
	}
	p.Features = features

	log.Info().Str("property_id", p.ID.String()).Str("owner_id", actor.UserID.String()).Int("rooms", len(p.Rooms)).Msg("property created")
	ids := make([]uuid.UUID, 0, len(p.Rooms))
	for _, r := range p.Rooms {
		ids = append(ids, r.ID)
	}
	s.notify(ctx, p, actor.UserID, domain.EventPropertyCreated, ids)
	return p, nil
}

// Get returns one property as viewer may see it. viewer may be nil.
func (s *Service) Get(ctx context.Context, viewer *auth.Identity, id uuid.UUID) (*domain.Property, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	p, err := policies.LoadProperty(s.DB.WithContext(ctx).Preload("Owner"), id)
	if err != nil {
		return nil, apperr.FromStore(ctx, "load property", err)
	}
	if !policies.CanView(p, viewer) {
		return nil, policies.ErrPropertyNotFound
	}
	policies.VisibleRooms(p, viewer)
	return p, nil
}

// ListOwned returns the actor's properties, newest first.
func (s *Service) ListOwned(ctx context.Context, actor *auth.Identity) ([]domain.Property, error) {
	if actor == nil || actor.UserID == uuid.Nil {
		return nil, policies.ErrNotAuthenticated
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	props := []domain.Property{}
	err := s.DB.WithContext(ctx).Preload("Rooms", policies.OrderedRooms).Preload("Features").
		Where("owner_id = ?", actor.UserID).Order("created_at DESC").Find(&props).Error
	if err != nil {
		return nil, apperr.FromStore(ctx, "list properties", err)
	}
	return props, nil
}

// Update rewrites the property fields and, when in.Rooms is set, reconciles
// the rooms with the same protocol as a room replacement.
func (s *Service) Update(ctx context.Context, actor *auth.Identity, id uuid.UUID, in Input, expectedVersion *int) (*domain.Property, error) {
	return s.Inventory.Apply(ctx, actor, id, expectedVersion, "update property", func(tx *gorm.DB, p *domain.Property) (inventory.Mutation, error) {
		if err := in.Details.Apply(p); err != nil {
			return inventory.Mutation{}, err
		}
		features, err := in.Details.FeatureRows(p.ID)
		if err != nil {
			return inventory.Mutation{}, err
		}
		if in.Rooms != nil {
			if err := inventory.ValidateRoomSpecs(in.Rooms); err != nil {
				return inventory.Mutation{}, err
			}
		}

		err = tx.Model(&domain.Property{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"name":             p.Name,
			"type":             p.Type,
			"description":      p.Description,
			"location":         p.Location,
			"tenant_type":      p.TenantType,
			"latitude":         p.Latitude,
			"longitude":        p.Longitude,
			"security_deposit": p.SecurityDeposit,
			"food_included":    p.FoodIncluded,
			"food_price":       p.FoodPrice,
			"bathroom_type":    p.BathroomType,
			"bhk_type":         p.BHKType,
			"furnishing_type":  p.FurnishingType,
			"gender":           p.Gender,
			"images":           p.Images,
		}).Error
		if err != nil {
			return inventory.Mutation{}, err
		}
		if err := tx.Where("property_id = ?", p.ID).Delete(&domain.PropertyFeature{}).Error; err != nil {
			return inventory.Mutation{}, err
		}
		if len(features) > 0 {
			if err := tx.Create(&features).Error; err != nil {
				return inventory.Mutation{}, err
			}
		}
		p.Features = features

		m := inventory.Mutation{EventType: domain.EventPropertyUpdated, ExplicitActive: true}
		if in.Rooms == nil {
			m.Data = map[string]any{"isActive": p.IsActive}
			return m, nil
		}
		diff, err := inventory.ReconcileRooms(tx, p, in.Rooms)
		if err != nil {
			return inventory.Mutation{}, err
		}
		m.Data = map[string]any{"isActive": p.IsActive, "rooms": diff.Summary()}
		m.RoomIDs = diff.RoomIDs()
		return m, nil
	})
}

// Delete removes the property with its rooms, amenities and audit trail.
func (s *Service) Delete(ctx context.Context, actor *auth.Identity, id uuid.UUID) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	tx := s.DB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return apperr.FromStore(ctx, "delete property", tx.Error)
	}
	p, err := policies.AuthorizeOwner(tx, actor, id)
	if err != nil {
		tx.Rollback()
		return apperr.FromStore(ctx, "delete property", err)
	}
	steps := []interface{}{&domain.PropertyFeature{}, &domain.Room{}, &domain.InventoryEvent{}}
	for _, model := range steps {
		if err := tx.Where("property_id = ?", p.ID).Delete(model).Error; err != nil {
			tx.Rollback()
			return apperr.FromStore(ctx, "delete property", err)
		}
	}
	if err := tx.Delete(&domain.Property{}, "id = ?", p.ID).Error; err != nil {
		tx.Rollback()
		return apperr.FromStore(ctx, "delete property", err)
	}
	if err := tx.Commit().Error; err != nil {
		return apperr.FromStore(ctx, "delete property", err)
	}

	log.Info().Str("property_id", p.ID.String()).Str("owner_id", actor.UserID.String()).Msg("property deleted")
	ids := make([]uuid.UUID, 0, len(p.Rooms))
	for _, r := range p.Rooms {
		ids = append(ids, r.ID)
	}
	p.IsActive = false
	s.notify(ctx, p, actor.UserID, domain.EventPropertyDeleted, ids)
	return nil
}
