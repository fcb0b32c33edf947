package notify

import (
	"context"
	"time"

	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/infrastructure/cache"
	"stayloft-backend/internal/infrastructure/messaging"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Cache namespaces holding tenant-facing listing reads.
const (
	NamespaceSearch = "search"
	NamespaceNearby = "nearby"
)

const notifyTimeout = 3 * time.Second

// Notifier invalidates downstream views after a committed inventory change.
// Failures are logged; the change itself is already durable.
type Notifier struct {
	Cache     *cache.Store
	Publisher messaging.Publisher
}

// InventoryChanged runs after commit. It is safe on a nil Notifier.
func (n *Notifier) InventoryChanged(ctx context.Context, p *domain.Property, actorID uuid.UUID, eventType string, roomIDs []uuid.UUID) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, ns := range []string{NamespaceSearch, NamespaceNearby} {
		if err := n.Cache.Invalidate(ctx, ns); err != nil {
			log.Warn().Err(err).Str("namespace", ns).Str("property_id", p.ID.String()).Msg("cache invalidation failed")
		}
	}

	if n.Publisher == nil {
		return
	}
	ids := make([]string, 0, len(roomIDs))
	for _, id := range roomIDs {
		ids = append(ids, id.String())
	}
	event := messaging.InventoryChanged{
		PropertyID: p.ID.String(),
		ActorID:    actorID.String(),
		EventType:  eventType,
		Version:    p.Version,
		IsActive:   p.IsActive,
		RoomIDs:    ids,
		OccurredAt: time.Now().UTC(),
	}
	if err := n.Publisher.PublishInventoryChanged(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Str("property_id", event.PropertyID).Msg("inventory event not published")
	}
}
