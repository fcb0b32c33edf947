package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Inventory event types written alongside room mutations.
const (
	EventRoomAvailabilityUpdated = "ROOM_AVAILABILITY_UPDATED"
	EventRoomsReplaced           = "ROOMS_REPLACED"
	EventRoomToggled             = "ROOM_TOGGLED"
	EventRoomBedsUpdated         = "ROOM_BEDS_UPDATED"
	EventRoomCapacityUpdated     = "ROOM_CAPACITY_UPDATED"
	EventPropertyDeactivated     = "PROPERTY_DEACTIVATED"
	EventPropertyCreated         = "PROPERTY_CREATED"
	EventPropertyUpdated         = "PROPERTY_UPDATED"
	EventPropertyDeleted         = "PROPERTY_DELETED"
)

// InventoryEvent is an append-only audit row of a property's inventory history.
type InventoryEvent struct {
	ID         uuid.UUID      `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	PropertyID uuid.UUID      `gorm:"column:property_id;type:char(36);not null;index" json:"propertyId"`
	ActorID    uuid.UUID      `gorm:"column:actor_id;type:char(36);not null" json:"actorId"`
	EventType  string         `gorm:"column:event_type;type:varchar(32);not null" json:"eventType"`
	EventData  datatypes.JSON `gorm:"column:event_data;not null" json:"eventData"`
	Version    int            `gorm:"column:version;not null" json:"version"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
}

func (e *InventoryEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewInventoryEvent builds an event whose payload is data encoded as JSON.
func NewInventoryEvent(propertyID, actorID uuid.UUID, eventType string, version int, data any) InventoryEvent {
	raw, err := json.Marshal(data)
	if err != nil || data == nil {
		raw = []byte("{}")
	}
	return InventoryEvent{
		PropertyID: propertyID,
		ActorID:    actorID,
		EventType:  eventType,
		EventData:  datatypes.JSON(raw),
		Version:    version,
	}
}
