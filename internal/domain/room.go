package domain

import (
	"math"
	"strings"
	"time"

	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomType matches the RoomType enum of the listing forms.
type RoomType string

const (
	RoomSingle RoomType = "SINGLE"
	RoomDouble RoomType = "DOUBLE"
	RoomTriple RoomType = "TRIPLE"
	RoomBHK1   RoomType = "BHK1"
	RoomBHK2   RoomType = "BHK2"
	RoomBHK3   RoomType = "BHK3"
	RoomCustom RoomType = "CUSTOM"
)

var roomTypes = []RoomType{RoomSingle, RoomDouble, RoomTriple, RoomBHK1, RoomBHK2, RoomBHK3, RoomCustom}

// ParseRoomType normalizes s and reports whether it is a known room type.
func ParseRoomType(s string) (RoomType, bool) {
	t := RoomType(strings.ToUpper(strings.TrimSpace(s)))
	for _, rt := range roomTypes {
		if rt == t {
			return t, true
		}
	}
	return "", false
}

// Room is one bookable room (or room type slot) of a property.
// Invariant: 0 <= AvailableBeds <= Capacity after every mutation.
type Room struct {
	ID            uuid.UUID `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	PropertyID    uuid.UUID `gorm:"column:property_id;type:char(36);not null;index" json:"propertyId"`
	Type          RoomType  `gorm:"column:type;type:varchar(16);not null" json:"type"`
	Name          string    `gorm:"column:name;not null" json:"name"`
	RoomNumber    *string   `gorm:"column:room_number" json:"roomNumber"`
	Price         float64   `gorm:"column:price;type:decimal(12,2);not null" json:"price"`
	Capacity      int       `gorm:"column:capacity;not null" json:"capacity"`
	AvailableBeds int       `gorm:"column:available_beds;not null" json:"availableBeds"`
	IsActive      bool      `gorm:"column:is_active;not null" json:"isActive"`
	Position      int       `gorm:"column:position;not null" json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SetAvailableBeds sets the free bed count. Values above capacity are rejected, not clamped.
func (r *Room) SetAvailableBeds(n int) error {
	if n < 0 {
		return apperr.Validation("availableBeds", "must be zero or greater")
	}
	if n > r.Capacity {
		return apperr.Validation("availableBeds", "exceeds capacity")
	}
	r.AvailableBeds = n
	return nil
}

// SetCapacity changes the total bed count; capacity is the hard ceiling so
// available beds are clamped down to it.
func (r *Room) SetCapacity(capacity int) error {
	if capacity < 1 {
		return apperr.Validation("capacity", "must be at least 1")
	}
	r.Capacity = capacity
	if r.AvailableBeds > capacity {
		r.AvailableBeds = capacity
	}
	return nil
}

// ToggleActive flips the active flag. Bed counts are kept.
func (r *Room) ToggleActive() {
	r.IsActive = !r.IsActive
}

// Bookable reports whether a tenant could take a bed in this room right now.
func (r *Room) Bookable() bool {
	return r.IsActive && r.AvailableBeds > 0
}

// NaturalKey identifies a room across edits when the client does not send its id.
func (r *Room) NaturalKey() string {
	return naturalKey(r.Type, r.RoomNumber)
}

func naturalKey(t RoomType, number *string) string {
	n := ""
	if number != nil {
		n = strings.ToLower(strings.TrimSpace(*number))
	}
	return string(t) + "#" + n
}

// Validate checks every field of a room that is about to be written.
func (r *Room) Validate() error {
	if _, ok := ParseRoomType(string(r.Type)); !ok {
		return apperr.Validation("type", "unknown room type")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.Validation("name", "is required")
	}
	if math.IsNaN(r.Price) || math.IsInf(r.Price, 0) || r.Price <= 0 {
		return apperr.Validation("price", "must be a positive number")
	}
	if r.Capacity < 1 {
		return apperr.Validation("capacity", "must be at least 1")
	}
	if r.AvailableBeds < 0 {
		return apperr.Validation("availableBeds", "must be zero or greater")
	}
	if r.AvailableBeds > r.Capacity {
		return apperr.Validation("availableBeds", "exceeds capacity")
	}
	return nil
}

// RoomSpec is the desired state of one room in a replace or create request.
// ID is optional; when present it must belong to the property being edited.
type RoomSpec struct {
	ID            *uuid.UUID
	Type          RoomType
	Name          string
	RoomNumber    *string
	Price         float64
	Capacity      int
	AvailableBeds int
	IsActive      bool
}

func (s RoomSpec) NaturalKey() string {
	return naturalKey(s.Type, s.RoomNumber)
}

// Apply copies the submitted room onto r, keeping r's identity.
func (s RoomSpec) Apply(r *Room) {
	r.Type = s.Type
	r.Name = strings.TrimSpace(s.Name)
	r.RoomNumber = trimmedPtr(s.RoomNumber)
	r.Price = s.Price
	r.Capacity = s.Capacity
	r.AvailableBeds = s.AvailableBeds
	r.IsActive = s.IsActive
}

// ToRoom builds a new room owned by propertyID.
func (s RoomSpec) ToRoom(propertyID uuid.UUID) Room {
	r := Room{PropertyID: propertyID}
	s.Apply(&r)
	return r
}

func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// RoomAvailability is the per-room-type projection used by the inventory dialog.
type RoomAvailability struct {
	RoomType      RoomType `json:"roomType"`
	TotalBeds     int      `json:"totalBeds"`
	AvailableBeds int      `json:"availableBeds"`
	IsActive      bool     `json:"isActive"`
}

// Availability groups rooms by type, in first-seen order.
func Availability(rooms []Room) []RoomAvailability {
	out := make([]RoomAvailability, 0, len(rooms))
	idx := make(map[RoomType]int)
	for _, r := range rooms {
		i, ok := idx[r.Type]
		if !ok {
			idx[r.Type] = len(out)
			out = append(out, RoomAvailability{RoomType: r.Type})
			i = len(out) - 1
		}
		out[i].TotalBeds += r.Capacity
		out[i].AvailableBeds += r.AvailableBeds
		out[i].IsActive = out[i].IsActive || r.IsActive
	}
	return out
}
