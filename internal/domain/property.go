package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PropertyType string

const (
	PropertyFlat   PropertyType = "FLAT"
	PropertyPG     PropertyType = "PG"
	PropertyHostel PropertyType = "HOSTEL"
)

func ParsePropertyType(s string) (PropertyType, bool) {
	switch t := PropertyType(strings.ToUpper(strings.TrimSpace(s))); t {
	case PropertyFlat, PropertyPG, PropertyHostel:
		return t, true
	}
	return "", false
}

type TenantType string

const (
	TenantBoys  TenantType = "BOYS"
	TenantGirls TenantType = "GIRLS"
	TenantCoed  TenantType = "COED"
)

func ParseTenantType(s string) (TenantType, bool) {
	switch t := TenantType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TenantBoys, TenantGirls, TenantCoed:
		return t, true
	}
	return "", false
}

// Features offered by the listing forms.
var knownFeatures = map[string]bool{
	"WIFI": true, "AC": true, "PARKING": true, "LAUNDRY": true, "TV": true, "FRIDGE": true,
	"KITCHEN": true, "SECURITY": true, "GYM": true, "SWIMMING_POOL": true, "POWER_BACKUP": true,
	"STUDY_TABLE": true, "LIFT": true, "CCTV": true, "FOOD": true, "CLEANING": true,
	"ATTACHED_BATHROOM": true, "GEYSER": true, "FURNISHED": true, "WASHING_MACHINE": true,
}

// ParseFeature normalizes s and reports whether it is a known amenity.
func ParseFeature(s string) (string, bool) {
	f := strings.ToUpper(strings.TrimSpace(s))
	return f, knownFeatures[f]
}

var (
	bathroomTypes   = map[string]bool{"ATTACHED": true, "COMMON": true}
	furnishingTypes = map[string]bool{"FULLY_FURNISHED": true, "SEMI_FURNISHED": true, "UNFURNISHED": true}
)

// PropertyFeature is one amenity row. It marshals as the bare feature name so
// the API sends features as ["WIFI", "AC"].
type PropertyFeature struct {
	PropertyID uuid.UUID `gorm:"column:property_id;type:char(36);primaryKey"`
	Feature    string    `gorm:"column:feature;type:varchar(32);primaryKey"`
}

func (f PropertyFeature) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Feature)
}

func (f *PropertyFeature) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &f.Feature)
}

// Property is a listing (flat, PG or hostel) and the aggregate root of its rooms.
type Property struct {
	ID              uuid.UUID         `gorm:"column:id;type:char(36);primaryKey" json:"id"`
	OwnerID         uuid.UUID         `gorm:"column:owner_id;type:char(36);not null;index" json:"ownerId"`
	Name            string            `gorm:"column:name;not null" json:"name"`
	Type            PropertyType      `gorm:"column:type;type:varchar(16);not null;index" json:"type"`
	Description     string            `gorm:"column:description" json:"description"`
	Location        string            `gorm:"column:location;not null" json:"location"`
	TenantType      TenantType        `gorm:"column:tenant_type;type:varchar(16);not null" json:"tenantType"`
	Latitude        float64           `gorm:"column:latitude" json:"latitude"`
	Longitude       float64           `gorm:"column:longitude" json:"longitude"`
	SecurityDeposit float64           `gorm:"column:security_deposit;type:decimal(12,2);not null" json:"securityDeposit"`
	FoodIncluded    bool              `gorm:"column:food_included;not null" json:"foodIncluded"`
	FoodPrice       *float64          `gorm:"column:food_price;type:decimal(12,2)" json:"foodPrice"`
	BathroomType    string            `gorm:"column:bathroom_type;type:varchar(16)" json:"bathroomType"`
	BHKType         *string           `gorm:"column:bhk_type;type:varchar(16)" json:"bhkType"`
	FurnishingType  string            `gorm:"column:furnishing_type;type:varchar(24)" json:"furnishingType"`
	Gender          *string           `gorm:"column:gender;type:varchar(16)" json:"gender"`
	Images          datatypes.JSON    `gorm:"column:images" json:"images"`
	IsActive        bool              `gorm:"column:is_active;not null;index" json:"isActive"`
	Version         int               `gorm:"column:version;not null" json:"version"`
	Rooms           []Room            `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"rooms"`
	Features        []PropertyFeature `gorm:"foreignKey:PropertyID;constraint:OnDelete:CASCADE" json:"features"`
	Owner           *User             `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	CreatedAt       time.Time         `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

func (p *Property) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// HasBookableRoom reports whether at least one room is active with free beds.
func (p *Property) HasBookableRoom() bool {
	for i := range p.Rooms {
		if p.Rooms[i].Bookable() {
			return true
		}
	}
	return false
}

// ValidateActivation rejects an explicit activation that no room can back.
func (p *Property) ValidateActivation() error {
	if p.IsActive && !p.HasBookableRoom() {
		return apperr.Validation("isActive", "property cannot be active without an active room with available beds")
	}
	return nil
}

// SyncActive deactivates the property when it lost its last bookable room.
// It returns true when the flag changed.
func (p *Property) SyncActive() bool {
	if p.IsActive && !p.HasBookableRoom() {
		p.IsActive = false
		return true
	}
	return false
}

// OwnedBy reports whether userID owns the property.
func (p *Property) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.OwnerID == userID
}

// FeatureNames returns the amenity names.
func (p *Property) FeatureNames() []string {
	out := make([]string, 0, len(p.Features))
	for _, f := range p.Features {
		out = append(out, f.Feature)
	}
	return out
}

// Room returns the room with id, or nil.
func (p *Property) Room(id uuid.UUID) *Room {
	for i := range p.Rooms {
		if p.Rooms[i].ID == id {
			return &p.Rooms[i]
		}
	}
	return nil
}

// PropertyDetails are the owner-editable, non-room fields of a property.
type PropertyDetails struct {
	Name            string
	Type            string
	Description     string
	Location        string
	TenantType      string
	Features        []string
	Latitude        *float64
	Longitude       *float64
	SecurityDeposit float64
	IsActive        bool
	FoodIncluded    bool
	FoodPrice       *float64
	BathroomType    string
	BHKType         *string
	FurnishingType  string
	Gender          *string
	Images          []string
}

// Apply validates d and writes it onto p. Rooms and features are not touched.
func (d PropertyDetails) Apply(p *Property) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return apperr.Validation("name", "is required")
	}
	pt, ok := ParsePropertyType(d.Type)
	if !ok {
		return apperr.Validation("type", "must be one of FLAT, PG, HOSTEL")
	}
	location := strings.TrimSpace(d.Location)
	if location == "" {
		return apperr.Validation("location", "is required")
	}
	tt, ok := ParseTenantType(d.TenantType)
	if !ok {
		return apperr.Validation("tenantType", "must be one of BOYS, GIRLS, COED")
	}
	if invalidAmount(d.SecurityDeposit) || d.SecurityDeposit < 0 {
		return apperr.Validation("securityDeposit", "must be a non-negative number")
	}
	if d.FoodPrice != nil && (invalidAmount(*d.FoodPrice) || *d.FoodPrice < 0) {
		return apperr.Validation("foodPrice", "must be a non-negative number")
	}
	lat, lng := 0.0, 0.0
	if d.Latitude != nil {
		lat = *d.Latitude
	}
	if d.Longitude != nil {
		lng = *d.Longitude
	}
	if invalidAmount(lat) || lat < -90 || lat > 90 {
		return apperr.Validation("latitude", "must be between -90 and 90")
	}
	if invalidAmount(lng) || lng < -180 || lng > 180 {
		return apperr.Validation("longitude", "must be between -180 and 180")
	}
	bathroom := strings.ToUpper(strings.TrimSpace(d.BathroomType))
	if bathroom != "" && !bathroomTypes[bathroom] {
		return apperr.Validation("bathroomType", "must be ATTACHED or COMMON")
	}
	furnishing := strings.ToUpper(strings.TrimSpace(d.FurnishingType))
	if furnishing != "" && !furnishingTypes[furnishing] {
		return apperr.Validation("furnishingType", "must be FULLY_FURNISHED, SEMI_FURNISHED or UNFURNISHED")
	}
	images, err := json.Marshal(nonNilStrings(d.Images))
	if err != nil {
		return apperr.Validation("images", "must be a list of URLs")
	}

	p.Name = name
	p.Type = pt
	p.Description = strings.TrimSpace(d.Description)
	p.Location = location
	p.TenantType = tt
	p.Latitude = lat
	p.Longitude = lng
	p.SecurityDeposit = d.SecurityDeposit
	p.IsActive = d.IsActive
	p.FoodIncluded = d.FoodIncluded
	p.FoodPrice = d.FoodPrice
	if !d.FoodIncluded {
		p.FoodPrice = nil
	}
	p.BathroomType = bathroom
	p.BHKType = trimmedPtr(d.BHKType)
	p.FurnishingType = furnishing
	p.Gender = trimmedPtr(d.Gender)
	p.Images = datatypes.JSON(images)
	return nil
}

// FeatureRows validates the amenity names and returns de-duplicated rows.
func (d PropertyDetails) FeatureRows(propertyID uuid.UUID) ([]PropertyFeature, error) {
	seen := make(map[string]bool, len(d.Features))
	rows := make([]PropertyFeature, 0, len(d.Features))
	for _, s := range d.Features {
		f, ok := ParseFeature(s)
		if !ok {
			return nil, apperr.Validation("features", "unknown feature "+s)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		rows = append(rows, PropertyFeature{PropertyID: propertyID, Feature: f})
	}
	return rows, nil
}

func invalidAmount(f float64) bool {
	return math.IsNaN(f) || math.IsInf(f, 0)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
