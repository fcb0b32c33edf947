package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRoomType(t *testing.T) {
	rt, ok := ParseRoomType(" double ")
	assert.True(t, ok)
	assert.Equal(t, RoomDouble, rt)

	_, ok = ParseRoomType("QUAD")
	assert.False(t, ok)
}

func TestSetAvailableBeds_RejectsOverCapacity(t *testing.T) {
	r := Room{Capacity: 2, AvailableBeds: 1}
	err := r.SetAvailableBeds(3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "availableBeds", apperr.FieldOf(err))
	assert.Equal(t, 1, r.AvailableBeds)
}

func TestSetAvailableBeds_RejectsNegative(t *testing.T) {
	r := Room{Capacity: 2, AvailableBeds: 1}
	require.Error(t, r.SetAvailableBeds(-1))
	assert.Equal(t, 1, r.AvailableBeds)
}

func TestSetAvailableBeds_Bounds(t *testing.T) {
	r := Room{Capacity: 3, AvailableBeds: 1}
	require.NoError(t, r.SetAvailableBeds(0))
	assert.Equal(t, 0, r.AvailableBeds)
	require.NoError(t, r.SetAvailableBeds(3))
	assert.Equal(t, 3, r.AvailableBeds)
}

func TestSetCapacity_ClampsAvailableBeds(t *testing.T) {
	r := Room{Capacity: 3, AvailableBeds: 3}
	require.NoError(t, r.SetCapacity(2))
	assert.Equal(t, 2, r.Capacity)
	assert.Equal(t, 2, r.AvailableBeds)

	require.NoError(t, r.SetCapacity(5))
	assert.Equal(t, 5, r.Capacity)
	assert.Equal(t, 2, r.AvailableBeds)
}

func TestSetCapacity_RejectsZero(t *testing.T) {
	r := Room{Capacity: 3, AvailableBeds: 3}
	err := r.SetCapacity(0)
	require.Error(t, err)
	assert.Equal(t, "capacity", apperr.FieldOf(err))
	assert.Equal(t, 3, r.Capacity)
}

func TestToggleActive_KeepsBeds(t *testing.T) {
	r := Room{Capacity: 2, AvailableBeds: 2, IsActive: true}
	r.ToggleActive()
	assert.False(t, r.IsActive)
	assert.Equal(t, 2, r.AvailableBeds)
	assert.False(t, r.Bookable())
	r.ToggleActive()
	assert.True(t, r.Bookable())
}

func TestRoomValidate(t *testing.T) {
	base := Room{Type: RoomSingle, Name: "Room 1", Price: 5000, Capacity: 1, AvailableBeds: 1}
	require.NoError(t, base.Validate())

	cases := map[string]func(r *Room){
		"type":          func(r *Room) { r.Type = "QUAD" },
		"name":          func(r *Room) { r.Name = "  " },
		"price":         func(r *Room) { r.Price = 0 },
		"capacity":      func(r *Room) { r.Capacity = 0; r.AvailableBeds = 0 },
		"availableBeds": func(r *Room) { r.AvailableBeds = 2 },
	}
	for field, mutate := range cases {
		r := base
		mutate(&r)
		err := r.Validate()
		require.Error(t, err, field)
		assert.Equal(t, field, apperr.FieldOf(err), field)
	}
}

func TestNaturalKey_NormalizesRoomNumber(t *testing.T) {
	a, b := " A1 ", "a1"
	r := Room{Type: RoomDouble, RoomNumber: &a}
	s := RoomSpec{Type: RoomDouble, RoomNumber: &b}
	assert.Equal(t, r.NaturalKey(), s.NaturalKey())
	assert.NotEqual(t, r.NaturalKey(), RoomSpec{Type: RoomSingle, RoomNumber: &b}.NaturalKey())
}

func TestRoomSpec_ToRoom(t *testing.T) {
	pid := uuid.New()
	blank := "  "
	r := RoomSpec{Type: RoomTriple, Name: " Hall ", RoomNumber: &blank, Price: 3000, Capacity: 3, AvailableBeds: 2, IsActive: true}.ToRoom(pid)
	assert.Equal(t, pid, r.PropertyID)
	assert.Equal(t, "Hall", r.Name)
	assert.Nil(t, r.RoomNumber)
	assert.Equal(t, 2, r.AvailableBeds)
}

func TestAvailability_GroupsByType(t *testing.T) {
	rooms := []Room{
		{Type: RoomDouble, Capacity: 2, AvailableBeds: 1, IsActive: false},
		{Type: RoomSingle, Capacity: 1, AvailableBeds: 1, IsActive: true},
		{Type: RoomDouble, Capacity: 2, AvailableBeds: 2, IsActive: true},
	}
	got := Availability(rooms)
	require.Len(t, got, 2)
	assert.Equal(t, RoomAvailability{RoomType: RoomDouble, TotalBeds: 4, AvailableBeds: 3, IsActive: true}, got[0])
	assert.Equal(t, RoomAvailability{RoomType: RoomSingle, TotalBeds: 1, AvailableBeds: 1, IsActive: true}, got[1])

	assert.Empty(t, Availability(nil))
}

func TestProperty_ActiveCoupling(t *testing.T) {
	p := Property{IsActive: true, Rooms: []Room{{Capacity: 2, AvailableBeds: 0, IsActive: true}}}
	err := p.ValidateActivation()
	require.Error(t, err)
	assert.Equal(t, "isActive", apperr.FieldOf(err))

	assert.True(t, p.SyncActive())
	assert.False(t, p.IsActive)
	assert.False(t, p.SyncActive())

	p.Rooms[0].AvailableBeds = 1
	p.IsActive = true
	assert.NoError(t, p.ValidateActivation())
	assert.False(t, p.SyncActive())
}

func TestPropertyFeature_MarshalsAsString(t *testing.T) {
	p := Property{Features: []PropertyFeature{{Feature: "WIFI"}, {Feature: "AC"}}}
	raw, err := json.Marshal(p.Features)
	require.NoError(t, err)
	assert.JSONEq(t, `["WIFI","AC"]`, string(raw))
	assert.Equal(t, []string{"WIFI", "AC"}, p.FeatureNames())
}

func TestPropertyDetails_Apply(t *testing.T) {
	price := 1500.0
	d := PropertyDetails{
		Name: " Sunrise PG ", Type: "pg", Location: "Pune", TenantType: "coed",
		SecurityDeposit: 2000, FoodIncluded: false, FoodPrice: &price,
		BathroomType: "attached", FurnishingType: "semi_furnished",
	}
	var p Property
	require.NoError(t, d.Apply(&p))
	assert.Equal(t, "Sunrise PG", p.Name)
	assert.Equal(t, PropertyPG, p.Type)
	assert.Equal(t, TenantCoed, p.TenantType)
	assert.Nil(t, p.FoodPrice)
	assert.Equal(t, "ATTACHED", p.BathroomType)
	assert.JSONEq(t, `[]`, string(p.Images))

	d.Type = "VILLA"
	assert.Equal(t, "type", apperr.FieldOf(d.Apply(&p)))
}

func TestPropertyDetails_FeatureRows(t *testing.T) {
	pid := uuid.New()
	rows, err := PropertyDetails{Features: []string{"wifi", "WIFI", "ac"}}.FeatureRows(pid)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "WIFI", rows[0].Feature)
	assert.Equal(t, pid, rows[1].PropertyID)

	_, err = PropertyDetails{Features: []string{"HELIPAD"}}.FeatureRows(pid)
	assert.Equal(t, "features", apperr.FieldOf(err))
}

func TestUserRoleName(t *testing.T) {
	u := User{}
	assert.Equal(t, "NONE", u.RoleName())
	owner := "OWNER"
	u.Role = &owner
	assert.Equal(t, "OWNER", u.RoleName())
}

func TestNewInventoryEvent_EncodesPayload(t *testing.T) {
	e := NewInventoryEvent(uuid.New(), uuid.New(), EventRoomToggled, 3, map[string]any{"isActive": false})
	assert.JSONEq(t, `{"isActive":false}`, string(e.EventData))
	assert.Equal(t, 3, e.Version)

	empty := NewInventoryEvent(uuid.New(), uuid.New(), EventRoomsReplaced, 1, nil)
	assert.JSONEq(t, `{}`, string(empty.EventData))
}
