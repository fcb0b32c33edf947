package inventory

import (
	"context"
	"testing"
	"time"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	calls []string
}

func (r *recordingNotifier) InventoryChanged(_ context.Context, _ *domain.Property, _ uuid.UUID, eventType string, _ []uuid.UUID) {
	r.calls = append(r.calls, eventType)
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	notifier *recordingNotifier
	owner    *auth.Identity
	stranger *auth.Identity
	property domain.Property
}

func newFixture(t *testing.T, rooms ...domain.Room) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Property{}, &domain.Room{}, &domain.PropertyFeature{}, &domain.InventoryEvent{}))

	owner := domain.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)
	for i := range rooms {
		rooms[i].Position = i
	}
	p := domain.Property{
		OwnerID: owner.ID, Name: "Lakeview PG", Type: domain.PropertyPG, Location: "Koregaon Park, Pune",
		TenantType: domain.TenantCoed, SecurityDeposit: 5000, IsActive: true, Rooms: rooms,
	}
	require.NoError(t, db.Create(&p).Error)

	n := &recordingNotifier{}
	return &fixture{
		svc:      &Service{DB: db, Timeout: 5 * time.Second, Notifier: n},
		db:       db,
		notifier: n,
		owner:    &auth.Identity{UserID: owner.ID, Role: "OWNER"},
		stranger: &auth.Identity{UserID: uuid.New(), Role: "OWNER"},
		property: p,
	}
}

func (f *fixture) rooms(t *testing.T) []domain.Room {
	t.Helper()
	var rooms []domain.Room
	require.NoError(t, f.db.Where("property_id = ?", f.property.ID).Order("position ASC").Find(&rooms).Error)
	return rooms
}

func (f *fixture) reload(t *testing.T) domain.Property {
	t.Helper()
	var p domain.Property
	require.NoError(t, f.db.First(&p, "id = ?", f.property.ID).Error)
	return p
}

func (f *fixture) events(t *testing.T) []domain.InventoryEvent {
	t.Helper()
	var events []domain.InventoryEvent
	require.NoError(t, f.db.Where("property_id = ?", f.property.ID).Order("created_at ASC").Find(&events).Error)
	return events
}

func single(capacity, beds int, active bool) domain.Room {
	return domain.Room{Type: domain.RoomSingle, Name: "Single", Price: 6000, Capacity: capacity, AvailableBeds: beds, IsActive: active}
}

func double(capacity, beds int, active bool) domain.Room {
	return domain.Room{Type: domain.RoomDouble, Name: "Double", Price: 4500, Capacity: capacity, AvailableBeds: beds, IsActive: active}
}

func TestUpdateRoomAvailability_ClampsAvailableBeds(t *testing.T) {
	f := newFixture(t, single(4, 4, true))

	p, err := f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID,
		[]AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)

	rooms := f.rooms(t)
	require.Len(t, rooms, 1)
	assert.Equal(t, 2, rooms[0].Capacity)
	assert.Equal(t, 2, rooms[0].AvailableBeds)
	assert.True(t, rooms[0].IsActive)
	assert.True(t, f.reload(t).IsActive)
	assert.Equal(t, []string{domain.EventRoomAvailabilityUpdated}, f.notifier.calls)
}

func TestUpdateRoomAvailability_AppliesToEveryRoomOfType(t *testing.T) {
	f := newFixture(t, double(2, 1, true), single(1, 1, true), double(3, 3, false))
	beds := 1
	active := true

	_, err := f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID,
		[]AvailabilityChange{{RoomType: domain.RoomDouble, TotalBeds: 2, AvailableBeds: &beds, IsActive: &active}}, nil)
	require.NoError(t, err)

	rooms := f.rooms(t)
	for _, r := range rooms {
		if r.Type != domain.RoomDouble {
			assert.Equal(t, 1, r.Capacity)
			continue
		}
		assert.Equal(t, 2, r.Capacity)
		assert.Equal(t, 1, r.AvailableBeds)
		assert.True(t, r.IsActive)
	}
}

func TestUpdateRoomAvailability_ValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t, single(4, 4, true), double(2, 2, true))
	tooMany := 5

	_, err := f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID, []AvailabilityChange{
		{RoomType: domain.RoomSingle, TotalBeds: 1},
		{RoomType: domain.RoomDouble, TotalBeds: 2, AvailableBeds: &tooMany},
	}, nil)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "rooms[1].availableBeds", apperr.FieldOf(err))

	rooms := f.rooms(t)
	assert.Equal(t, 4, rooms[0].Capacity)
	assert.Equal(t, 4, rooms[0].AvailableBeds)
	assert.Equal(t, 1, f.reload(t).Version)
	assert.Empty(t, f.events(t))
	assert.Empty(t, f.notifier.calls)
}

func TestUpdateRoomAvailability_Errors(t *testing.T) {
	f := newFixture(t, single(4, 4, true))
	ctx := context.Background()

	_, err := f.svc.UpdateRoomAvailability(ctx, f.owner, f.property.ID, []AvailabilityChange{{RoomType: domain.RoomTriple, TotalBeds: 3}}, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svc.UpdateRoomAvailability(ctx, f.owner, f.property.ID, []AvailabilityChange{{RoomType: "QUAD", TotalBeds: 3}}, nil)
	assert.Equal(t, "rooms[0].roomType", apperr.FieldOf(err))

	_, err = f.svc.UpdateRoomAvailability(ctx, f.owner, f.property.ID, []AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 0}}, nil)
	assert.Equal(t, "rooms[0].totalBeds", apperr.FieldOf(err))

	_, err = f.svc.UpdateRoomAvailability(ctx, f.owner, f.property.ID, nil, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.UpdateRoomAvailability(ctx, f.owner, f.property.ID, []AvailabilityChange{
		{RoomType: domain.RoomSingle, TotalBeds: 3}, {RoomType: "single", TotalBeds: 2},
	}, nil)
	assert.Equal(t, "rooms[1].roomType", apperr.FieldOf(err))
}

func TestMutations_ForbiddenLeavesRecordsIdentical(t *testing.T) {
	f := newFixture(t, single(4, 3, true), double(2, 2, false))
	ctx := context.Background()
	beforeRooms := f.rooms(t)
	beforeProperty := f.reload(t)
	roomID := beforeRooms[0].ID

	calls := map[string]func() error{
		"toggle": func() error {
			_, err := f.svc.ToggleRoomActive(ctx, f.stranger, f.property.ID, roomID)
			return err
		},
		"beds": func() error {
			_, err := f.svc.SetAvailableBeds(ctx, f.stranger, f.property.ID, roomID, 1)
			return err
		},
		"capacity": func() error {
			_, err := f.svc.SetCapacity(ctx, f.stranger, f.property.ID, roomID, 1)
			return err
		},
		"availability": func() error {
			_, err := f.svc.UpdateRoomAvailability(ctx, f.stranger, f.property.ID, []AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 1}}, nil)
			return err
		},
		"replace": func() error {
			_, err := f.svc.ReplaceRooms(ctx, f.stranger, f.property.ID, nil, nil)
			return err
		},
	}
	for name, call := range calls {
		err := call()
		require.Error(t, err, name)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), name)
	}

	assert.Equal(t, beforeRooms, f.rooms(t))
	after := f.reload(t)
	assert.Equal(t, beforeProperty.Version, after.Version)
	assert.Equal(t, beforeProperty.IsActive, after.IsActive)
	assert.Equal(t, beforeProperty.UpdatedAt, after.UpdatedAt)
	assert.Empty(t, f.events(t))
	assert.Empty(t, f.notifier.calls)
}

func TestMutations_Unauthenticated(t *testing.T) {
	f := newFixture(t, single(1, 1, true))
	_, err := f.svc.ToggleRoomActive(context.Background(), nil, f.property.ID, f.rooms(t)[0].ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestMutations_PropertyNotFound(t *testing.T) {
	f := newFixture(t, single(1, 1, true))
	_, err := f.svc.ToggleRoomActive(context.Background(), f.owner, uuid.New(), uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.EqualError(t, err, "property not found")
}

func TestToggleRoomActive_KeepsBedCounts(t *testing.T) {
	f := newFixture(t, single(4, 3, true), double(2, 2, true))
	roomID := f.rooms(t)[0].ID

	_, err := f.svc.ToggleRoomActive(context.Background(), f.owner, f.property.ID, roomID)
	require.NoError(t, err)

	r := f.rooms(t)[0]
	assert.False(t, r.IsActive)
	assert.Equal(t, 4, r.Capacity)
	assert.Equal(t, 3, r.AvailableBeds)
	assert.True(t, f.reload(t).IsActive)

	_, err = f.svc.ToggleRoomActive(context.Background(), f.owner, f.property.ID, uuid.New())
	assert.EqualError(t, err, "room not found")
}

func TestToggleRoomActive_LastBookableRoomDeactivatesProperty(t *testing.T) {
	f := newFixture(t, single(1, 1, true), double(2, 0, true))
	roomID := f.rooms(t)[0].ID

	p, err := f.svc.ToggleRoomActive(context.Background(), f.owner, f.property.ID, roomID)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
	assert.False(t, f.reload(t).IsActive)

	events := f.events(t)
	require.Len(t, events, 2)
	types := []string{events[0].EventType, events[1].EventType}
	assert.ElementsMatch(t, []string{domain.EventRoomToggled, domain.EventPropertyDeactivated}, types)
}

func TestSetAvailableBeds(t *testing.T) {
	f := newFixture(t, single(2, 1, true))
	roomID := f.rooms(t)[0].ID

	_, err := f.svc.SetAvailableBeds(context.Background(), f.owner, f.property.ID, roomID, 3)
	require.Error(t, err)
	assert.Equal(t, "availableBeds", apperr.FieldOf(err))
	assert.Equal(t, 1, f.rooms(t)[0].AvailableBeds)

	_, err = f.svc.SetAvailableBeds(context.Background(), f.owner, f.property.ID, roomID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.rooms(t)[0].AvailableBeds)
}

func TestSetAvailableBeds_ZeroDeactivatesProperty(t *testing.T) {
	f := newFixture(t, single(2, 1, true))
	roomID := f.rooms(t)[0].ID

	p, err := f.svc.SetAvailableBeds(context.Background(), f.owner, f.property.ID, roomID, 0)
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestSetCapacity(t *testing.T) {
	f := newFixture(t, single(4, 4, true))
	roomID := f.rooms(t)[0].ID

	_, err := f.svc.SetCapacity(context.Background(), f.owner, f.property.ID, roomID, 0)
	assert.Equal(t, "capacity", apperr.FieldOf(err))

	_, err = f.svc.SetCapacity(context.Background(), f.owner, f.property.ID, roomID, 3)
	require.NoError(t, err)
	r := f.rooms(t)[0]
	assert.Equal(t, 3, r.Capacity)
	assert.Equal(t, 3, r.AvailableBeds)
}

func TestExpectedVersionMismatch(t *testing.T) {
	f := newFixture(t, single(4, 4, true))
	stale := 7

	_, err := f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID,
		[]AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 2}}, &stale)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, 4, f.rooms(t)[0].Capacity)

	current := 1
	_, err = f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID,
		[]AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 2}}, &current)
	require.NoError(t, err)

	_, err = f.svc.UpdateRoomAvailability(context.Background(), f.owner, f.property.ID,
		[]AvailabilityChange{{RoomType: domain.RoomSingle, TotalBeds: 3}}, &current)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestApply_ConcurrentWriteIsRejected(t *testing.T) {
	f := newFixture(t, single(4, 4, true))

	_, err := f.svc.Apply(context.Background(), f.owner, f.property.ID, nil, "test", func(tx *gorm.DB, p *domain.Property) (Mutation, error) {
		// Another writer commits between our read and our write.
		if err := tx.Model(&domain.Property{}).Where("id = ?", p.ID).Update("version", p.Version+1).Error; err != nil {
			return Mutation{}, err
		}
		p.Rooms[0].Capacity = 1
		return Mutation{EventType: "TEST"}, saveRoom(tx, &p.Rooms[0])
	})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 4, f.rooms(t)[0].Capacity)
	assert.Equal(t, 1, f.reload(t).Version)
}

func TestApply_TimeoutIsRetryable(t *testing.T) {
	f := newFixture(t, single(4, 4, true))
	f.svc.Timeout = time.Nanosecond
	time.Sleep(time.Millisecond)

	_, err := f.svc.ToggleRoomActive(context.Background(), f.owner, f.property.ID, uuid.New())
	require.Error(t, err)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.True(t, apperr.IsRetryable(err))
	assert.True(t, f.rooms(t)[0].IsActive)
}

func TestRoomAvailability(t *testing.T) {
	f := newFixture(t, double(2, 1, true), single(1, 0, false), double(2, 2, false))

	got, err := f.svc.RoomAvailability(context.Background(), f.owner, f.property.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.RoomAvailability{
		{RoomType: domain.RoomDouble, TotalBeds: 4, AvailableBeds: 3, IsActive: true},
		{RoomType: domain.RoomSingle, TotalBeds: 1, AvailableBeds: 0, IsActive: false},
	}, got)

	_, err = f.svc.RoomAvailability(context.Background(), f.stranger, f.property.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestEvents_NewestFirst(t *testing.T) {
	f := newFixture(t, single(4, 4, true))
	roomID := f.rooms(t)[0].ID
	ctx := context.Background()

	_, err := f.svc.SetCapacity(ctx, f.owner, f.property.ID, roomID, 3)
	require.NoError(t, err)
	_, err = f.svc.SetAvailableBeds(ctx, f.owner, f.property.ID, roomID, 1)
	require.NoError(t, err)

	events, err := f.svc.Events(ctx, f.owner, f.property.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, domain.EventRoomBedsUpdated, events[0].EventType)
	assert.Equal(t, 3, events[0].Version)
	assert.Equal(t, f.owner.UserID, events[0].ActorID)

	_, err = f.svc.Events(ctx, f.stranger, f.property.ID, 10)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestReplaceRooms_RoundTripPreservesMatchedIDs(t *testing.T) {
	a1 := "A1"
	b2 := "B2"
	first := single(1, 1, true)
	first.RoomNumber = &a1
	f := newFixture(t, first, double(2, 2, true))
	before := f.rooms(t)

	specs := []domain.RoomSpec{
		{Type: domain.RoomTriple, Name: "Triple", RoomNumber: &b2, Price: 3500, Capacity: 3, AvailableBeds: 3, IsActive: true},
		{Type: domain.RoomSingle, Name: "Single deluxe", RoomNumber: &a1, Price: 7000, Capacity: 1, AvailableBeds: 0, IsActive: true},
	}
	p, err := f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, specs, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)

	after := f.rooms(t)
	require.Len(t, after, 2)
	for i, spec := range specs {
		assert.Equal(t, spec.Type, after[i].Type)
		assert.Equal(t, spec.Price, after[i].Price)
		assert.Equal(t, spec.Capacity, after[i].Capacity)
	}
	assert.Equal(t, before[0].ID, after[1].ID)
	assert.NotEqual(t, before[1].ID, after[0].ID)

	var count int64
	require.NoError(t, f.db.Model(&domain.Room{}).Where("id = ?", before[1].ID).Count(&count).Error)
	assert.Zero(t, count)

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventRoomsReplaced, events[0].EventType)
}

func TestReplaceRooms_ExplicitID(t *testing.T) {
	f := newFixture(t, single(1, 1, true))
	id := f.rooms(t)[0].ID

	_, err := f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, []domain.RoomSpec{
		{ID: &id, Type: domain.RoomDouble, Name: "Upgraded", Price: 5000, Capacity: 2, AvailableBeds: 2, IsActive: true},
	}, nil)
	require.NoError(t, err)
	rooms := f.rooms(t)
	require.Len(t, rooms, 1)
	assert.Equal(t, id, rooms[0].ID)
	assert.Equal(t, domain.RoomDouble, rooms[0].Type)

	unknown := uuid.New()
	_, err = f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, []domain.RoomSpec{
		{ID: &unknown, Type: domain.RoomDouble, Name: "Ghost", Price: 5000, Capacity: 2, AvailableBeds: 2},
	}, nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, id, f.rooms(t)[0].ID)
}

func TestReplaceRooms_EmptyLeavesNoRooms(t *testing.T) {
	f := newFixture(t, single(1, 1, true), double(2, 1, true))

	p, err := f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, []domain.RoomSpec{}, nil)
	require.NoError(t, err)
	assert.Empty(t, p.Rooms)
	assert.Empty(t, f.rooms(t))
	assert.False(t, f.reload(t).IsActive)
}

func TestReplaceRooms_InvalidSpecChangesNothing(t *testing.T) {
	a1 := "a1"
	f := newFixture(t, single(1, 1, true))
	before := f.rooms(t)

	_, err := f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, []domain.RoomSpec{
		{Type: domain.RoomDouble, Name: "Ok", Price: 4000, Capacity: 2, AvailableBeds: 1},
		{Type: domain.RoomDouble, Name: "Bad", Price: 4000, Capacity: 2, AvailableBeds: 3},
	}, nil)
	assert.Equal(t, "rooms[1].availableBeds", apperr.FieldOf(err))

	_, err = f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, []domain.RoomSpec{
		{Type: domain.RoomDouble, Name: "One", RoomNumber: &a1, Price: 4000, Capacity: 2, AvailableBeds: 1},
		{Type: domain.RoomDouble, Name: "Two", RoomNumber: &a1, Price: 4000, Capacity: 2, AvailableBeds: 1},
	}, nil)
	assert.Equal(t, "rooms[1].roomNumber", apperr.FieldOf(err))

	assert.Equal(t, before, f.rooms(t))
	assert.Equal(t, 1, f.reload(t).Version)
}

func TestReplaceRooms_TimeoutReportsNoChange(t *testing.T) {
	f := newFixture(t, single(1, 1, true))
	f.svc.Timeout = time.Nanosecond
	time.Sleep(time.Millisecond)

	_, err := f.svc.ReplaceRooms(context.Background(), f.owner, f.property.ID, nil, nil)
	require.Error(t, err)
	assert.True(t, apperr.IsRetryable(err))
	assert.Contains(t, err.Error(), "no change was applied")
	assert.Len(t, f.rooms(t), 1)
}
