package reports

import (
	"bytes"
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
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.User{}, &domain.Property{}, &domain.Room{}, &domain.PropertyFeature{}))
	return db
}

func TestInventoryWorkbook(t *testing.T) {
	db := setupDB(t)
	owner := domain.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(&owner).Error)
	a1 := "A1"
	p := domain.Property{
		OwnerID: owner.ID, Name: "Lakeview", Type: domain.PropertyFlat, Location: "Pune", TenantType: domain.TenantGirls,
		Rooms: []domain.Room{
			{Type: domain.RoomDouble, Name: "Double", RoomNumber: &a1, Price: 5500, Capacity: 2, AvailableBeds: 1, IsActive: true, Position: 0},
			{Type: domain.RoomSingle, Name: "Single", Price: 7000, Capacity: 1, AvailableBeds: 0, IsActive: false, Position: 1},
			{Type: domain.RoomDouble, Name: "Double 2", Price: 5500, Capacity: 2, AvailableBeds: 2, IsActive: false, Position: 2},
		},
	}
	require.NoError(t, db.Create(&p).Error)

	s := &Service{DB: db, Timeout: 5 * time.Second}
	export, err := s.InventoryWorkbook(context.Background(), &auth.Identity{UserID: owner.ID}, p.ID)
	require.NoError(t, err)
	assert.Contains(t, export.Filename, "-v1.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{RoomsSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(RoomsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, RoomsHeader, rows[0])
	assert.Equal(t, []string{"DOUBLE", "Double", "A1", "5500", "2", "1", "Yes"}, rows[1][1:])
	assert.Equal(t, "No", rows[2][7])

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, []string{"DOUBLE", "4", "3", "Yes"}, summary[1])
	assert.Equal(t, []string{"SINGLE", "1", "0", "No"}, summary[2])

	_, err = s.InventoryWorkbook(context.Background(), &auth.Identity{UserID: uuid.New()}, p.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestBuildWorkbook_NoRooms(t *testing.T) {
	data, err := BuildWorkbook(&domain.Property{ID: uuid.New()})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(RoomsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
