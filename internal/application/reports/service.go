package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"stayloft-backend/internal/application/auth"
	policies "stayloft-backend/internal/application/policies/property"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const (
	RoomsSheet   = "Rooms"
	SummarySheet = "Summary"
	ContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var RoomsHeader = []string{"Room ID", "Type", "Name", "Room Number", "Price", "Capacity", "Available Beds", "Active"}

var SummaryHeader = []string{"Room Type", "Total Beds", "Available Beds", "Active"}

// Service builds owner-facing inventory workbooks.
type Service struct {
	DB      *gorm.DB
	Timeout time.Duration
}

// Export is a generated workbook ready to be sent.
type Export struct {
	Filename string
	Data     []byte
}

// InventoryWorkbook exports the rooms of a property the actor owns.
func (s *Service) InventoryWorkbook(ctx context.Context, actor *auth.Identity, propertyID uuid.UUID) (*Export, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	p, err := policies.AuthorizeOwner(s.DB.WithContext(ctx), actor, propertyID)
	if err != nil {
		return nil, apperr.FromStore(ctx, "export inventory", err)
	}
	data, err := BuildWorkbook(p)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename: fmt.Sprintf("inventory-%s-v%d.xlsx", p.ID.String()[:8], p.Version),
		Data:     data,
	}, nil
}

// BuildWorkbook renders p's rooms and per-type summary as XLSX bytes.
func BuildWorkbook(p *domain.Property) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", RoomsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := make([][]interface{}, 0, len(p.Rooms))
	for _, r := range p.Rooms {
		number := ""
		if r.RoomNumber != nil {
			number = *r.RoomNumber
		}
		rows = append(rows, []interface{}{
			r.ID.String(), string(r.Type), r.Name, number, r.Price, r.Capacity, r.AvailableBeds, yesNo(r.IsActive),
		})
	}
	if err := writeSheet(f, RoomsSheet, RoomsHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	summary := domain.Availability(p.Rooms)
	rows = make([][]interface{}, 0, len(summary))
	for _, a := range summary {
		rows = append(rows, []interface{}{string(a.RoomType), a.TotalBeds, a.AvailableBeds, yesNo(a.IsActive)})
	}
	if err := writeSheet(f, SummarySheet, SummaryHeader, rows, headerStyle); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]interface{}, headerStyle int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 16)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
