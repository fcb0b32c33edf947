package inventory

import (
	"fmt"

	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomDiff records what a reconciliation did to the stored rooms.
type RoomDiff struct {
	Updated []uuid.UUID
	Created []uuid.UUID
	Deleted []uuid.UUID
}

func (d RoomDiff) Summary() map[string]any {
	return map[string]any{
		"updated": d.Updated,
		"created": d.Created,
		"deleted": d.Deleted,
	}
}

// RoomIDs returns every room id the diff touched.
func (d RoomDiff) RoomIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(d.Updated)+len(d.Created)+len(d.Deleted))
	out = append(out, d.Updated...)
	out = append(out, d.Created...)
	return append(out, d.Deleted...)
}

// ValidateRoomSpecs checks every spec before anything is written. Field names
// are keyed to the request entry, e.g. rooms[2].capacity.
func ValidateRoomSpecs(specs []domain.RoomSpec) error {
	ids := make(map[uuid.UUID]bool)
	numbered := make(map[string]bool)
	for i, spec := range specs {
		field := func(name string) string { return fmt.Sprintf("rooms[%d].%s", i, name) }
		r := spec.ToRoom(uuid.Nil)
		if err := r.Validate(); err != nil {
			return apperr.Validation(field(apperr.FieldOf(err)), reason(err))
		}
		if spec.ID != nil {
			if ids[*spec.ID] {
				return apperr.Validation(field("id"), "listed more than once")
			}
			ids[*spec.ID] = true
		}
		if r.RoomNumber != nil {
			key := spec.NaturalKey()
			if numbered[key] {
				return apperr.Validation(field("roomNumber"), "duplicate room number for this room type")
			}
			numbered[key] = true
		}
	}
	return nil
}

// ReconcileRooms turns the stored rooms of p into specs inside tx. Rooms are
// matched by explicit id first, then by type and room number in stored order.
// Matched rooms are updated in place and keep their ids; the rest of specs are
// inserted and unmatched stored rooms are deleted. p.Rooms holds the result.
func ReconcileRooms(tx *gorm.DB, p *domain.Property, specs []domain.RoomSpec) (RoomDiff, error) {
	var diff RoomDiff
	if err := ValidateRoomSpecs(specs); err != nil {
		return diff, err
	}

	byID := make(map[uuid.UUID]int, len(p.Rooms))
	for j, r := range p.Rooms {
		byID[r.ID] = j
	}
	match := make([]int, len(specs))
	claimed := make(map[int]bool, len(p.Rooms))
	for i, spec := range specs {
		match[i] = -1
		if spec.ID == nil {
			continue
		}
		j, ok := byID[*spec.ID]
		if !ok {
			return diff, apperr.NotFound(fmt.Sprintf("room %s not found on this property", spec.ID))
		}
		match[i] = j
		claimed[j] = true
	}
	for i, spec := range specs {
		if spec.ID != nil {
			continue
		}
		key := spec.NaturalKey()
		for j := range p.Rooms {
			if !claimed[j] && p.Rooms[j].NaturalKey() == key {
				match[i] = j
				claimed[j] = true
				break
			}
		}
	}

	for j, r := range p.Rooms {
		if !claimed[j] {
			diff.Deleted = append(diff.Deleted, r.ID)
		}
	}
	if len(diff.Deleted) > 0 {
		if err := tx.Where("property_id = ? AND id IN ?", p.ID, diff.Deleted).Delete(&domain.Room{}).Error; err != nil {
			return diff, err
		}
	}

	result := make([]domain.Room, 0, len(specs))
	for i, spec := range specs {
		if j := match[i]; j >= 0 {
			r := p.Rooms[j]
			spec.Apply(&r)
			r.Position = i
			if err := saveRoom(tx, &r); err != nil {
				return diff, err
			}
			diff.Updated = append(diff.Updated, r.ID)
			result = append(result, r)
			continue
		}
		r := spec.ToRoom(p.ID)
		r.Position = i
		if err := tx.Create(&r).Error; err != nil {
			return diff, err
		}
		diff.Created = append(diff.Created, r.ID)
		result = append(result, r)
	}
	p.Rooms = result
	return diff, nil
}
