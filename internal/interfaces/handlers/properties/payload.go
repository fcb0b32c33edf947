package properties

import (
	"errors"
	"fmt"
	"strings"

	"stayloft-backend/internal/application/inventory"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseBody(c *fiber.Ctx) (validation.Body, error) {
	var b validation.Body
	if err := c.BodyParser(&b); err != nil || b == nil {
		return nil, apperr.Validation("", "Request body must be a JSON object")
	}
	return b, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation(name, "must be a valid id")
	}
	return id, nil
}

// expectedVersion reads the optional optimistic-concurrency token of a write.
func expectedVersion(b validation.Body) (*int, error) {
	return b.OptionalInt("expectedVersion")
}

func parseDetails(b validation.Body) (domain.PropertyDetails, error) {
	var d domain.PropertyDetails
	var err error
	if d.Name, err = b.String("name"); err != nil {
		return d, err
	}
	if d.Type, err = b.String("type"); err != nil {
		return d, err
	}
	if d.Description, err = b.String("description"); err != nil {
		return d, err
	}
	if d.Location, err = b.String("location"); err != nil {
		return d, err
	}
	if d.TenantType, err = b.String("tenantType"); err != nil {
		return d, err
	}
	if d.TenantType == "" {
		// listing forms post the enum under its type name
		if d.TenantType, err = b.String("TenantType"); err != nil {
			return d, err
		}
	}
	if d.Features, err = b.Strings("features"); err != nil {
		return d, err
	}
	if d.Latitude, err = b.OptionalFloat("latitude"); err != nil {
		return d, err
	}
	if d.Longitude, err = b.OptionalFloat("longitude"); err != nil {
		return d, err
	}
	if b.Has("securityDeposit") {
		if d.SecurityDeposit, err = b.Float("securityDeposit"); err != nil {
			return d, err
		}
	}
	if b.Has("isActive") {
		if d.IsActive, err = b.Bool("isActive"); err != nil {
			return d, err
		}
	}
	if b.Has("foodIncluded") {
		if d.FoodIncluded, err = b.Bool("foodIncluded"); err != nil {
			return d, err
		}
	}
	if d.FoodPrice, err = b.OptionalFloat("foodPrice"); err != nil {
		return d, err
	}
	if d.BathroomType, err = b.String("bathroomType"); err != nil {
		return d, err
	}
	if d.BHKType, err = b.OptionalString("bhkType"); err != nil {
		return d, err
	}
	if d.FurnishingType, err = b.String("furnishingType"); err != nil {
		return d, err
	}
	if d.Gender, err = b.OptionalString("gender"); err != nil {
		return d, err
	}
	if d.Images, err = b.Strings("images"); err != nil {
		return d, err
	}
	return d, nil
}

// parseRoomSpecs reads the "rooms" list. Field errors name the entry, e.g. rooms[1].price.
func parseRoomSpecs(b validation.Body) ([]domain.RoomSpec, error) {
	entries, err := b.Objects("rooms")
	if err != nil {
		return nil, err
	}
	specs := make([]domain.RoomSpec, 0, len(entries))
	for i, e := range entries {
		spec, err := parseRoomSpec(e)
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("rooms[%d].%s", i, apperr.FieldOf(err)), reasonOf(err))
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseRoomSpec(e validation.Body) (domain.RoomSpec, error) {
	var s domain.RoomSpec
	if e.Has("id") {
		raw, err := e.String("id")
		if err != nil {
			return s, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return s, apperr.Validation("id", "must be a valid id")
		}
		s.ID = &id
	}
	raw, err := e.RequiredString("type")
	if err != nil {
		return s, err
	}
	if rt, ok := domain.ParseRoomType(raw); ok {
		s.Type = rt
	} else {
		s.Type = domain.RoomType(raw)
	}
	if s.Name, err = e.String("name"); err != nil {
		return s, err
	}
	if s.RoomNumber, err = e.OptionalString("roomNumber"); err != nil {
		return s, err
	}
	if s.Price, err = e.Float("price"); err != nil {
		return s, err
	}
	if s.Capacity, err = e.Int("capacity"); err != nil {
		return s, err
	}
	if s.AvailableBeds, err = e.Int("availableBeds"); err != nil {
		return s, err
	}
	s.IsActive = true
	if e.Has("isActive") {
		if s.IsActive, err = e.Bool("isActive"); err != nil {
			return s, err
		}
	}
	return s, nil
}

func parseAvailabilityChanges(b validation.Body) ([]inventory.AvailabilityChange, error) {
	entries, err := b.Objects("rooms")
	if err != nil {
		return nil, err
	}
	changes := make([]inventory.AvailabilityChange, 0, len(entries))
	for i, e := range entries {
		field := func(name string) string { return fmt.Sprintf("rooms[%d].%s", i, name) }
		rt, err := e.RequiredString("roomType")
		if err != nil {
			return nil, apperr.Validation(field("roomType"), reasonOf(err))
		}
		total, err := e.Int("totalBeds")
		if err != nil {
			return nil, apperr.Validation(field("totalBeds"), reasonOf(err))
		}
		free, err := e.OptionalInt("availableBeds")
		if err != nil {
			return nil, apperr.Validation(field("availableBeds"), reasonOf(err))
		}
		active, err := e.OptionalBool("isActive")
		if err != nil {
			return nil, apperr.Validation(field("isActive"), reasonOf(err))
		}
		changes = append(changes, inventory.AvailabilityChange{
			RoomType:      domain.RoomType(strings.ToUpper(rt)),
			TotalBeds:     total,
			AvailableBeds: free,
			IsActive:      active,
		})
	}
	return changes, nil
}

// reasonOf drops the field of a validation error so it can be re-keyed.
func reasonOf(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
