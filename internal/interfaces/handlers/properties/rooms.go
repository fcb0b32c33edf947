package properties

import (
	"context"

	"stayloft-backend/internal/application/auth"
	"stayloft-backend/internal/domain"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type roomCountFunc func(ctx context.Context, actor *auth.Identity, propertyID, roomID uuid.UUID, n int) (*domain.Property, error)

// RoomAvailability GET /api/v1/properties/:id/rooms/availability
func (h *Handlers) RoomAvailability(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	rows, err := h.Inventory.RoomAvailability(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Room availability fetched successfully", rows, nil)
}

// UpdateRoomAvailability PATCH /api/v1/properties/:id/rooms/availability
// Body: {"rooms":[{"roomType":"SINGLE","totalBeds":4,"availableBeds":2}],"expectedVersion":3}
func (h *Handlers) UpdateRoomAvailability(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	b, err := parseBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	changes, err := parseAvailabilityChanges(b)
	if err != nil {
		return response.FromError(c, err)
	}
	version, err := expectedVersion(b)
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Inventory.UpdateRoomAvailability(c.UserContext(), middleware.CurrentIdentity(c), id, changes, version)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Room availability updated successfully", p, nil)
}

// ReplaceRooms PUT /api/v1/properties/:id/rooms
func (h *Handlers) ReplaceRooms(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	b, err := parseBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	specs, err := parseRoomSpecs(b)
	if err != nil {
		return response.FromError(c, err)
	}
	version, err := expectedVersion(b)
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Inventory.ReplaceRooms(c.UserContext(), middleware.CurrentIdentity(c), id, specs, version)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Rooms updated successfully", p, nil)
}

// ToggleRoomActive PATCH /api/v1/properties/:id/rooms/:roomId/toggle-active
func (h *Handlers) ToggleRoomActive(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	roomID, err := paramID(c, "roomId")
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Inventory.ToggleRoomActive(c.UserContext(), middleware.CurrentIdentity(c), id, roomID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Room status updated successfully", p, nil)
}

// SetAvailableBeds PATCH /api/v1/properties/:id/rooms/:roomId/available-beds
// Body: {"availableBeds":2}
func (h *Handlers) SetAvailableBeds(c *fiber.Ctx) error {
	return h.roomCount(c, "availableBeds", "Available beds updated successfully", h.Inventory.SetAvailableBeds)
}

// SetCapacity PATCH /api/v1/properties/:id/rooms/:roomId/capacity
// Body: {"capacity":4}
func (h *Handlers) SetCapacity(c *fiber.Ctx) error {
	return h.roomCount(c, "capacity", "Room capacity updated successfully", h.Inventory.SetCapacity)
}

func (h *Handlers) roomCount(c *fiber.Ctx, field, message string, apply roomCountFunc) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	roomID, err := paramID(c, "roomId")
	if err != nil {
		return response.FromError(c, err)
	}
	b, err := parseBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	n, err := b.Int(field)
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := apply(c.UserContext(), middleware.CurrentIdentity(c), id, roomID, n)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, message, p, nil)
}

// Events GET /api/v1/properties/:id/inventory-events?limit=50
func (h *Handlers) Events(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return response.FromError(c, err)
	}
	events, err := h.Inventory.Events(c.UserContext(), middleware.CurrentIdentity(c), id, limit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Inventory events fetched successfully", events, nil)
}
