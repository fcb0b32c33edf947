package properties

import (
	"strconv"
	"strings"

	"stayloft-backend/internal/application/inventory"
	propsvc "stayloft-backend/internal/application/properties"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/response"
	"stayloft-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the property listing endpoints and the owner's room inventory.
type Handlers struct {
	Properties *propsvc.Service
	Inventory  *inventory.Service
}

// Search GET /api/v1/properties?type=PG&page=1&limit=10&minPrice=&maxPrice=&city=&amenities=WIFI,AC
func (h *Handlers) Search(c *fiber.Ctx) error {
	q := propsvc.SearchQuery{
		Type: c.Query("type"),
		City: c.Query("city"),
	}
	var err error
	if q.Page, err = queryInt(c, "page"); err != nil {
		return response.FromError(c, err)
	}
	if q.Limit, err = queryInt(c, "limit"); err != nil {
		return response.FromError(c, err)
	}
	if q.MinPrice, err = queryFloat(c, "minPrice"); err != nil {
		return response.FromError(c, err)
	}
	if q.MaxPrice, err = queryFloat(c, "maxPrice"); err != nil {
		return response.FromError(c, err)
	}
	if raw := c.Query("amenities"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				q.Amenities = append(q.Amenities, a)
			}
		}
	}

	result, err := h.Properties.Search(c.UserContext(), q)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", result.Properties, fiber.Map{
		"total":       result.Total,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
	})
}

// Nearby GET /api/v1/properties/nearby?lat=&lng=&radius=
func (h *Handlers) Nearby(c *fiber.Ctx) error {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return response.FromError(c, err)
	}
	lng, err := queryFloat(c, "lng")
	if err != nil {
		return response.FromError(c, err)
	}
	radius, err := queryFloat(c, "radius")
	if err != nil {
		return response.FromError(c, err)
	}
	r := 0.0
	if radius != nil {
		r = *radius
	}
	out, err := h.Properties.Nearby(c.UserContext(), lat, lng, r)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Nearby properties fetched successfully", out, fiber.Map{"count": len(out)})
}

// Mine GET /api/v1/properties/mine
func (h *Handlers) Mine(c *fiber.Ctx) error {
	props, err := h.Properties.ListOwned(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Properties fetched successfully", props, nil)
}

// Get GET /api/v1/properties/:id. Anonymous callers see the public view.
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Properties.Get(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property fetched successfully", p, nil)
}

// Create POST /api/v1/properties
func (h *Handlers) Create(c *fiber.Ctx) error {
	b, err := parseBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	in, err := parseInput(b, true)
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Properties.Create(c.UserContext(), middleware.CurrentIdentity(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessCreated(c, "Property created successfully", p, nil)
}

// Update PUT /api/v1/properties/:id. Omitting "rooms" leaves the rooms as they are.
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	b, err := parseBody(c)
	if err != nil {
		return response.FromError(c, err)
	}
	in, err := parseInput(b, b.Has("rooms"))
	if err != nil {
		return response.FromError(c, err)
	}
	version, err := expectedVersion(b)
	if err != nil {
		return response.FromError(c, err)
	}
	p, err := h.Properties.Update(c.UserContext(), middleware.CurrentIdentity(c), id, in, version)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property updated successfully", p, nil)
}

// Delete DELETE /api/v1/properties/:id
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}
	if err := h.Properties.Delete(c.UserContext(), middleware.CurrentIdentity(c), id); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Property deleted successfully", fiber.Map{"id": id}, nil)
}

func parseInput(b validation.Body, withRooms bool) (propsvc.Input, error) {
	details, err := parseDetails(b)
	if err != nil {
		return propsvc.Input{}, err
	}
	in := propsvc.Input{Details: details}
	if !withRooms {
		return in, nil
	}
	if !b.Has("rooms") {
		return in, apperr.Validation("rooms", "is required")
	}
	if in.Rooms, err = parseRoomSpecs(b); err != nil {
		return propsvc.Input{}, err
	}
	return in, nil
}

func queryInt(c *fiber.Ctx, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name, "must be a whole number")
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, name string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	f, err := validation.ParseFloat(name, raw)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
