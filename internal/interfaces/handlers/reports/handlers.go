package reports

import (
	"fmt"

	reportsvc "stayloft-backend/internal/application/reports"
	"stayloft-backend/internal/middleware"
	"stayloft-backend/internal/pkg/apperr"
	"stayloft-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *reportsvc.Service
}

// InventoryExport GET /api/v1/properties/:id/inventory/export: XLSX download for the owner.
func (h *Handlers) InventoryExport(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.FromError(c, apperr.Validation("id", "must be a valid id"))
	}
	export, err := h.Service.InventoryWorkbook(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return response.FromError(c, err)
	}
	log.Info().Str("property_id", id.String()).Int("bytes", len(export.Data)).Msg("inventory exported")
	c.Set(fiber.HeaderContentType, reportsvc.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Send(export.Data)
}
