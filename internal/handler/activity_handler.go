package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/service"
	"github.com/noah-isme/peereval-api/internal/utils"
)

var auditableEntities = map[string]struct{}{
	service.EntityFlag:       {},
	service.EntityTicket:     {},
	service.EntityEvaluation: {},
}

// ActivityHandler exposes the dispute audit trail to teachers.
type ActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(service service.ActivityService, logger zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "activity_handler").Logger(),
	}
}

// Register wires the history route.
func (h *ActivityHandler) Register(router fiber.Router) {
	router.Get("/history/:entityType/:entityId", h.history)
}

func (h *ActivityHandler) history(c *fiber.Ctx) error {
	entityType := strings.ToLower(strings.TrimSpace(c.Params("entityType")))
	if _, ok := auditableEntities[entityType]; !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "entity type must be flag, ticket or evaluation")
	}

	entityID, err := parseUintParam(c, "entityId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}

	entries, err := h.service.History(requestContext(c), entityType, entityID)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to load activity history")
	}

	return utils.SendSuccess(c, "activity history retrieved", entries)
}
