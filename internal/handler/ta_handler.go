package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/dto"
	"github.com/noah-isme/peereval-api/internal/service"
	"github.com/noah-isme/peereval-api/internal/utils"
)

// TAHandler exposes flag triage endpoints to TAs.
type TAHandler struct {
	queries    service.FlagQueryService
	resolution service.TAResolutionService
	escalation service.EscalationService
	logger     zerolog.Logger
}

// NewTAHandler constructs the handler.
func NewTAHandler(queries service.FlagQueryService, resolution service.TAResolutionService, escalation service.EscalationService, logger zerolog.Logger) *TAHandler {
	return &TAHandler{
		queries:    queries,
		resolution: resolution,
		escalation: escalation,
		logger:     logger.With().Str("component", "ta_handler").Logger(),
	}
}

// Register binds read endpoints. Write endpoints go through RegisterWrites so they can be throttled separately.
func (h *TAHandler) Register(router fiber.Router) {
	router.Get("/flagged-evaluations", h.listFlagged)
	router.Get("/stats", h.stats)
	router.Get("/evaluations/:id", h.evaluationDetails)
}

// RegisterWrites binds the flag transition endpoints behind the given middlewares.
func (h *TAHandler) RegisterWrites(router fiber.Router, guards ...fiber.Handler) {
	router.Post("/flags/:flagId/resolve", chain(guards, h.resolve)...)
	router.Post("/flags/:flagId/escalate", chain(guards, h.escalate)...)
}

func chain(guards []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, handler)
}

func (h *TAHandler) listFlagged(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	flags, err := h.queries.ListPendingFlags(requestContext(c), actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to list flagged evaluations")
	}

	return utils.SendSuccess(c, "flagged evaluations retrieved", flags)
}

func (h *TAHandler) stats(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	stats, err := h.queries.Stats(requestContext(c), actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to load flag statistics")
	}

	return utils.SendSuccess(c, "flag statistics retrieved", stats)
}

func (h *TAHandler) evaluationDetails(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid evaluation id")
	}

	details, err := h.queries.EvaluationDetails(requestContext(c), id, actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to load evaluation")
	}

	return utils.SendSuccess(c, "evaluation retrieved", details)
}

func (h *TAHandler) resolve(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	flagID, err := parseUintParam(c, "flagId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid flag id")
	}

	var payload dto.ResolveFlagRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid resolution payload")
		}
	}

	result, err := h.resolution.ResolveFlag(requestContext(c), flagID, payload, actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to resolve flag")
	}

	return utils.SendSuccess(c, "flag resolved", result)
}

func (h *TAHandler) escalate(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	flagID, err := parseUintParam(c, "flagId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid flag id")
	}

	var payload dto.EscalateFlagRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid escalation payload")
	}

	result, err := h.escalation.EscalateToTeacher(requestContext(c), flagID, payload, actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to escalate flag")
	}

	return utils.SendSuccess(c, "flag escalated to teachers", result)
}
