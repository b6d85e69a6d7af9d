package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/service"
	"github.com/noah-isme/peereval-api/internal/utils"
)

// TeacherTicketHandler exposes escalated tickets to teachers.
type TeacherTicketHandler struct {
	service service.TeacherTicketService
	logger  zerolog.Logger
}

// NewTeacherTicketHandler constructs the handler.
func NewTeacherTicketHandler(service service.TeacherTicketService, logger zerolog.Logger) *TeacherTicketHandler {
	return &TeacherTicketHandler{
		service: service,
		logger:  logger.With().Str("component", "teacher_ticket_handler").Logger(),
	}
}

// Register attaches ticket endpoints to the router group.
func (h *TeacherTicketHandler) Register(router fiber.Router) {
	router.Get("/tickets/escalated", h.listEscalated)
	router.Put("/tickets/:ticketId/resolve", h.resolve)
}

func (h *TeacherTicketHandler) listEscalated(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	tickets, err := h.service.ListEscalatedTickets(requestContext(c), actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to list escalated tickets")
	}

	return utils.SendSuccess(c, "escalated tickets retrieved", tickets)
}

func (h *TeacherTicketHandler) resolve(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	ticketID, err := parseUintParam(c, "ticketId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.service.ResolveEscalatedTicket(requestContext(c), ticketID, actor)
	if err != nil {
		return respondServiceError(c, h.logger, err, "failed to resolve ticket")
	}

	return utils.SendSuccess(c, "ticket resolved", ticket)
}
