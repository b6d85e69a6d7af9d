package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peereval-api/internal/middleware"
	"github.com/noah-isme/peereval-api/internal/service"
	"github.com/noah-isme/peereval-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid " + key)
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func actorFromContext(c *fiber.Ctx) (service.Actor, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: identity.UserID, Role: identity.Role}, true
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

type validationDetails struct {
	Kind     service.ValidationKind `json:"kind"`
	Expected *int                   `json:"expected,omitempty"`
	Received *int                   `json:"received,omitempty"`
	Indices  []int                  `json:"indices,omitempty"`
	Value    *float64               `json:"value,omitempty"`
}

// respondServiceError maps typed service failures onto HTTP statuses with distinct messages.
func respondServiceError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var (
		notFound     *service.NotFoundError
		validation   *service.ValidationError
		unauthorized *service.AuthorizationError
		conflict     *service.ConflictError
	)

	switch {
	case errors.As(err, &notFound):
		return utils.SendError(c, fiber.StatusNotFound, notFound.Error())
	case errors.As(err, &validation):
		details := validationDetails{Kind: validation.Kind, Indices: validation.Indices, Value: validation.Value}
		if validation.Kind == service.KindMarkCountMismatch {
			details.Expected = &validation.Expected
			details.Received = &validation.Received
		}
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, validation.Error(), details)
	case errors.As(err, &unauthorized):
		return utils.SendError(c, fiber.StatusForbidden, unauthorized.Error())
	case errors.As(err, &conflict):
		return utils.SendError(c, fiber.StatusConflict, conflict.Error())
	default:
		reqLogger := middleware.RequestLogger(logger, c)
		reqLogger.Error().Err(err).Msg(fallback)
		return utils.SendError(c, fiber.StatusInternalServerError, fallback)
	}
}
