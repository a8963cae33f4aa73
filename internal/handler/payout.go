package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/AscendAI/creator-catalyst-sub000/internal/middleware"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
)

// PayoutRunner is the part of service.PayoutService the HTTP layer uses.
type PayoutRunner interface {
	Get(ctx context.Context, creatorID, cycleID string) (*model.Payout, error)
	Preview(ctx context.Context, creatorID, cycleID string, forceLive bool) (*payout.Result, error)
	Recompute(ctx context.Context, creatorID, cycleID string, forceLive bool) (*payout.Result, error)
	RecomputeCycle(ctx context.Context, cycleID string) (*model.BulkReport, error)
}

type PayoutHandler struct {
	svc PayoutRunner
}

func NewPayoutHandler(svc PayoutRunner) *PayoutHandler {
	return &PayoutHandler{svc: svc}
}

// payoutParams validates the creator and cycle path parameters. On failure
// the error response has already been written and ok is false.
func payoutParams(c fiber.Ctx) (creatorID, cycleID string, ok bool, err error) {
	creatorID, msg := middleware.ValidateCreatorID(c.Params("creatorId"))
	if msg != "" {
		return "", "", false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", msg)
	}
	cycleID, msg = middleware.ValidateCycleID(c.Params("cycleId"))
	if msg != "" {
		return "", "", false, middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", msg)
	}
	return creatorID, cycleID, true, nil
}

// Get handles GET /api/creators/:creatorId/payouts/:cycleId
func (h *PayoutHandler) Get(c fiber.Ctx) error {
	creatorID, cycleID, ok, err := payoutParams(c)
	if !ok {
		return err
	}

	p, err := h.svc.Get(c.UserContext(), creatorID, cycleID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load payout")
	}
	if p == nil {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", "No payout computed for this creator and cycle")
	}
	return c.JSON(p)
}

// Preview handles GET /api/creators/:creatorId/payouts/:cycleId/preview?forceCurrentRates=true
func (h *PayoutHandler) Preview(c fiber.Ctx) error {
	creatorID, cycleID, ok, err := payoutParams(c)
	if !ok {
		return err
	}

	res, err := h.svc.Preview(c.UserContext(), creatorID, cycleID, fiber.Query[bool](c, "forceCurrentRates"))
	if err != nil {
		return computeError(c, err, "Failed to compute payout")
	}
	return c.JSON(res)
}

// Recompute handles POST /api/creators/:creatorId/payouts/:cycleId/recompute?forceCurrentRates=true
func (h *PayoutHandler) Recompute(c fiber.Ctx) error {
	creatorID, cycleID, ok, err := payoutParams(c)
	if !ok {
		return err
	}

	res, err := h.svc.Recompute(c.UserContext(), creatorID, cycleID, fiber.Query[bool](c, "forceCurrentRates"))
	if err != nil {
		return computeError(c, err, "Failed to recompute payout")
	}
	return c.JSON(res)
}

// RecomputeCycle handles POST /api/cycles/:cycleId/recompute
func (h *PayoutHandler) RecomputeCycle(c fiber.Ctx) error {
	cycleID, msg := middleware.ValidateCycleID(c.Params("cycleId"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", msg)
	}

	report, err := h.svc.RecomputeCycle(c.UserContext(), cycleID)
	if err != nil {
		return computeError(c, err, "Failed to recompute cycle")
	}
	return c.JSON(report)
}

// computeError writes the error response for a failed computation. Internal
// error text is logged, never returned.
func computeError(c fiber.Ctx, err error, message string) error {
	if errors.Is(err, payout.ErrCycleNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "CYCLE_NOT_FOUND", "Payout cycle not found")
	}
	middleware.Logger.Error().
		Err(err).
		Str("route", c.Route().Path).
		Str("cycle_id", c.Params("cycleId")).
		Msg(message)
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "RECOMPUTE_FAILED", message)
}
