package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/AscendAI/creator-catalyst-sub000/internal/middleware"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
)

// CycleLister is the part of service.CycleService the HTTP layer uses.
type CycleLister interface {
	List(ctx context.Context, now time.Time) (*model.CycleListResponse, error)
}

type CycleHandler struct {
	svc CycleLister
}

func NewCycleHandler(svc CycleLister) *CycleHandler {
	return &CycleHandler{svc: svc}
}

// List handles GET /api/cycles
func (h *CycleHandler) List(c fiber.Ctx) error {
	resp, err := h.svc.List(c.UserContext(), time.Now())
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list cycles")
	}
	return c.JSON(resp)
}
