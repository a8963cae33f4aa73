package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/AscendAI/creator-catalyst-sub000/internal/middleware"
	"github.com/AscendAI/creator-catalyst-sub000/internal/model"
	"github.com/AscendAI/creator-catalyst-sub000/internal/payout"
)

// CyclePayoutLister lists the stored payouts of one cycle.
type CyclePayoutLister interface {
	ListCycle(ctx context.Context, cycleID string) ([]model.Payout, error)
}

type ExportHandler struct {
	svc CyclePayoutLister
}

func NewExportHandler(svc CyclePayoutLister) *ExportHandler {
	return &ExportHandler{svc: svc}
}

var exportHeader = []string{
	"creator_id", "cycle_id", "base_pay", "bonus_pay", "total_amount", "eligible_views",
	"ig_rate", "tt_rate", "default_rate", "inputs_digest", "computed_at",
}

// Export handles GET /api/cycles/:cycleId/payouts/export
// Serves the cycle's stored payouts as CSV for finance.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	cycleID, msg := middleware.ValidateCycleID(c.Params("cycleId"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_PARAM", msg)
	}

	payouts, err := h.svc.ListCycle(c.UserContext(), cycleID)
	if errors.Is(err, payout.ErrCycleNotFound) {
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "CYCLE_NOT_FOUND", "Payout cycle not found")
	}
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list payouts")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(exportHeader)
	for _, p := range payouts {
		_ = w.Write([]string{
			p.CreatorID,
			p.CycleID,
			p.BasePay.StringFixed(2),
			p.BonusPay.StringFixed(2),
			p.TotalAmount.StringFixed(2),
			strconv.FormatInt(p.EligibleViews, 10),
			p.SnapshotIgRate.StringFixed(2),
			p.SnapshotTtRate.StringFixed(2),
			p.SnapshotDefaultRate.StringFixed(2),
			p.InputsDigest,
			p.ComputedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode export")
	}

	c.Set("Content-Type", "text/csv; charset=utf-8")
	c.Set("Content-Disposition", "attachment; filename=payouts-"+cycleID+".csv")
	return c.Send(buf.Bytes())
}
