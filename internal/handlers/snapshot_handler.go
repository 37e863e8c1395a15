package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"evm-service/internal/models"
	"evm-service/internal/services"
	"evm-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const monthLayout = "2006-01"

type SnapshotHandler struct {
	snapshotService *services.SnapshotService
}

func NewSnapshotHandler(snapshotService *services.SnapshotService) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
	}
}

func (h *SnapshotHandler) Register(app *fiber.App) {
	protectedGr := app.Group("evm/protected/api/v1")

	protectedGr.Post("/snapshots/generate", h.GenerateSnapshots)
	protectedGr.Get("/programs/:id/snapshots", h.GetProgramSeries)
	protectedGr.Get("/programs/:id/control-accounts/:account_id/snapshots", h.GetControlAccountSeries)
}

// GenerateSnapshots recomputes and stores the cumulative snapshot for every
// scope of a program for one reporting month. Re-running a month overwrites
// the previous rows.
func (h *SnapshotHandler) GenerateSnapshots(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req models.GenerateSnapshotsRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse request body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	programID, err := uuid.Parse(req.ProgramID)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	month, err := time.Parse(monthLayout, req.Month)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "month must be formatted YYYY-MM"))
	}

	report, err := h.snapshotService.GenerateSnapshots(c.Context(), programID, month)
	if err != nil {
		slog.Error("failed to generate snapshots",
			"program_id", programID, "month", req.Month, "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("SNAPSHOT_FAILED", "Failed to generate snapshots"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(report))
}

func (h *SnapshotHandler) GetProgramSeries(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	from, to, ok := parseMonthRange(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "from and to must be formatted YYYY-MM"))
	}

	series, err := h.snapshotService.GetSnapshotSeries(c.Context(), models.ProgramWide(programID), from, to)
	if err != nil {
		slog.Error("failed to get snapshot series", "program_id", programID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve snapshot series"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"snapshots": series,
		"count":     len(series),
	}))
}

func (h *SnapshotHandler) GetControlAccountSeries(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}
	accountID, err := uuid.Parse(c.Params("account_id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid control account ID"))
	}

	from, to, ok := parseMonthRange(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "from and to must be formatted YYYY-MM"))
	}

	series, err := h.snapshotService.GetSnapshotSeries(c.Context(), models.ForControlAccount(programID, accountID), from, to)
	if err != nil {
		slog.Error("failed to get snapshot series",
			"program_id", programID, "control_account_id", accountID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve snapshot series"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"snapshots": series,
		"count":     len(series),
	}))
}

// parseMonthRange reads the from/to query bounds. Missing bounds default to
// an open range wide enough to cover any program.
func parseMonthRange(c fiber.Ctx) (time.Time, time.Time, bool) {
	from := time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(9999, time.December, 1, 0, 0, 0, 0, time.UTC)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(monthLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(monthLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}
