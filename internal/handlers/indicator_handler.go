package handlers

import (
	"log/slog"
	"net/http"

	"evm-service/internal/models"
	"evm-service/internal/services"
	"evm-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type IndicatorHandler struct {
	indicatorService *services.IndicatorService
}

func NewIndicatorHandler(indicatorService *services.IndicatorService) *IndicatorHandler {
	return &IndicatorHandler{
		indicatorService: indicatorService,
	}
}

func (h *IndicatorHandler) Register(app *fiber.App) {
	protectedGr := app.Group("evm/protected/api/v1")

	protectedGr.Get("/programs/:id/indicators", h.GetProgramIndicators)
	protectedGr.Get("/programs/:id/control-accounts/:account_id/indicators", h.GetControlAccountIndicators)
}

// GetProgramIndicators returns the full indicator set rolled up across the
// program. mode selects latest-value or cumulative base quantities and
// defaults to latest.
func (h *IndicatorHandler) GetProgramIndicators(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	mode, ok := parseMode(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "mode must be 'latest' or 'cumulative'"))
	}

	set, err := h.indicatorService.GetIndicators(c.Context(), models.ProgramWide(programID), mode)
	if err != nil {
		slog.Error("failed to compute program indicators", "program_id", programID, "mode", mode, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("COMPUTATION_FAILED", "Failed to compute indicators"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(set))
}

func (h *IndicatorHandler) GetControlAccountIndicators(c fiber.Ctx) error {
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

	mode, ok := parseMode(c)
	if !ok {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "mode must be 'latest' or 'cumulative'"))
	}

	set, err := h.indicatorService.GetIndicators(c.Context(), models.ForControlAccount(programID, accountID), mode)
	if err != nil {
		slog.Error("failed to compute control account indicators",
			"program_id", programID, "control_account_id", accountID, "mode", mode, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("COMPUTATION_FAILED", "Failed to compute indicators"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(set))
}

func parseMode(c fiber.Ctx) (models.IndicatorMode, bool) {
	mode := models.IndicatorMode(c.Query("mode", string(models.ModeLatest)))
	if !models.IsValidIndicatorMode(mode) {
		return "", false
	}
	return mode, true
}
