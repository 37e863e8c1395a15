package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"evm-service/internal/models"
	"evm-service/internal/services"
	"evm-service/internal/utils"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type IngestionHandler struct {
	ingestionService *services.IngestionService
}

func NewIngestionHandler(ingestionService *services.IngestionService) *IngestionHandler {
	return &IngestionHandler{
		ingestionService: ingestionService,
	}
}

func (h *IngestionHandler) Register(app *fiber.App) {
	protectedGr := app.Group("evm/protected/api/v1")

	batchGroup := protectedGr.Group("/batches")
	batchGroup.Post("/", h.RecordDataPoints)
	batchGroup.Get("/:id", h.GetBatch)

	protectedGr.Get("/programs/:id/batches", h.ListBatches)
}

// RecordDataPoints accepts a parsed Cobra extract and inserts it as one
// batch. Row-level validation failures come back in the report; they do not
// fail the request.
func (h *IngestionHandler) RecordDataPoints(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req models.RecordDataPointsRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse request body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	if len(req.Rows) == 0 {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Batch contains no rows"))
	}

	report, err := h.ingestionService.RecordDataPoints(c.Context(), req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "badrequest") {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("BAD_REQUEST", err.Error()))
		}
		slog.Error("failed to record data points", "user_id", userID, "program_id", req.ProgramID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INGESTION_FAILED", "Failed to record data points"))
	}

	return c.Status(http.StatusAccepted).JSON(utils.CreateSuccessResponse(report))
}

func (h *IngestionHandler) GetBatch(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid batch ID"))
	}

	batch, err := h.ingestionService.GetBatch(c.Context(), id)
	if err != nil {
		if strings.HasPrefix(err.Error(), "not_found") {
			return c.Status(http.StatusNotFound).JSON(
				utils.CreateErrorResponse("NOT_FOUND", "Batch not found"))
		}
		slog.Error("failed to get batch", "batch_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve batch"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(batch))
}

func (h *IngestionHandler) ListBatches(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	batches, err := h.ingestionService.ListBatches(c.Context(), programID)
	if err != nil {
		slog.Error("failed to list batches", "program_id", programID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve batches"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"batches": batches,
		"count":   len(batches),
	}))
}
