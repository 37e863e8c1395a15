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

type ProgramHandler struct {
	programService *services.ProgramService
}

func NewProgramHandler(programService *services.ProgramService) *ProgramHandler {
	return &ProgramHandler{
		programService: programService,
	}
}

func (h *ProgramHandler) Register(app *fiber.App) {
	protectedGr := app.Group("evm/protected/api/v1")

	programGroup := protectedGr.Group("/programs")
	programGroup.Post("/", h.CreateProgram)
	programGroup.Get("/", h.ListPrograms)
	programGroup.Get("/:id", h.GetProgram)
	programGroup.Delete("/:id", h.DeleteProgram)
	programGroup.Get("/:id/control-accounts", h.ListControlAccounts)

	accountGroup := protectedGr.Group("/control-accounts")
	accountGroup.Post("/", h.CreateControlAccount)
	accountGroup.Get("/:id", h.GetControlAccount)
	accountGroup.Delete("/:id", h.DeleteControlAccount)
	accountGroup.Get("/:id/work-packages", h.ListWorkPackages)

	wpGroup := protectedGr.Group("/work-packages")
	wpGroup.Post("/", h.CreateWorkPackage)
	wpGroup.Delete("/:id", h.DeleteWorkPackage)
}

func (h *ProgramHandler) CreateProgram(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req models.CreateProgramRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse request body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	program, err := h.programService.CreateProgram(c.Context(), req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "badrequest") {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("BAD_REQUEST", err.Error()))
		}
		slog.Error("failed to create program", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to create program"))
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(program))
}

func (h *ProgramHandler) ListPrograms(c fiber.Ctx) error {
	programs, err := h.programService.ListPrograms(c.Context())
	if err != nil {
		slog.Error("failed to list programs", "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve programs"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"programs": programs,
		"count":    len(programs),
	}))
}

func (h *ProgramHandler) GetProgram(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	program, err := h.programService.GetProgram(c.Context(), id)
	if err != nil {
		if strings.HasPrefix(err.Error(), "not_found") {
			return c.Status(http.StatusNotFound).JSON(
				utils.CreateErrorResponse("NOT_FOUND", "Program not found"))
		}
		slog.Error("failed to get program", "program_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve program"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(program))
}

// DeleteProgram removes a program and cascades to everything beneath it.
func (h *ProgramHandler) DeleteProgram(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	if err := h.programService.DeleteProgram(id); err != nil {
		slog.Error("failed to delete program", "program_id", id, "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("DELETE_FAILED", "Failed to delete program"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"deleted": id,
	}))
}

func (h *ProgramHandler) ListControlAccounts(c fiber.Ctx) error {
	programID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid program ID"))
	}

	accounts, err := h.programService.ListControlAccounts(c.Context(), programID)
	if err != nil {
		slog.Error("failed to list control accounts", "program_id", programID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve control accounts"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"control_accounts": accounts,
		"count":            len(accounts),
	}))
}

func (h *ProgramHandler) CreateControlAccount(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req models.CreateControlAccountRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse request body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	account, err := h.programService.CreateControlAccount(c.Context(), req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "badrequest") {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("BAD_REQUEST", err.Error()))
		}
		if strings.HasPrefix(err.Error(), "not_found") {
			return c.Status(http.StatusNotFound).JSON(
				utils.CreateErrorResponse("NOT_FOUND", "Program not found"))
		}
		slog.Error("failed to create control account", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to create control account"))
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(account))
}

func (h *ProgramHandler) GetControlAccount(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid control account ID"))
	}

	account, err := h.programService.GetControlAccount(c.Context(), id)
	if err != nil {
		if strings.HasPrefix(err.Error(), "not_found") {
			return c.Status(http.StatusNotFound).JSON(
				utils.CreateErrorResponse("NOT_FOUND", "Control account not found"))
		}
		slog.Error("failed to get control account", "control_account_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve control account"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(account))
}

func (h *ProgramHandler) DeleteControlAccount(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid control account ID"))
	}

	if err := h.programService.DeleteControlAccount(id); err != nil {
		slog.Error("failed to delete control account", "control_account_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("DELETE_FAILED", "Failed to delete control account"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"deleted": id,
	}))
}

func (h *ProgramHandler) ListWorkPackages(c fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid control account ID"))
	}

	wps, err := h.programService.ListWorkPackages(c.Context(), accountID)
	if err != nil {
		slog.Error("failed to list work packages", "control_account_id", accountID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("RETRIEVAL_FAILED", "Failed to retrieve work packages"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"work_packages": wps,
		"count":         len(wps),
	}))
}

func (h *ProgramHandler) CreateWorkPackage(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	var req models.CreateWorkPackageRequest
	if err := c.Bind().Body(&req); err != nil {
		slog.Error("failed to parse request body", "error", err)
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid request body"))
	}

	wp, err := h.programService.CreateWorkPackage(c.Context(), req)
	if err != nil {
		if strings.HasPrefix(err.Error(), "badrequest") {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("BAD_REQUEST", err.Error()))
		}
		if strings.HasPrefix(err.Error(), "not_found") {
			return c.Status(http.StatusNotFound).JSON(
				utils.CreateErrorResponse("NOT_FOUND", "Control account not found"))
		}
		slog.Error("failed to create work package", "user_id", userID, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("INTERNAL_SERVER_ERROR", "Failed to create work package"))
	}

	return c.Status(http.StatusCreated).JSON(utils.CreateSuccessResponse(wp))
}

func (h *ProgramHandler) DeleteWorkPackage(c fiber.Ctx) error {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return c.Status(http.StatusUnauthorized).JSON(
			utils.CreateErrorResponse("UNAUTHORIZED", "User ID is required"))
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("BAD_REQUEST", "Invalid work package ID"))
	}

	if err := h.programService.DeleteWorkPackage(id); err != nil {
		slog.Error("failed to delete work package", "work_package_id", id, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("DELETE_FAILED", "Failed to delete work package"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]interface{}{
		"deleted": id,
	}))
}
