package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medequip-backend/config"
	"medequip-backend/utils/pagination"
)

// ListUploadLogsController pages through finished uploads. Supported filters:
// entity, status, requested_by, start_date, end_date.
func (ic *ImportController) ListUploadLogsController(c *fiber.Ctx) error {
	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid pagination parameters",
			"error":   err.Error(),
		})
	}

	logs, total, err := ic.UploadLogs.GetFilteredUploadLogs(c.Context(), params.Filters, params.PageSize, params.Offset())
	if err != nil {
		config.Logger.Error("Failed to list upload logs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve upload logs",
			"error":   err.Error(),
		})
	}
	return c.JSON(pagination.NewPaginatedResponse(c, logs, total, params))
}

func (ic *ImportController) GetUploadLogController(c *fiber.Ctx) error {
	log, err := ic.UploadLogs.GetByJobID(c.Context(), c.Params("jobID"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Upload log not found",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve upload log",
			"error":   err.Error(),
		})
	}
	return c.JSON(log)
}
