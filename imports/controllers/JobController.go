package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"medequip-backend/imports/repositories"
)

func (ic *ImportController) GetJobController(c *fiber.Ctx) error {
	job, err := ic.Jobs.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Import job not found",
				"error":   err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to load import job",
			"error":   err.Error(),
		})
	}
	return c.JSON(job)
}
