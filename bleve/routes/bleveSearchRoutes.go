package routes

import (
	"github.com/gofiber/fiber/v2"

	"medequip-backend/bleve/controllers"
)

func InitBleveRoutes(app *fiber.App, controller *controllers.SearchController, guards ...fiber.Handler) {
	api := app.Group("/api/search", guards...)

	api.Get("/:entity", controller.SearchRecordsController)
}
