package routes

import (
	"github.com/gofiber/fiber/v2"

	"medequip-backend/imports/controllers"
)

// InitImportRoutes registers the upload API. uploadGuards run only on the
// upload endpoint, after the group guards.
func InitImportRoutes(app *fiber.App, controller *controllers.ImportController, guards []fiber.Handler, uploadGuards ...fiber.Handler) {
	api := app.Group("/api/imports", guards...)

	api.Get("/jobs/:id", controller.GetJobController)
	api.Get("/logs", controller.ListUploadLogsController)
	api.Get("/logs/:jobID", controller.GetUploadLogController)
	api.Get("/:entity/template", controller.TemplateController)

	upload := append(append([]fiber.Handler{}, uploadGuards...), controller.UploadController)
	api.Post("/:entity", upload...)
}
