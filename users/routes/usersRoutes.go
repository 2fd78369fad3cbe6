package routes

import (
	"github.com/gofiber/fiber/v2"

	"medequip-backend/middleware"
	"medequip-backend/users/controllers"
)

func InitRoutes(app *fiber.App, controller *controllers.AuthController) {
	auth := app.Group("/api/auth")
	auth.Post("/login", controller.LoginUser)
	auth.Post("/logout", controller.LogoutUser)

	protected := auth.Group("", middleware.ProtectedRoute(controller.App))
	protected.Get("/me", controller.CurrentUser)
	protected.Post("/totp/setup", controller.SetupTOTP)
	protected.Post("/totp/verify", controller.VerifyTOTP)
}
