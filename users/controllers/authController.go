package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medequip-backend/config"
	"medequip-backend/middleware"
	"medequip-backend/users/repositories"
	"medequip-backend/users/services"
)

const pendingTOTPTTL = 10 * time.Minute

type AuthController struct {
	UserRepo repositories.UserRepository
	App      *middleware.AppContext
	Issuer   string
}

func (ac *AuthController) LoginUser(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"error":   "Invalid request format.",
		})
	}

	user, err := ac.UserRepo.GetUserByEmail(c.Context(), req.Email)
	if err != nil || !repositories.CheckPasswordHash(req.Password, user.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			config.Logger.Error("Login lookup failed", zap.String("email", req.Email), zap.Error(err))
		} else {
			config.Logger.Warn("Login attempt rejected", zap.String("email", req.Email))
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   "Invalid email or password.",
		})
	}
	if !user.Active {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Account disabled",
			"error":   "This account is not active.",
		})
	}
	if user.TOTPSecret != "" && req.OTP == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message":       "TOTP verification required",
			"requires_totp": true,
		})
	}
	if !services.ValidateTOTP(user.TOTPSecret, req.OTP) {
		config.Logger.Warn("Invalid TOTP code", zap.String("email", user.Email))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"error":   "Invalid authenticator code.",
		})
	}

	if err := middleware.IssueSession(c, ac.App, user.Email, string(user.Role), user.ID.String()); err != nil {
		config.Logger.Error("Failed to issue session", zap.String("email", user.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Login failed",
			"error":   "Could not start a session.",
		})
	}
	if err := ac.UserRepo.TouchLastLogin(c.Context(), user); err != nil {
		config.Logger.Warn("Failed to record last login", zap.String("email", user.Email), zap.Error(err))
	}

	config.Logger.Info("User logged in", zap.String("email", user.Email))
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"data":    user,
	})
}

func (ac *AuthController) LogoutUser(c *fiber.Ctx) error {
	if err := middleware.EndSession(c, ac.App); err != nil {
		config.Logger.Error("Failed to delete refresh token during logout", zap.Error(err))
	}
	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (ac *AuthController) CurrentUser(c *fiber.Ctx) error {
	payload := middleware.CurrentUser(c)
	if payload == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}
	user, err := ac.UserRepo.GetUserByEmail(c.Context(), payload.Email)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"data": user})
}

// SetupTOTP starts authenticator enrolment. The secret stays pending in redis
// until VerifyTOTP confirms a code generated from it.
func (ac *AuthController) SetupTOTP(c *fiber.Ctx) error {
	payload := middleware.CurrentUser(c)
	if payload == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}
	setup, err := services.GenerateTOTPSecret(ac.Issuer, payload.Email)
	if err != nil {
		config.Logger.Error("Failed to generate TOTP secret", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Setup failed",
			"error":   "Failed to generate TOTP secret.",
		})
	}
	if err := ac.App.RedisClient.Set(c.Context(), "totp_pending:"+payload.Email, setup.Secret, pendingTOTPTTL).Err(); err != nil {
		config.Logger.Error("Failed to store pending TOTP secret", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Setup failed",
			"error":   "Failed to store TOTP secret.",
		})
	}
	return c.JSON(fiber.Map{
		"message": "TOTP setup initiated",
		"data":    setup,
	})
}

func (ac *AuthController) VerifyTOTP(c *fiber.Ctx) error {
	payload := middleware.CurrentUser(c)
	if payload == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Authentication required"})
	}
	var req struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&req); err != nil || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"error":   "A code is required.",
		})
	}

	key := "totp_pending:" + payload.Email
	secret, err := ac.App.RedisClient.Get(c.Context(), key).Result()
	if errors.Is(err, redis.Nil) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "No TOTP setup in progress",
			"error":   "Start the setup again.",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Verification failed",
			"error":   err.Error(),
		})
	}
	if !services.ValidateTOTP(secret, req.Code) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Verification failed",
			"error":   "Invalid authenticator code.",
		})
	}

	user, err := ac.UserRepo.GetUserByEmail(c.Context(), payload.Email)
	if err == nil {
		err = ac.UserRepo.SetTOTPSecret(c.Context(), user, secret)
	}
	if err != nil {
		config.Logger.Error("Failed to enable TOTP", zap.String("email", payload.Email), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Verification failed",
			"error":   "Could not enable TOTP.",
		})
	}
	ac.App.RedisClient.Del(c.Context(), key)
	return c.JSON(fiber.Map{"message": "TOTP enabled"})
}
