package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/token"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
)

func unauthorized(c *fiber.Ctx, reason string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"message": "Unauthorized",
		"error":   reason,
	})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Something went wrong",
		"error":   "An internal server error occurred.",
	})
}

// bearerToken reads the access token from the cookie or an Authorization header.
func bearerToken(c *fiber.Ctx) string {
	if tok := c.Cookies("access_token"); tok != "" {
		return tok
	}
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// CurrentUser returns the token payload stored by ProtectedRoute.
func CurrentUser(c *fiber.Ctx) *token.Payload {
	payload, _ := c.Locals("user").(*token.Payload)
	return payload
}

// ProtectedRoute accepts a valid access token, or rotates a single-use
// refresh token stored in redis into a fresh token pair.
func ProtectedRoute(ctx *AppContext) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if accessToken := bearerToken(c); accessToken != "" {
			payload, err := ctx.PasetoMaker.VerifyToken(accessToken)
			if err == nil {
				c.Locals("user", payload)
				return c.Next()
			}
			config.Logger.Debug("Invalid access token encountered", zap.Error(err))
		}

		refreshToken := c.Cookies("refresh_token")
		if refreshToken == "" {
			return unauthorized(c, "Authentication required")
		}

		refreshPayload, err := ctx.PasetoMaker.VerifyToken(refreshToken)
		if err != nil {
			config.Logger.Warn("Refresh token verification failed", zap.Error(err))
			return unauthorized(c, "Session expired or invalid. Please log in again.")
		}

		userID, err := ctx.RedisClient.GetDel(ctx.Ctx, "refresh_token:"+refreshToken).Result()
		if errors.Is(err, redis.Nil) {
			config.Logger.Warn("Refresh token not found in Redis",
				zap.String("payload_id", refreshPayload.ID.String()),
				zap.String("email", refreshPayload.Email),
			)
			return unauthorized(c, "Session invalid. Please log in again.")
		}
		if err != nil {
			config.Logger.Error("Error accessing Redis for refresh token validation",
				zap.String("email", refreshPayload.Email),
				zap.Error(err),
			)
			return internalError(c)
		}

		if err := IssueSession(c, ctx, refreshPayload.Email, refreshPayload.Role, userID); err != nil {
			config.Logger.Error("Could not rotate session tokens",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			return internalError(c)
		}

		c.Locals("user", refreshPayload)
		return c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not listed. It must
// run after ProtectedRoute.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c, "Authentication required")
		}
		if !user.HasRole(roles...) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Forbidden",
				"error":   "Your role does not allow this action.",
			})
		}
		return c.Next()
	}
}

// IssueSession sets a fresh access/refresh cookie pair and records the
// refresh token in redis for single use.
func IssueSession(c *fiber.Ctx, ctx *AppContext, email, role, userID string) error {
	access, err := ctx.PasetoMaker.CreateToken(email, role, accessTokenTTL)
	if err != nil {
		return err
	}
	refresh, err := ctx.PasetoMaker.CreateToken(email, role, refreshTokenTTL)
	if err != nil {
		return err
	}
	if err := ctx.RedisClient.Set(ctx.Ctx, "refresh_token:"+refresh, userID, refreshTokenTTL).Err(); err != nil {
		return err
	}
	setSessionCookie(c, "access_token", access, time.Now().Add(accessTokenTTL))
	setSessionCookie(c, "refresh_token", refresh, time.Now().Add(refreshTokenTTL))
	return nil
}

// EndSession forgets the refresh token and expires both cookies.
func EndSession(c *fiber.Ctx, ctx *AppContext) error {
	var err error
	if refresh := c.Cookies("refresh_token"); refresh != "" {
		err = ctx.RedisClient.Del(ctx.Ctx, "refresh_token:"+refresh).Err()
	}
	expired := time.Now().Add(-time.Hour)
	setSessionCookie(c, "access_token", "", expired)
	setSessionCookie(c, "refresh_token", "", expired)
	return err
}

func setSessionCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   config.GetEnv("APP_ENV") == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Domain:   config.GetEnvOrDefault("COOKIE_DOMAIN", "localhost"),
	})
}
