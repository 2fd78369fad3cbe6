package middleware

import (
	"context"

	"github.com/redis/go-redis/v9"

	"medequip-backend/token"
)

// AppContext bundles all dependencies
type AppContext struct {
	PasetoMaker token.Maker
	Ctx         context.Context
	RedisClient *redis.Client
}
