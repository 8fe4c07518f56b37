package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// CorrelationHeader carries the client-chosen idempotency key
const CorrelationHeader = "X-Correlation-ID"

const idempotencyWriteTimeout = 2 * time.Second

// IdempotencyMiddleware replays the cached response of a POST/PATCH/PUT that
// already succeeded with the same X-Correlation-ID for the same user.
// Must run after an auth middleware.
func IdempotencyMiddleware(redisClient redis.UniversalClient, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		correlationID := c.Get(CorrelationHeader)
		if correlationID == "" {
			// No correlation ID = no idempotency check
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s", GetUserID(c), correlationID)
		ctx := c.UserContext()

		// Check if we have a cached response
		cached, err := redisClient.Get(ctx, key).Bytes()
		if err == nil && len(cached) > 0 {
			c.Set("X-Idempotent-Replay", "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		}
		if err != nil && err != redis.Nil {
			log.WithError(err).Warn("[IDEMPOTENCY] lookup failed, processing request")
		}

		// Process the request
		if err := c.Next(); err != nil {
			return err
		}

		// Cache successful responses (2xx status codes)
		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyWriteTimeout)
		defer cancel()
		if err := redisClient.Set(writeCtx, key, append([]byte(nil), body...), ttl).Err(); err != nil {
			log.WithError(err).WithField("key", key).Warn("[IDEMPOTENCY] failed to store response")
		}
		return nil
	}
}
