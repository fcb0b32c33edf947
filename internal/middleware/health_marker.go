package middleware

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"stayloft-backend/internal/application/health"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const errorLogSize = 50

// HealthMarker records request stats in Redis and keeps the last 5xx
// responses in the error log. Health and favicon paths are skipped.
func HealthMarker(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || strings.HasPrefix(path, "/health") || strings.HasPrefix(path, "/reset") || strings.HasPrefix(path, "/favicon") {
			return c.Next()
		}

		start := time.Now()
		lastReq, _ := json.Marshal(map[string]interface{}{
			"time":   start,
			"ip":     c.IP(),
			"path":   c.OriginalURL(),
			"method": c.Method(),
		})
		ctx := context.Background()
		pipe := rdb.Pipeline()
		pipe.Set(ctx, health.KeyLastReq, lastReq, 0)
		pipe.Incr(ctx, health.KeyReqTotal)
		_, _ = pipe.Exec(ctx)

		err := c.Next()
		if err != nil {
			// Render now so the recorded status is the one sent.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				return herr
			}
		}

		status := c.Response().StatusCode()
		pipe = rdb.Pipeline()
		pipe.Incr(ctx, health.KeyResCount)
		pipe.IncrByFloat(ctx, health.KeyResTime, float64(time.Since(start).Milliseconds()))
		if status >= fiber.StatusInternalServerError {
			pipe.Incr(ctx, health.KeyReqErrors)
			entry, _ := json.Marshal(map[string]interface{}{
				"time":    time.Now().UTC(),
				"traceId": GetTraceID(c),
				"method":  c.Method(),
				"path":    c.OriginalURL(),
				"status":  status,
				"message": errorMessage(c),
			})
			pipe.LPush(ctx, health.KeyErrorLog, entry)
			pipe.LTrim(ctx, health.KeyErrorLog, 0, errorLogSize-1)
		}
		if _, perr := pipe.Exec(ctx); perr != nil {
			log.Debug().Err(perr).Msg("health stats not recorded")
		}
		return nil
	}
}

func errorMessage(c *fiber.Ctx) string {
	if err, ok := c.Locals("error").(error); ok && err != nil {
		return err.Error()
	}
	return string(c.Response().Body())
}
