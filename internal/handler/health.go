package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"akppos/internal/infra"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	depUp   = "connected"
	depDown = "error"
)

var errNotConfigured = errors.New("not configured")

type HealthResponse struct {
	OK    bool   `json:"ok"`
	DB    string `json:"db"`
	Redis string `json:"redis"`
	// Email is the SMTP breaker state. An open breaker only delays invoice
	// mail, so it never fails the check.
	Email string `json:"email,omitempty"`
}

// Health godoc
// @Summary Liveness of the database and Redis
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func Health(db *gorm.DB, rdb *redis.Client, emailCB *infra.CircuitBreaker) gin.HandlerFunc {
	pingDB := func(ctx context.Context) error {
		if db == nil {
			return errNotConfigured
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	pingRedis := func(ctx context.Context) error {
		if rdb == nil {
			return errNotConfigured
		}
		return rdb.Ping(ctx).Err()
	}

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		resp := HealthResponse{
			DB:    probe(ctx, "postgres", pingDB),
			Redis: probe(ctx, "redis", pingRedis),
		}
		if emailCB != nil {
			resp.Email = emailCB.State().String()
		}
		resp.OK = resp.DB == depUp && resp.Redis == depUp

		code := http.StatusOK
		if !resp.OK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}

func probe(ctx context.Context, name string, ping func(context.Context) error) string {
	if err := ping(ctx); err != nil {
		log.Warn().Err(err).Str("dependency", name).Msg("health: check failed")
		return depDown
	}
	return depUp
}
