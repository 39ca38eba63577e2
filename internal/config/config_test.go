package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 10, cfg.LowStockThreshold)
	assert.Equal(t, "akppos", cfg.MetricsPrefix)
	assert.False(t, cfg.CheckoutVerifyTotals)
	assert.NotEmpty(t, cfg.JWTSecret, "development falls back to a dev secret")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9100")
	t.Setenv("LOW_STOCK_THRESHOLD", "3")
	t.Setenv("CHECKOUT_VERIFY_TOTALS", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 3, cfg.LowStockThreshold)
	assert.True(t, cfg.CheckoutVerifyTotals)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
}

func TestValidate_ProductionRequiresSecret(t *testing.T) {
	cfg := &Config{Env: "production", WorkerPoolSize: 2}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingJWTSecret)

	cfg.JWTSecret = "x"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ClampsWorkerPool(t *testing.T) {
	cfg := &Config{JWTSecret: "x", WorkerPoolSize: 0, LowStockThreshold: -1}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.WorkerPoolSize)
	assert.Equal(t, 0, cfg.LowStockThreshold)
}
