package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Traslados-api/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TOLERANCE_DEFAULT_PERCENT", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "traslados-api", cfg.App.Name)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Lock.Driver)
	assert.Equal(t, 30*time.Second, cfg.Lock.Expiry)
	assert.True(t, cfg.Receipt.RequireAllLines)
	assert.True(t, cfg.Receipt.AutoReconcileClean)
	assert.Nil(t, cfg.Tolerance.DefaultPercent)
	assert.Equal(t, "3", cfg.Tolerance.HighMultiplier.String())
	assert.Equal(t, "5", cfg.Tolerance.CriticalMultiplier.String())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("TOLERANCE_DEFAULT_PERCENT", "2.5")
	t.Setenv("RECEIPT_REQUIRE_ALL_LINES", "false")
	t.Setenv("AUTO_APPROVE_ENABLED", "true")
	t.Setenv("AUTO_APPROVE_MAX_VALUE", "150")
	t.Setenv("SWEEP_INTERVAL_MINUTES", "15")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()
	require.NoError(t, err)

	require.NotNil(t, cfg.Tolerance.DefaultPercent)
	assert.Equal(t, "2.5", cfg.Tolerance.DefaultPercent.String())
	assert.False(t, cfg.Receipt.RequireAllLines)
	assert.True(t, cfg.AutoApprove.Enabled)
	require.NotNil(t, cfg.AutoApprove.MaxValue)
	assert.Equal(t, "150", cfg.AutoApprove.MaxValue.String())
	assert.Nil(t, cfg.AutoApprove.MaxAbsQuantity)
	assert.Equal(t, 15*time.Minute, cfg.AutoApprove.SweepInterval)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, "memory", cfg.Store.Driver)
}

func TestLoad_InvalidDecimal(t *testing.T) {
	t.Setenv("TOLERANCE_DEFAULT_PERCENT", "dos")
	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("TOLERANCE_DEFAULT_PERCENT", "-1")
	_, err = config.Load()
	assert.Error(t, err)
}

func TestDBConfig_DSNEscapesPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss:w/rd", DBName: "traslados", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%3Aw%2Frd@db:5432/traslados?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
