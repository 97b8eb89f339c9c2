// internal/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 250, cfg.Market.FeeBasisPoints)
	assert.Equal(t, 1000, cfg.Market.FeeBasisPointsCap)
	assert.Equal(t, int64(100), cfg.Payment.MinimumDeposit)
	assert.Equal(t, "usd", cfg.Payment.Currency)
}

func TestValidateFeeBounds(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Market.FeeBasisPoints = 2000 // above the cap of 1000
	assert.Error(t, cfg.Validate())

	cfg.Market.FeeBasisPoints = -1
	assert.Error(t, cfg.Validate())

	cfg.Market.FeeBasisPoints = 1000
	assert.NoError(t, cfg.Validate())

	cfg.Market.FeeBasisPointsCap = 20000
	assert.Error(t, cfg.Validate())
}

func TestValidateProductionRequirements(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Environment = "production"
	assert.Error(t, cfg.Validate()) // default JWT secret not allowed

	cfg.JWT.SecretKey = "a-real-secret"
	cfg.Database.Password = ""
	assert.Error(t, cfg.Validate())

	cfg.Database.Password = "dbpass"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		Database: "stellara_market",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=stellara_market")
	assert.Contains(t, dsn, "sslmode=disable")
}
