package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DATABASE_URL", "sqlite:file::memory:")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []byte("test-secret"), cfg.JWTSecret)
	assert.Equal(t, int64(250000), cfg.DeliveryFee)
	assert.Equal(t, LoginModeToken, cfg.LoginMode)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "sqlite:file::memory:", cfg.DatabaseURL)
}

func TestLoadRejectsBadDeliveryFee(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "free")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownLoginMode(t *testing.T) {
	t.Setenv("LOGIN_MODE", "carrier-pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadGeneratesSecretWhenMissing(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Len(t, cfg.JWTSecret, 64)
}

func TestDatabaseURLFromParts(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "ikeya")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "shop")

	assert.Equal(t, "host=db user=ikeya password=secret dbname=shop port=5432 sslmode=disable", databaseURL())
}
