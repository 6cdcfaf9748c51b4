package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("ADMIN_EMAIL", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 500*time.Millisecond, cfg.ChangePollInterval)
	// No bootstrap admin unless one is configured.
	assert.Empty(t, cfg.AdminEmail)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "MySQL")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("ADMIN_EMAIL", "Boss@Example.com")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CHANGE_POLL_INTERVAL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "boss@example.com", cfg.AdminEmail)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 500*time.Millisecond, cfg.ChangePollInterval)
}

func TestInitDBRejectsUnknownDriver(t *testing.T) {
	_, err := InitDB(Config{DBDriver: "oracle", DBDSN: "x"})
	assert.Error(t, err)
}

func TestInitDBSQLite(t *testing.T) {
	db, err := InitDB(Config{DBDriver: "sqlite", DBDSN: "file:config_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.NoError(t, sqlDB.Ping())
}

func TestInitRedisDisabled(t *testing.T) {
	rdb, err := InitRedis(t.Context(), Config{})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
