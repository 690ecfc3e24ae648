package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/ancientworld.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 24*time.Hour, cfg.TickInterval)
	assert.Equal(t, int64(-3000), cfg.Game.StartYear)
	assert.Equal(t, int64(100), cfg.Game.ProjectThreshold)
	assert.Equal(t, int64(25), cfg.Game.ProjectIncrement)
	assert.Equal(t, int64(3), cfg.Game.ProposalExpiryTicks)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WORLDBOT_PORT", "9090")
	t.Setenv("WORLDBOT_TICK_INTERVAL", "1h")
	t.Setenv("WORLDBOT_ADMIN_IDS", "7,8")
	t.Setenv("WORLDBOT_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("WORLDBOT_GAME_START_YEAR", "-2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, time.Hour, cfg.TickInterval)
	assert.Equal(t, []int64{7, 8}, cfg.AdminIDs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, int64(-2500), cfg.Game.StartYear)
}
