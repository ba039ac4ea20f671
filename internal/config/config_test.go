package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retaildemo/feedsync/games"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("API_BASE", "https://feed.example.com")

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Port)
	assert.Equal(t, ":4000", cfg.ListenAddr())
	assert.Equal(t, 10800, cfg.OffsetSeconds)
	assert.Equal(t, []string{"1", "2"}, cfg.PrimaryMarketClassIDs)
	assert.False(t, cfg.AutoSyncOnStart)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "config/games.yaml", cfg.GamesConfig)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("API_BASE", "https://feed.example.com")
	t.Setenv("PORT", "8080")
	t.Setenv("PRIMARY_MARKET_CLASS_IDS", " 1, 2 ,7,")
	t.Setenv("EXTRA_HEADERS_JSON", `{"X-Operator":"shop-1"}`)
	t.Setenv("AUTO_SYNC_ON_START", "true")

	cfg, err := fromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, []string{"1", "2", "7"}, cfg.PrimaryMarketClassIDs)
	assert.Equal(t, map[string]string{"X-Operator": "shop-1"}, cfg.ExtraHeaders)
	assert.True(t, cfg.AutoSyncOnStart)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Setenv("API_BASE", "")
	_, err := fromEnv()
	assert.EqualError(t, err, "API_BASE environment variable is required")

	t.Setenv("API_BASE", "https://feed.example.com")
	t.Setenv("EXTRA_HEADERS_JSON", "{")
	_, err = fromEnv()
	assert.ErrorContains(t, err, "EXTRA_HEADERS_JSON")

	t.Setenv("EXTRA_HEADERS_JSON", "")
	t.Setenv("AUTO_SYNC_ON_START", "maybe")
	_, err = fromEnv()
	assert.ErrorContains(t, err, "AUTO_SYNC_ON_START")
}

func TestUpstream_EnvOverridesCatalogue(t *testing.T) {
	t.Setenv("API_BASE", "https://feed.example.com")
	t.Setenv("OFFSET_SECONDS", "3600")

	cfg, err := fromEnv()
	require.NoError(t, err)

	defaults := games.Defaults{
		OffsetSeconds:         7200,
		LanguageCode:          "en",
		BettingLayout:         "1",
		PrimaryMarketClassIDs: []string{"9"},
	}
	up := cfg.Upstream(defaults)

	assert.Equal(t, "https://feed.example.com", up.BaseURL)
	assert.Equal(t, 3600, up.OffsetSeconds, "explicit env wins")
	assert.Equal(t, []string{"9"}, up.PrimaryMarketClassIDs, "catalogue wins over env default")
	assert.Equal(t, "en", up.LanguageCode)
}

func TestDatabaseURL(t *testing.T) {
	t.Setenv("API_BASE", "")
	t.Setenv("DATABASE_URL", "")
	assert.Equal(t, defaultDatabaseURL, DatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/x")
	assert.Equal(t, "postgres://u:p@db:5432/x", DatabaseURL())
}
