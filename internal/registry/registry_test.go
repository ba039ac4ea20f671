package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retaildemo/feedsync/games"
	"github.com/retaildemo/feedsync/pkg/models"
	"github.com/retaildemo/feedsync/pkg/testutil"
)

func TestGameRegistry_Register(t *testing.T) {
	r := NewGameRegistry()

	require.NoError(t, r.Register(testutil.NewTestGame("MotorRacing", 240)))
	assert.Error(t, r.Register(testutil.NewTestGame("MotorRacing", 120)), "duplicates are rejected")
	assert.Error(t, r.Register(testutil.NewTestGame("", 120)))
	assert.Error(t, r.Register(testutil.NewTestGame("SmartPlayKeno", 0)))

	assert.Equal(t, 1, r.Count())
	game, ok := r.Get("MotorRacing")
	require.True(t, ok)
	assert.Equal(t, 240, game.DurationSeconds)

	_, ok = r.Get("SpinAndWin")
	assert.False(t, ok)
}

func TestGameRegistry_OrderAndEnabled(t *testing.T) {
	r := NewGameRegistry()
	keno := testutil.NewTestGame("SmartPlayKeno", 180)
	keno.Enabled = false

	for _, g := range []models.GameConfig{
		testutil.NewTestGame("MotorRacing", 240),
		keno,
		testutil.NewTestGame("DashingDerby", 120),
	} {
		require.NoError(t, r.Register(g))
	}

	var all []string
	for _, g := range r.GetAll() {
		all = append(all, g.TypeName)
	}
	assert.Equal(t, []string{"MotorRacing", "SmartPlayKeno", "DashingDerby"}, all)

	var enabled []string
	for _, g := range r.Enabled() {
		enabled = append(enabled, g.TypeName)
	}
	assert.Equal(t, []string{"MotorRacing", "DashingDerby"}, enabled)
}

func TestFromCatalogue(t *testing.T) {
	r, err := FromCatalogue(games.DefaultCatalogue())
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count())
	assert.Len(t, r.Enabled(), 1)
}
