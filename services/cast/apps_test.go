package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barnybug/castbridge/services"
)

func TestAppRegistryBuiltins(t *testing.T) {
	registry := NewAppRegistry(nil)
	appID, ok := registry.Lookup("Spotify")
	assert.True(t, ok)
	assert.Equal(t, "CC32E753", appID)

	// lookup is case-insensitive
	appID, ok = registry.Lookup("spotify")
	assert.True(t, ok)
	assert.Equal(t, "CC32E753", appID)

	_, ok = registry.Lookup("Netflix")
	assert.False(t, ok)
}

func TestAppRegistryRecord(t *testing.T) {
	store := services.NewMockStore()
	registry := NewAppRegistry(store)
	registry.Record("TuneIn", "F1D41B16")

	appID, ok := registry.Lookup("TuneIn")
	assert.True(t, ok)
	assert.Equal(t, "F1D41B16", appID)

	// recorded apps persist across restarts
	registry = NewAppRegistry(store)
	appID, ok = registry.Lookup("TuneIn")
	assert.True(t, ok)
	assert.Equal(t, "F1D41B16", appID)
}

func TestAppRegistryNames(t *testing.T) {
	registry := NewAppRegistry(nil)
	registry.Record("Aaa", "12345678")
	names := registry.Names()
	assert.Equal(t, []string{"Aaa", "Backdrop", "Spotify", "Youtube"}, names)
}
