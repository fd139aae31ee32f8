package cast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/barnybug/castbridge/config"
	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

func TestInterfaces(t *testing.T) {
	var _ services.Service = (*Service)(nil)
	var _ services.ServiceStop = (*Service)(nil)
	var _ services.Queryable = (*Service)(nil)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "kitchen_speaker", slug("Kitchen Speaker"))
	assert.Equal(t, "living_room", slug("Living-Room"))
	assert.Equal(t, "caf", slug("Café"))
}

func TestIsAudioDevice(t *testing.T) {
	assert.True(t, isAudioDevice("Google Home Mini", nil))
	assert.True(t, isAudioDevice("google nest mini", nil))
	assert.True(t, isAudioDevice("Google Nest Audio", nil))
	assert.True(t, isAudioDevice("Google Nest Hub", nil))
	assert.True(t, isAudioDevice("Google Cast Group", nil))
	assert.True(t, isAudioDevice("Lenovo Smart Clock", nil))
	assert.False(t, isAudioDevice("Chromecast Ultra", nil))
	assert.False(t, isAudioDevice("SHIELD Android TV", nil))
	// extra models from config
	assert.True(t, isAudioDevice("JBL Link 20", []string{"JBL Link"}))
}

func TestParseAction(t *testing.T) {
	action, params := parseAction("Set Level 50")
	assert.Equal(t, "set", action)
	assert.Equal(t, "Level 50", params)

	action, params = parseAction("play")
	assert.Equal(t, "play", action)
	assert.Equal(t, "", params)

	action, params = parseAction("Sendnotification Dinner is ready")
	assert.Equal(t, "sendnotification", action)
	assert.Equal(t, "Dinner is ready", params)
}

func TestParseLevel(t *testing.T) {
	ev := pubsub.NewCommand("cast.kitchen", "set level 50")
	level, ok := parseLevel(ev, "level 50")
	assert.True(t, ok)
	assert.Equal(t, 50, level)

	ev = pubsub.NewCommand("cast.kitchen", "volume")
	ev.SetField("level", 25.0)
	level, ok = parseLevel(ev, "")
	assert.True(t, ok)
	assert.Equal(t, 25, level)

	ev = pubsub.NewCommand("cast.kitchen", "set level")
	_, ok = parseLevel(ev, "level")
	assert.False(t, ok)
}

func TestEstimateDuration(t *testing.T) {
	// 8000 bytes at 64kbit/s is one second
	assert.Equal(t, time.Second, estimateDuration(8000))
	assert.Equal(t, 4*time.Second, estimateDuration(32000))
}

func TestResolveAlert(t *testing.T) {
	services.Config = config.ExampleConfig

	ev := pubsub.NewEvent("alert", pubsub.Fields{
		"target":  "cast",
		"device":  "Kitchen Speaker",
		"message": "hello",
	})
	target, text, err := resolveAlert(ev)
	assert.NoError(t, err)
	assert.Equal(t, "Kitchen Speaker", target)
	assert.Equal(t, "hello", text)

	// falls back to the configured default device
	ev = pubsub.NewEvent("alert", pubsub.Fields{
		"target":  "cast",
		"message": "hello",
	})
	target, _, err = resolveAlert(ev)
	assert.NoError(t, err)
	assert.Equal(t, services.Config.Voice.Device, target)

	// no message is an error
	ev = pubsub.NewEvent("alert", pubsub.Fields{"target": "cast"})
	_, _, err = resolveAlert(ev)
	assert.Error(t, err)
}
