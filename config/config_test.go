package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpenRaw(t *testing.T) {
	conf, err := OpenRaw([]byte(ExampleYaml))
	assert.NoError(t, err)
	assert.Equal(t, "tcp://127.0.0.1:1883", conf.Endpoints.Mqtt.Broker)
	assert.Equal(t, ":8723", conf.Endpoints.Api)
	assert.Equal(t, "Kitchen speaker", conf.Voice.Device)
	assert.Equal(t, "fr", conf.Voice.Language)
	assert.Equal(t, []string{"Marshall Stanmore"}, conf.Cast.Models)
	assert.Equal(t, Duration(10*time.Second), conf.Cast.Poll)
}

func TestDefaults(t *testing.T) {
	conf, err := OpenRaw([]byte(``))
	assert.NoError(t, err)
	assert.Equal(t, "Google", conf.Cast.Room)
	assert.Equal(t, "en", conf.Voice.Language)
	assert.Equal(t, 50, conf.Voice.Volume)
	assert.Equal(t, 10001, conf.Voice.Minport)
	assert.Equal(t, 19999, conf.Voice.Maxport)
	assert.Equal(t, 16384, conf.Voice.Chunk)
	assert.Equal(t, Duration(10*time.Second), conf.Cast.Poll)
}

func TestOpenRawBad(t *testing.T) {
	_, err := OpenRaw([]byte(`:`))
	assert.Error(t, err)
}

func TestDeviceRoom(t *testing.T) {
	conf, _ := OpenRaw([]byte(ExampleYaml))
	assert.Equal(t, "Kitchen", conf.DeviceRoom("Kitchen speaker"))
	assert.Equal(t, "Google", conf.DeviceRoom("Bedroom speaker"))
}
