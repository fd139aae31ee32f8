package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/barnybug/castbridge/config"
	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/pubsub/dummy"
)

func TestConfigWaiterDedup(t *testing.T) {
	ev := pubsub.NewEvent("config", pubsub.Fields{"config": config.ExampleYaml})
	reloaded := config.ExampleYaml + "\nmqtt:\n"
	ev2 := pubsub.NewEvent("config", pubsub.Fields{"config": reloaded})
	Subscriber = &dummy.Subscriber{Events: []*pubsub.Event{ev, ev, ev2}}

	waiter := NewConfigWaiter(pubsub.Exact("config"))
	waiter.Wait()
	assert.Equal(t, []byte(config.ExampleYaml), waiter.Value)

	// a duplicate config event is ignored
	updated := false
	waiter.update = func() { updated = true }
	waiter.Wait()
	assert.False(t, updated)

	// a changed config is a hot reload
	waiter.Wait()
	assert.True(t, updated)
	assert.Equal(t, []byte(reloaded), waiter.Value)
}

func TestConfigService(t *testing.T) {
	Subscriber = &dummy.Subscriber{Events: []*pubsub.Event{
		pubsub.NewEvent("config", pubsub.Fields{"config": config.ExampleYaml}),
	}}
	cs := NewConfigService()
	cs.Wait()
	assert.NotNil(t, cs.Value)
	assert.Equal(t, "Kitchen speaker", cs.Value.Voice.Device)
	assert.Equal(t, cs.Value, Config)
}
