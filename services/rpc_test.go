package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/barnybug/castbridge/pubsub"
)

// loopback routes emitted events straight back to subscribers, standing in
// for the broker.
type loopback struct {
	lock sync.Mutex
	subs []loopbackSub
}

type loopbackSub struct {
	topics []pubsub.Topic
	ch     chan *pubsub.Event
}

func (l *loopback) ID() string {
	return "loopback"
}

func (l *loopback) Subscribe(topics ...pubsub.Topic) <-chan *pubsub.Event {
	l.lock.Lock()
	defer l.lock.Unlock()
	ch := make(chan *pubsub.Event, 8)
	l.subs = append(l.subs, loopbackSub{topics, ch})
	return ch
}

func (l *loopback) Close(ch <-chan *pubsub.Event) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for i, s := range l.subs {
		if s.ch == ch {
			close(s.ch)
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *loopback) Emit(ev *pubsub.Event) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, s := range l.subs {
		for _, t := range s.topics {
			if t.Match(ev.Topic) {
				s.ch <- ev
				break
			}
		}
	}
}

// loopbackPublisher adapts loopback to pubsub.Publisher, whose Close takes
// no arguments, unlike pubsub.Subscriber's.
type loopbackPublisher struct {
	*loopback
}

func (loopbackPublisher) Close() {}

// answerQueries replies to each query event like a service would.
func answerQueries(lb *loopback, message string) {
	queries := lb.Subscribe(pubsub.Exact("query"))
	go func() {
		for ev := range queries {
			fields := pubsub.Fields{
				"source":  "cast",
				"target":  ev.StringField("source"),
				"message": message,
			}
			lb.Emit(pubsub.NewEvent(ev.StringField("reply_to"), fields))
		}
	}()
}

func TestRPC(t *testing.T) {
	lb := &loopback{}
	Subscriber = lb
	Publisher = loopbackPublisher{lb}
	answerQueries(lb, "2 devices")

	reply, err := RPC("cast/devices")
	assert.NoError(t, err)
	assert.Equal(t, "2 devices", reply)
}

func TestRPCTimeout(t *testing.T) {
	lb := &loopback{}
	Subscriber = lb
	Publisher = loopbackPublisher{lb}

	_, err := RPC("cast/devices")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	lb := &loopback{}
	Subscriber = lb
	Publisher = loopbackPublisher{lb}
	answerQueries(lb, "done")

	events := Query("cast/status", 100*time.Millisecond)
	if assert.Len(t, events, 1) {
		assert.Equal(t, "done", events[0].StringField("message"))
	}
}
