package pubsub

type Publisher interface {
	ID() string
	Emit(ev *Event)
	Close()
}

type Subscriber interface {
	ID() string
	Subscribe(topics ...Topic) <-chan *Event
	Close(<-chan *Event)
}

// Topic matches mqtt topics for subscriptions.
type Topic interface {
	Match(topic string) bool
}
