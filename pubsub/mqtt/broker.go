package mqtt

import (
	"fmt"
	"log"
	"math/rand"
	"os"

	MQTT "github.com/eclipse/paho.mqtt.golang"
)

// Prefix namespacing all castbridge topics on the broker.
const Prefix = "castbridge/"

type Broker struct {
	broker     string
	client     MQTT.Client
	subscriber *Subscriber
}

func NewBroker(broker, name string) *Broker {
	// generate a unique client id
	hostname, _ := os.Hostname()
	clientId := fmt.Sprintf("castbridge/%s-%s-%d-%d", name, hostname, os.Getpid(), rand.Int())

	self := &Broker{broker: broker}
	opts := MQTT.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientId)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(client MQTT.Client, msg MQTT.Message) {
		if self.subscriber != nil {
			self.subscriber.publishHandler(client, msg)
		}
	})
	opts.SetOnConnectHandler(func(client MQTT.Client) {
		if self.subscriber != nil {
			self.subscriber.connectHandler(client)
		}
	})

	self.client = MQTT.NewClient(opts)
	if token := self.client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln("Couldn't connect to mqtt:", token.Error())
	}
	return self
}

func (self *Broker) Id() string {
	return "mqtt: " + self.broker
}

func (self *Broker) Subscriber() *Subscriber {
	if self.subscriber == nil {
		self.subscriber = NewSubscriber(self)
	}
	return self.subscriber
}

func (self *Broker) Publisher() *Publisher {
	return &Publisher{broker: self.broker, client: self.client}
}
