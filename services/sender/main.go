// Package sender is a service to emit test events received on stdin. Use
// simply for testing.
package sender

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

// Service sender
type Service struct{}

// ID of the service
func (self *Service) ID() string {
	return "sender"
}

func (self *Service) Run() error {
	b := bufio.NewScanner(os.Stdin)
	for b.Scan() {
		ev := pubsub.Parse(b.Text(), "")
		if ev != nil {
			fmt.Println(ev)
			services.Publisher.Emit(ev)
		} else {
			fmt.Println("Parse failed")
		}
	}

	// give it time to send
	time.Sleep(time.Duration(500) * time.Millisecond)
	return nil
}
