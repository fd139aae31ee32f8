package main

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

func fmtFatalf(format string, v ...interface{}) {
	fmt.Printf(format, v...)
	os.Exit(1)
}

func printAnswer(ev *pubsub.Event) {
	source := ev.Source()
	message := ev.StringField("message")

	if strings.Contains(message, "\n") {
		fmt.Printf("\x1b[32;1m%s\x1b[0m\n%s\n", source, message)
	} else {
		fmt.Printf("\x1b[32;1m%s\x1b[0m %s\n", source, message)
	}
}

func stream(path string, params url.Values) {
	resp, err := request(path, params)
	if err != nil {
		if strings.HasSuffix(err.Error(), " EOF") { // yuck
			fmtFatalf("Server disconnected\n")
		} else {
			fmtFatalf("error: %s\n", err)
		}
	}
	defer resp.Body.Close()
	scanner := bufio.NewScanner(resp.Body)

	n := 0
	for scanner.Scan() {
		ev := pubsub.Parse(scanner.Text(), "")
		if ev == nil {
			continue
		}
		printAnswer(ev)
		n += 1
	}
	if n == 0 {
		fmt.Println("No response")
	}
}

func request(path string, params url.Values) (*http.Response, error) {
	api := os.Getenv("CASTBRIDGE_API")
	if api == "" {
		fmtFatalf("Set CASTBRIDGE_API to the castbridge api url.\n")
	}
	uri := fmt.Sprintf("%s/%s", api, path)
	if len(params) > 0 {
		uri += "?" + params.Encode()
	}
	resp, err := http.Get(uri)
	return resp, err
}

// overBus is true when there is no api endpoint configured but the mqtt
// broker is - queries go over the message bus directly.
func overBus() bool {
	return os.Getenv("CASTBRIDGE_API") == "" && os.Getenv("CASTBRIDGE_MQTT") != ""
}

func busQuery(q string) {
	services.SetupBroker("cli")
	defer services.Shutdown()
	events := services.Query(q, 2*time.Second)
	if len(events) == 0 {
		fmt.Println("No response")
		return
	}
	for _, ev := range events {
		printAnswer(ev)
	}
}

func busSay(message, device string) {
	services.SetupBroker("cli")
	defer services.Shutdown()
	q := "cast/say " + message
	if device != "" {
		q = "cast/say " + device + ": " + message
	}
	reply, err := services.RPC(q)
	if err != nil {
		fmtFatalf("error: %s\n", err)
	}
	fmt.Println(reply)
}

func query(first string, rest []string) {
	q := strings.Join(rest, " ")
	if overBus() {
		full := first
		if q != "" {
			full += " " + q
		}
		busQuery(full)
		return
	}
	u := url.Values{"q": {q}}
	path := fmt.Sprintf("query/%s", first)
	stream(path, u)
}
