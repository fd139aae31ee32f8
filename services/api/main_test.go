package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"

	"github.com/barnybug/castbridge/config"
	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/pubsub/dummy"
	"github.com/barnybug/castbridge/services"
)

func Example_interfaces() {
	var _ services.Service = (*Service)(nil)
	// Output:
}

func Example_index() {
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiIndex(rec, &r)
	fmt.Println(rec.Body)
	// Output:
	// <html>castbridge is listening</html>
}

func announcement() *pubsub.Event {
	return pubsub.NewEvent("announce", pubsub.Fields{
		"device":    "cast.kitchen_speaker",
		"name":      "Kitchen speaker",
		"model":     "Google Nest Mini",
		"room":      "Kitchen",
		"source":    "cast",
		"timestamp": "2014-01-02 03:04:05.000",
	})
}

func Example_devices() {
	services.Stor = services.NewMockStore()
	services.Config = config.ExampleConfig
	services.Stor.Set(deviceStorePrefix+"cast.kitchen_speaker", announcement().String())
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiDevices(rec, &r)
	fmt.Println(rec.Body)
	// Output:
	// {"cast.kitchen_speaker":{"device":"cast.kitchen_speaker","model":"Google Nest Mini","name":"Kitchen speaker","room":"Kitchen","source":"cast","state":null,"timestamp":"2014-01-02 03:04:05.000","topic":"announce"}}
}

func Example_devicesRooms() {
	services.Stor = services.NewMockStore()
	services.Config = config.ExampleConfig
	services.Stor.Set(deviceStorePrefix+"cast.kitchen_speaker", announcement().String())
	rec := httptest.NewRecorder()
	r := http.Request{}
	apiDevicesRooms(rec, &r)
	fmt.Println(rec.Body)
	// Output:
	// {"Kitchen":[{"device":"cast.kitchen_speaker","model":"Google Nest Mini","name":"Kitchen speaker","room":"Kitchen","source":"cast","timestamp":"2014-01-02 03:04:05.000","topic":"announce"}]}
}

func Example_notify() {
	em := &dummy.Publisher{}
	services.Publisher = em
	services.Config = config.ExampleConfig
	rec := httptest.NewRecorder()
	r := http.Request{
		Method: "GET",
		URL:    &url.URL{RawQuery: "device=Kitchen+speaker&message=dinner+is+ready"},
	}
	apiNotify(rec, &r)
	ev := em.Events[0]
	fmt.Print(rec.Body)
	fmt.Println(ev.Topic, ev.Target(), ev.Device(), ev.StringField("message"))
	// Output:
	// true
	// alert cast Kitchen speaker dinner is ready
}

func Example_notifyMissingMessage() {
	services.Publisher = &dummy.Publisher{}
	services.Config = config.ExampleConfig
	rec := httptest.NewRecorder()
	r := http.Request{
		Method: "GET",
		URL:    &url.URL{},
	}
	apiNotify(rec, &r)
	fmt.Print(rec.Code, " ", rec.Body)
	// Output:
	// 500 message parameter required
}
