// Package api is a service providing an HTTP REST API to access castbridge
// and control devices.
//
// The endpoints supported are:
//
// http://localhost:8723/query/{query} - query a service, e.g. http://localhost:8723/query/cast/status
//
// http://localhost:8723/devices - list of devices
//
// http://localhost:8723/devices/rooms - devices grouped by room
//
// http://localhost:8723/notify?device=X&message=Y - speak a notification
//
// http://localhost:8723/events/feed - continuous live stream of events (line delimited)
//
// http://localhost:8723/config?path=castbridge/config - GET configuration or POST to update configuration
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

const (
	deviceStorePrefix = "castbridge/devices/"
	stateStorePrefix  = "castbridge/state/devices/"
)

// Service api
type Service struct {
}

// ID of the service
func (service *Service) ID() string {
	return "api"
}

func errorResponse(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), 500)
}

func apiIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "text/html")
	fmt.Fprintf(w, "<html>castbridge is listening</html>")
}

func jsonResponse(w http.ResponseWriter, obj interface{}) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	err := enc.Encode(obj)
	if err != nil {
		errorResponse(w, err)
	}
}

func query(endpoint string, q string, w http.ResponseWriter) {
	w.Header().Add("Content-Type", "application/json; charset=utf-8")

	ch := services.QueryChannel(strings.TrimSpace(endpoint+" "+q), 500*time.Millisecond)

	for ev := range ch {
		fmt.Fprintf(w, ev.String()+"\r\n")
		w.(http.Flusher).Flush()
	}
}

func apiQuery(w http.ResponseWriter, r *http.Request) {
	endpoint := r.URL.Path[len("/query/"):]
	endpoint = strings.Replace(endpoint, "/", " ", 1)
	q := r.URL.Query().Get("q")
	query(endpoint, q, w)
}

// getDevices returns the devices announced on the bus, keyed by device id.
func getDevices() map[string]map[string]interface{} {
	ret := map[string]map[string]interface{}{}
	nodes, _ := services.Stor.GetRecursive(deviceStorePrefix)
	for _, node := range nodes {
		ev := pubsub.Parse(node.Value, "announce")
		if ev == nil {
			continue
		}
		name := node.Key[strings.LastIndex(node.Key, "/")+1:]
		ret[name] = ev.Map()
	}
	return ret
}

// getDevicesState returns the last state event per device id.
func getDevicesState() map[string]interface{} {
	ret := make(map[string]interface{})
	nodes, _ := services.Stor.GetRecursive(stateStorePrefix)
	for _, node := range nodes {
		ev := pubsub.Parse(node.Value, "cast")
		if ev == nil {
			continue
		}
		name := node.Key[strings.LastIndex(node.Key, "/")+1:]
		ret[name] = ev.Map()
	}
	return ret
}

func apiDevices(w http.ResponseWriter, r *http.Request) {
	devices := getDevices()
	state := getDevicesState()
	for name, device := range devices {
		device["state"] = state[name]
	}
	jsonResponse(w, devices)
}

func apiDevicesRooms(w http.ResponseWriter, r *http.Request) {
	rooms := map[string][]map[string]interface{}{}
	for _, device := range getDevices() {
		room, _ := device["room"].(string)
		if room == "" {
			room = "Unknown"
		}
		rooms[room] = append(rooms[room], device)
	}
	jsonResponse(w, rooms)
}

// apiNotify queues a voice notification. The message is spoken on the given
// device, or the configured default when absent.
func apiNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method == "POST" {
		r.ParseForm()
	}
	message := param(r, "message")
	if message == "" {
		errorResponse(w, errors.New("message parameter required"))
		return
	}
	device := param(r, "device")
	services.SendNotification(message, "cast", device)
	jsonResponse(w, true)
}

func param(r *http.Request, name string) string {
	if r.Method == "POST" {
		if value := r.PostFormValue(name); value != "" {
			return value
		}
	}
	return r.URL.Query().Get(name)
}

func apiEventsFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topics := q.Get("topics")
	w.Header().Add("Content-Type", "application/json; boundary=NL")

	var subtopics []pubsub.Topic
	if topics != "" {
		for _, topic := range strings.Split(topics, ",") {
			subtopics = append(subtopics, pubsub.Prefix(topic))
		}
	} else {
		subtopics = append(subtopics, pubsub.All())
	}
	ch := services.Subscriber.Subscribe(subtopics...)
	defer services.Subscriber.Close(ch)

	for ev := range ch {
		encoder := json.NewEncoder(w)
		err := encoder.Encode(ev.Map())
		if err != nil {
			break
		}
		w.Write([]byte("\r\n")) // separator
		w.(http.Flusher).Flush()
	}
}

func apiConfig(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := q.Get("path")
	if path == "" {
		errorResponse(w, errors.New("path parameter required"))
		return
	}

	value, err := services.Stor.Get(path)
	if err != nil {
		errorResponse(w, err)
		return
	}

	if r.Method == "GET" {
		w.Header().Add("Content-Type", "application/yaml; charset=utf-8")
		w.Write([]byte(value))
	} else if r.Method == "POST" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			errorResponse(w, err)
			return
		}

		sout := string(data)
		if sout != value {
			services.Stor.Set(path, sout)
			ev := pubsub.NewEvent("config", pubsub.Fields{"path": path, "config": sout})
			ev.SetRetained(true)
			services.Publisher.Emit(ev)
			log.Printf("%s changed, emitted config event", path)
		}
	}
}

func router() *mux.Router {
	router := mux.NewRouter()
	router.Path("/").HandlerFunc(apiIndex)
	router.PathPrefix("/query/").HandlerFunc(apiQuery)
	router.Path("/devices").HandlerFunc(apiDevices)
	router.Path("/devices/rooms").HandlerFunc(apiDevicesRooms)
	router.Path("/notify").Methods("GET", "POST").HandlerFunc(apiNotify)
	router.Path("/events/feed").HandlerFunc(apiEventsFeed)
	router.Path("/config").HandlerFunc(apiConfig)
	return router
}

type loggingHandler struct {
	Handler http.Handler
}

func (service loggingHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	log.Printf("%s %s\n", req.Method, req.RequestURI)
	service.Handler.ServeHTTP(w, req)
}

func httpEndpoint() {
	var handler http.Handler = router()
	handler = loggingHandler{Handler: handler}
	http.Handle("/", handler)
	addr := services.Config.Endpoints.Api
	log.Println("Listening on " + addr)
	err := http.ListenAndServe(addr, nil)
	if err != nil {
		log.Fatalln(err)
	}
}

// recordEvents keeps the store up to date with the latest announce and state
// event for each device, so api requests can answer from the store.
func recordEvents() {
	for ev := range services.Subscriber.Subscribe(pubsub.All()) {
		device := ev.Device()
		if device == "" {
			continue
		}
		switch ev.Topic {
		case "announce":
			services.Stor.Set(deviceStorePrefix+device, ev.String())
		case "command", "query", "config":
			// not state
		default:
			if !strings.HasPrefix(ev.Topic, "_rpc") {
				services.Stor.Set(stateStorePrefix+device, ev.String())
			}
		}
	}
}

// Run the service
func (service *Service) Run() error {
	go recordEvents()
	httpEndpoint()
	return nil
}
