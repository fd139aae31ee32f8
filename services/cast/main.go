// Package cast service to bridge Google Cast audio devices onto the message
// bus.
//
// Discovers cast speakers and groups on the local network, announces them as
// entities, relays volume/media commands to them, publishes their status, and
// plays spoken notifications through them.
package cast

import (
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"

	"github.com/barnybug/go-cast"
	"github.com/barnybug/go-cast/discovery"
	"github.com/barnybug/go-cast/events"

	"github.com/barnybug/castbridge/lib/mediaserver"
	"github.com/barnybug/castbridge/lib/tts"
	"github.com/barnybug/castbridge/pubsub"
	"github.com/barnybug/castbridge/services"
)

// audioModels are the device models treated as audio endpoints. Matched as a
// case-insensitive substring of the advertised model, so "Google Nest Mini"
// matches "Nest Mini".
var audioModels = []string{
	"Google Home",
	"Google Nest",
	"Nest Mini",
	"Nest Audio",
	"Nest Hub",
	"Google Cast Group",
	"Lenovo Smart Clock",
}

const controlTimeout = 5 * time.Second

// Service cast
type Service struct {
	lock    sync.RWMutex
	devices map[string]*Device // by uuid

	apps   *AppRegistry
	synth  tts.Synthesizer
	server *mediaserver.Server
	queue  chan notification
	stop   chan struct{}
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// ID of the service
func (service *Service) ID() string {
	return "cast"
}

func debugf(format string, v ...interface{}) {
	if services.Config != nil && services.Config.Cast.Verbose {
		log.Printf(format, v...)
	}
}

func isAudioDevice(model string, extra []string) bool {
	model = strings.ToLower(model)
	for _, m := range audioModels {
		if strings.Contains(model, strings.ToLower(m)) {
			return true
		}
	}
	for _, m := range extra {
		if strings.Contains(model, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Run the service
func (service *Service) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	service.cancel = cancel
	service.stop = make(chan struct{})
	service.devices = map[string]*Device{}
	service.queue = make(chan notification, 16)
	service.apps = NewAppRegistry(services.Stor)

	if err := service.setupVoice(); err != nil {
		log.Printf("Voice notifications disabled: %s", err)
	} else {
		service.wg.Add(1)
		go service.notifier(ctx)
	}

	go service.commands()
	go service.alerts()
	go service.poller(ctx)

	// The browser only picks up the model filter configured at startup;
	// changing cast config requires a restart.
	discover := discovery.NewService(ctx)
	go service.listener(ctx, discover)
	discover.Run(ctx, time.Second*300)
	return nil
}

// Stop the service, aborting any notification in progress.
func (service *Service) Stop() {
	close(service.stop)
	if service.cancel != nil {
		service.cancel()
	}
	service.wg.Wait()

	service.lock.Lock()
	for _, device := range service.devices {
		log.Printf("%s: disconnecting", device.Name)
		device.client.Close()
	}
	service.devices = map[string]*Device{}
	service.lock.Unlock()

	if service.server != nil {
		service.server.Close()
	}
}

func (service *Service) setupVoice() error {
	conf := services.Config.Voice
	synth, err := tts.NewGoogle(conf.Dir, conf.Language)
	if err != nil {
		return err
	}
	server, err := mediaserver.New(conf.Dir, conf.Chunk, conf.Minport, conf.Maxport)
	if err != nil {
		return err
	}
	service.synth = synth
	service.server = server
	log.Printf("Serving notification audio at %s", server.URL(""))
	return nil
}

func (service *Service) listener(ctx context.Context, discover *discovery.Service) {
	for client := range discover.Found() {
		service.discovered(ctx, client)
	}
	log.Println("Listener finished")
}

func (service *Service) discovered(ctx context.Context, client *cast.Client) {
	if !isAudioDevice(client.Device(), services.Config.Cast.Models) {
		debugf("Ignoring %s: not an audio device (model: %s)", client.Name(), client.Device())
		return
	}

	uuid := client.Uuid()
	service.lock.Lock()
	if existing, ok := service.devices[uuid]; ok {
		if existing.Name != client.Name() {
			log.Printf("Device %s renamed: '%s' -> '%s'", uuid, existing.Name, client.Name())
		}
		if existing.Ready() {
			service.lock.Unlock()
			debugf("Existing device discovered: %s", client.Name())
			return
		}
		// stale connection, replace it
		existing.client.Close()
	}
	device := newDevice(client)
	service.devices[uuid] = device
	service.lock.Unlock()

	log.Printf("New device discovered: %s (model: %s)", client.Name(), client.Device())
	if err := client.Connect(ctx); err != nil {
		log.Printf("Failed to connect to %s: %s", client.Name(), err)
		return
	}
	service.announce(device)
	go service.deviceEvents(ctx, device)
}

func (service *Service) deviceEvents(ctx context.Context, device *Device) {
	client := device.client
LOOP:
	for {
		event := <-client.Events
		switch data := event.(type) {
		case events.Connected:
			log.Printf("%s: connected", device.Name)
			device.setReady(true)
			service.emitStatus(device, "on")
		case events.Disconnected:
			log.Printf("%s: disconnected, reconnecting...", device.Name)
			device.setReady(false)
			service.emitStatus(device, "off")
			client.Close()
			// Try to reconnect again
			err := client.Connect(ctx)
			if err != nil {
				log.Printf("Failed to reconnect to %s, removing: %s", device.Name, err)
				service.remove(device)
				break LOOP
			}
		case events.AppStarted:
			log.Printf("%s: app started: %s (%s)", device.Name, data.DisplayName, data.AppID)
			device.setApp(data.DisplayName, data.AppID)
			service.apps.Record(data.DisplayName, data.AppID)
			service.emitStatus(device, "on")
		case events.AppStopped:
			log.Printf("%s: app stopped", device.Name)
			device.setApp("", "")
			service.emitStatus(device, "off")
		case events.StatusUpdated:
			device.setVolumeState(data.Level, data.Muted)
			service.emitStatus(device, "")
		default:
			// ignored
		}
	}
}

func (service *Service) remove(device *Device) {
	service.lock.Lock()
	if current, ok := service.devices[device.UUID]; ok && current == device {
		delete(service.devices, device.UUID)
	}
	service.lock.Unlock()
}

func (service *Service) deviceByID(id string) *Device {
	service.lock.RLock()
	defer service.lock.RUnlock()
	for _, device := range service.devices {
		if device.ID() == id {
			return device
		}
	}
	return nil
}

func (service *Service) deviceByName(name string) *Device {
	service.lock.RLock()
	defer service.lock.RUnlock()
	for _, device := range service.devices {
		if strings.EqualFold(device.Name, name) {
			return device
		}
	}
	return nil
}

func (service *Service) deviceList() []*Device {
	service.lock.RLock()
	defer service.lock.RUnlock()
	devices := make([]*Device, 0, len(service.devices))
	for _, device := range service.devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})
	return devices
}

// announce publishes the retained entity event for a device, so other
// services can pick up its existence, name and room.
func (service *Service) announce(device *Device) {
	fields := pubsub.Fields{
		"device": device.ID(),
		"name":   device.Name,
		"model":  device.Model,
		"room":   services.Config.DeviceRoom(device.Name),
		"caps":   []string{"status", "volume", "playing", "source"},
		"source": "cast",
	}
	ev := pubsub.NewEvent("announce", fields)
	ev.SetRetained(true)
	services.Publisher.Emit(ev)
}

func (service *Service) emitStatus(device *Device, command string) {
	device.lock.Lock()
	fields := pubsub.Fields{
		"device": device.ID(),
		"source": device.Name,
		"level":  int(device.level*100 + 0.5),
		"muted":  device.muted,
	}
	if device.app != "" {
		fields["app"] = device.app
	}
	if device.state != "" {
		fields["state"] = device.state
	}
	if device.duration > 0 {
		fields["position"] = int(device.position / device.duration * 100)
	}
	if command == "" {
		if device.active {
			command = "on"
		} else {
			command = "off"
		}
	}
	device.lock.Unlock()
	fields["command"] = command
	ev := pubsub.NewEvent("cast", fields)
	ev.SetRetained(true)
	services.Publisher.Emit(ev)
}

// poller periodically polls media playback status on active devices.
func (service *Service) poller(ctx context.Context) {
	poll := time.Duration(services.Config.Cast.Poll)
	if poll == 0 {
		poll = 10 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-service.stop:
			return
		case <-ticker.C:
			for _, device := range service.deviceList() {
				if !device.Ready() {
					continue
				}
				service.pollDevice(ctx, device)
			}
		}
	}
}

func (service *Service) pollDevice(ctx context.Context, device *Device) {
	device.lock.Lock()
	active := device.active
	device.lock.Unlock()
	if !active {
		return
	}
	tctx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()
	status, err := device.MediaStatus(tctx)
	if err != nil {
		debugf("%s: media status failed: %s", device.Name, err)
		return
	}
	if status == nil {
		return
	}
	var duration float64
	if status.Media != nil {
		duration = status.Media.Duration
	}
	device.setMediaState(status.PlayerState, status.CurrentTime, duration)
	service.emitStatus(device, "")
}

// commands relays bus commands to the cast devices.
func (service *Service) commands() {
	for ev := range services.Subscriber.Subscribe(pubsub.Prefix("command")) {
		service.command(ev)
	}
}

// parseAction splits a command into its lowercased verb and parameters.
func parseAction(command string) (string, string) {
	action, params, _ := strings.Cut(strings.TrimSpace(command), " ")
	return strings.ToLower(action), strings.TrimSpace(params)
}

// parseLevel extracts the percentage from "set level 50" style commands, or
// the event level field.
func parseLevel(ev *pubsub.Event, params string) (int, bool) {
	if ev.IsSet("level") {
		return int(ev.IntField("level")), true
	}
	fields := strings.Fields(params)
	if len(fields) > 0 {
		if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			return n, true
		}
	}
	return 0, false
}

func (service *Service) command(ev *pubsub.Event) {
	id := ev.Device()
	if !strings.HasPrefix(id, "cast.") {
		return
	}
	device := service.deviceByID(id)
	if device == nil {
		debugf("Ignoring command for unknown device: %s", id)
		return
	}
	if !device.Ready() {
		log.Printf("%s: not connected, command dropped", device.Name)
		return
	}

	action, params := parseAction(ev.Command())
	ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
	defer cancel()

	var err error
	switch action {
	case "on":
		err = device.SetMuted(ctx, false)
	case "off":
		err = device.SetMuted(ctx, true)
	case "set", "volume", "level":
		level, ok := parseLevel(ev, params)
		if !ok {
			log.Printf("%s: level missing from command", device.Name)
			return
		}
		err = device.SetVolume(ctx, float64(level)/100)
	case "play":
		err = device.Play(ctx)
	case "pause":
		err = device.Pause(ctx)
	case "rewind":
		err = device.Seek(ctx, 0)
	case "seek":
		level, ok := parseLevel(ev, params)
		if !ok {
			log.Printf("%s: seek position missing from command", device.Name)
			return
		}
		duration := device.Duration()
		if duration == 0 {
			log.Printf("%s: media duration unknown, cannot seek", device.Name)
			return
		}
		err = device.Seek(ctx, int(duration*float64(level)/100))
	case "audio":
		err = service.launchAudio(ctx, device)
	case "quit":
		err = device.QuitApp(ctx)
	case "sendnotification", "say":
		service.enqueue(notification{target: device.Name, text: params})
	default:
		log.Printf("%s: unknown command: %s", device.Name, action)
		return
	}
	if err != nil {
		log.Printf("%s: command '%s' failed: %s", device.Name, action, err)
	}
}

// launchAudio starts the configured preferred app, unless it is already in
// the foreground.
func (service *Service) launchAudio(ctx context.Context, device *Device) error {
	name := services.Config.Voice.App
	appID, ok := service.apps.Lookup(name)
	if !ok {
		return fmt.Errorf("app '%s' not known", name)
	}
	device.lock.Lock()
	foreground := device.appID == appID
	device.lock.Unlock()
	if foreground {
		debugf("%s: %s already in foreground", device.Name, name)
		return nil
	}
	return device.LaunchApp(ctx, appID)
}

// alerts watches for voice notification requests on the bus.
func (service *Service) alerts() {
	for ev := range services.Subscriber.Subscribe(pubsub.Prefix("alert")) {
		if ev.Target() != "cast" {
			continue
		}
		target, text, err := resolveAlert(ev)
		if err != nil {
			log.Printf("Ignoring alert: %s", err)
			continue
		}
		service.enqueue(notification{target: target, text: text})
	}
}

func resolveAlert(ev *pubsub.Event) (string, string, error) {
	text := ev.StringField("message")
	if text == "" {
		return "", "", fmt.Errorf("message missing")
	}
	target := ev.StringField("device")
	if target == "" {
		target = services.Config.Voice.Device
	}
	if target == "" {
		return "", "", fmt.Errorf("no device given and no default voice device configured")
	}
	return target, text, nil
}

// QueryHandlers implements this service's queries
func (service *Service) QueryHandlers() services.QueryHandlers {
	return services.QueryHandlers{
		"status":  services.TextHandler(service.queryStatus),
		"devices": service.queryDevices,
		"apps":    services.TextHandler(service.queryApps),
		"say":     services.TextHandler(service.querySay),
		"help": services.StaticHandler("" +
			"status: get device status\n" +
			"devices: list devices\n" +
			"apps: list known apps\n" +
			"say message: speak a notification\n"),
	}
}

func (service *Service) queryStatus(q services.Question) string {
	var out strings.Builder
	for _, device := range service.deviceList() {
		device.lock.Lock()
		state := "disconnected"
		if device.ready {
			state = fmt.Sprintf("volume %d%%", int(device.level*100+0.5))
			if device.muted {
				state += " muted"
			}
			if device.app != "" {
				state += " playing " + device.app
			}
		}
		fmt.Fprintf(&out, "%s: %s\n", device.Name, state)
		device.lock.Unlock()
	}
	if out.Len() == 0 {
		return "No devices discovered"
	}
	return out.String()
}

type deviceEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
	Room  string `json:"room"`
	Ready bool   `json:"ready"`
}

func (service *Service) queryDevices(q services.Question) services.Answer {
	devices := []deviceEntry{}
	for _, device := range service.deviceList() {
		devices = append(devices, deviceEntry{
			ID:    device.ID(),
			Name:  device.Name,
			Model: device.Model,
			Room:  services.Config.DeviceRoom(device.Name),
			Ready: device.Ready(),
		})
	}
	data, _ := json.Marshal(devices)
	return services.Answer{Text: string(data), Json: devices}
}

func (service *Service) queryApps(q services.Question) string {
	var out strings.Builder
	for _, name := range service.apps.Names() {
		appID, _ := service.apps.Lookup(name)
		fmt.Fprintf(&out, "%s (%s)\n", name, appID)
	}
	return out.String()
}

func (service *Service) querySay(q services.Question) string {
	if q.Args == "" {
		return "say what?"
	}
	target := services.Config.Voice.Device
	text := q.Args
	// a leading "device:" overrides the default target
	if name, rest, ok := strings.Cut(q.Args, ":"); ok {
		if service.deviceByName(strings.TrimSpace(name)) != nil {
			target = strings.TrimSpace(name)
			text = strings.TrimSpace(rest)
		}
	}
	if target == "" {
		return "No default voice device configured"
	}
	service.enqueue(notification{target: target, text: text})
	return fmt.Sprintf("Queued notification to '%s'", target)
}
