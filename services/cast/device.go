package cast

import (
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/context"

	"github.com/barnybug/go-cast"
	"github.com/barnybug/go-cast/controllers"
)

// savedState holds device state stashed before a voice notification.
// The foreground app is quit, not restarted afterwards - only volume and
// mute are put back.
type savedState struct {
	level float64
	muted bool
	valid bool
}

// Device wraps a cast client with the state tracked for entity sync.
type Device struct {
	client *cast.Client
	UUID   string
	Name   string
	Model  string

	lock     sync.Mutex
	ready    bool
	active   bool
	muted    bool
	level    float64
	app      string // foreground app display name
	appID    string
	state    string // player state
	position float64
	duration float64
	saved    savedState
}

func newDevice(client *cast.Client) *Device {
	return &Device{
		client: client,
		UUID:   client.Uuid(),
		Name:   client.Name(),
		Model:  client.Device(),
	}
}

// ID is the bus entity id, eg "cast.kitchen_speaker".
func (d *Device) ID() string {
	return "cast." + slug(d.Name)
}

func slug(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ', c == '_', c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (d *Device) Ready() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.ready
}

func (d *Device) setReady(ready bool) {
	d.lock.Lock()
	d.ready = ready
	if !ready {
		d.active = false
	}
	d.lock.Unlock()
}

func (d *Device) Muted() bool {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.muted
}

func (d *Device) setVolumeState(level float64, muted bool) {
	d.lock.Lock()
	d.level = level
	d.muted = muted
	d.ready = true
	d.lock.Unlock()
}

func (d *Device) setApp(app, appID string) {
	d.lock.Lock()
	d.app = app
	d.appID = appID
	d.active = app != "" && app != "Backdrop"
	d.lock.Unlock()
}

func (d *Device) Duration() float64 {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.duration
}

func (d *Device) setMediaState(state string, position, duration float64) {
	d.lock.Lock()
	d.state = state
	d.position = position
	if duration > 0 {
		d.duration = duration
	}
	d.lock.Unlock()
}

func (d *Device) SetMuted(ctx context.Context, muted bool) error {
	_, err := d.client.Receiver().SetVolume(ctx, &controllers.Volume{Muted: &muted})
	return err
}

func (d *Device) SetVolume(ctx context.Context, level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	_, err := d.client.Receiver().SetVolume(ctx, &controllers.Volume{Level: &level})
	return err
}

func (d *Device) QuitApp(ctx context.Context) error {
	_, err := d.client.Receiver().QuitApp(ctx)
	return err
}

func (d *Device) LaunchApp(ctx context.Context, appID string) error {
	return d.client.Receiver().LaunchApp(ctx, appID)
}

func (d *Device) Play(ctx context.Context) error {
	media, err := d.client.Media(ctx)
	if err != nil {
		return err
	}
	_, err = media.Play(ctx)
	return err
}

func (d *Device) Pause(ctx context.Context) error {
	media, err := d.client.Media(ctx)
	if err != nil {
		return err
	}
	_, err = media.Pause(ctx)
	return err
}

func (d *Device) Seek(ctx context.Context, seconds int) error {
	media, err := d.client.Media(ctx)
	if err != nil {
		return err
	}
	_, err = media.Seek(ctx, seconds)
	return err
}

// MediaStatus polls the media channel for the current playback status.
func (d *Device) MediaStatus(ctx context.Context) (*controllers.MediaStatus, error) {
	media, err := d.client.Media(ctx)
	if err != nil {
		return nil, err
	}
	response, err := media.GetStatus(ctx)
	if err != nil {
		return nil, err
	}
	if len(response.Status) == 0 {
		return nil, nil
	}
	return response.Status[0], nil
}

// StoreState stashes volume/mute/app, then quiets the device ready for a
// notification at the given volume percent.
func (d *Device) StoreState(ctx context.Context, volume int) {
	d.lock.Lock()
	d.saved = savedState{level: d.level, muted: d.muted, valid: true}
	d.lock.Unlock()

	if err := d.QuitApp(ctx); err != nil {
		log.Printf("StoreState: failed to quit app: %s", err)
	}
	if err := d.SetVolume(ctx, float64(volume)/100); err != nil {
		log.Printf("StoreState: failed to set volume: %s", err)
	}
	if err := d.SetMuted(ctx, false); err != nil {
		log.Printf("StoreState: failed to unmute: %s", err)
	}
}

// RestoreState puts saved volume and mute back after a notification. The
// device reconnects after quit_app, so wait for it to become ready again.
func (d *Device) RestoreState(ctx context.Context, stop <-chan struct{}) {
	d.lock.Lock()
	saved := d.saved
	d.saved.valid = false
	d.lock.Unlock()
	if !saved.valid {
		log.Println("No device state to restore after notification")
		return
	}

	waited := 0
	for !d.Ready() && waited < 10 {
		debugf("RestoreState: waiting for '%s' to reconnect...", d.Name)
		select {
		case <-stop:
			return
		case <-time.After(time.Second):
		}
		waited++
	}
	if !d.Ready() {
		log.Printf("RestoreState: '%s' did not reconnect in time, state not restored", d.Name)
		return
	}
	if err := d.QuitApp(ctx); err != nil {
		log.Printf("RestoreState: failed to quit app: %s", err)
	}
	if err := d.SetVolume(ctx, saved.level); err != nil {
		log.Printf("RestoreState: failed to restore volume: %s", err)
	}
	if err := d.SetMuted(ctx, saved.muted); err != nil {
		log.Printf("RestoreState: failed to restore mute: %s", err)
	}
}
