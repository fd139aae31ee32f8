package cast

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/context"

	"github.com/barnybug/go-cast/controllers"

	"github.com/barnybug/castbridge/services"
)

// notification is a queued voice message for a device.
type notification struct {
	target string // friendly device name
	text   string
}

func (service *Service) enqueue(n notification) {
	if service.synth == nil {
		log.Println("Voice notifications are disabled, dropping notification")
		return
	}
	select {
	case service.queue <- n:
		debugf("Queued notification for '%s': %s", n.target, n.text)
	default:
		log.Printf("Notification queue full, dropping notification for '%s'", n.target)
	}
}

// notifier delivers queued notifications one at a time.
func (service *Service) notifier(ctx context.Context) {
	defer service.wg.Done()
	for {
		select {
		case <-service.stop:
			return
		case n := <-service.queue:
			service.deliver(ctx, n)
		}
	}
}

// sleep waits d, returning false if the service is stopping.
func (service *Service) sleep(d time.Duration) bool {
	select {
	case <-service.stop:
		return false
	case <-time.After(d):
		return true
	}
}

// estimateDuration guesses playing time of an mp3 from its file size,
// assuming 64kbit/s encoding.
func estimateDuration(size int64) time.Duration {
	seconds := float64(size) * 8 / 64000
	return time.Duration(seconds * float64(time.Second))
}

func (service *Service) deliver(ctx context.Context, n notification) {
	device := service.deviceByName(n.target)
	if device == nil {
		log.Printf("Device '%s' not found, notification ignored", n.target)
		return
	}
	if device.Muted() {
		log.Printf("Device '%s' is muted, notification skipped", n.target)
		return
	}
	if !device.Ready() {
		log.Printf("Device '%s' is not connected, notification ignored", n.target)
		return
	}

	path, err := service.synth.Synthesize(ctx, n.text, device.UUID)
	if err != nil {
		log.Printf("Failed to synthesize message: %s", err)
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		log.Printf("Failed to stat message file: %s", err)
		return
	}
	estimated := estimateDuration(info.Size())
	debugf("Synthesized %s (%d bytes, about %.1fs)", path, info.Size(), estimated.Seconds())

	device.StoreState(ctx, services.Config.Voice.Volume)
	url := service.server.URL(filepath.Base(path))
	completed := service.play(ctx, device, url, estimated)
	// let the device flush its buffer before quitting the media app
	service.sleep(2 * time.Second)
	device.RestoreState(ctx, service.stop)

	if completed {
		log.Printf("Notification to '%s' completed", n.target)
		if err := os.Remove(path); err != nil {
			log.Printf("Failed to remove message file: %s", err)
		}
	} else {
		log.Printf("Notification to '%s' timed out (it may have been cut short)", n.target)
	}
}

// playbackWatcher tracks a notification playing against a deadline.
//
// A conservative deadline is set up front from the estimated clip length,
// then tightened once the device reports the real media duration.
type playbackWatcher struct {
	deadline      time.Time
	started       bool
	durationKnown bool
}

func newPlaybackWatcher(estimated time.Duration) *playbackWatcher {
	timeout := estimated + 10*time.Second
	if timeout < 15*time.Second {
		timeout = 15 * time.Second
	}
	return &playbackWatcher{deadline: time.Now().Add(timeout)}
}

func (w *playbackWatcher) expired() bool {
	return !time.Now().Before(w.deadline)
}

// update folds in a media status, returning true once the message has
// played through to completion.
func (w *playbackWatcher) update(status *controllers.MediaStatus) bool {
	if status == nil {
		return false
	}
	switch status.PlayerState {
	case "PLAYING", "BUFFERING", "PAUSED":
		w.started = true
	case "IDLE":
		if w.started {
			return true
		}
	}
	if w.started && !w.durationKnown && status.Media != nil && status.Media.Duration > 0 {
		w.deadline = time.Now().Add(time.Duration(status.Media.Duration+5) * time.Second)
		w.durationKnown = true
	}
	return false
}

// play loads the media url on the device and polls until playback finishes.
// Returns true if the message played to completion, false on timeout.
func (service *Service) play(ctx context.Context, device *Device, url string, estimated time.Duration) bool {
	media, err := device.client.Media(ctx)
	if err != nil {
		log.Printf("%s: failed to open media channel: %s", device.Name, err)
		return false
	}
	item := controllers.MediaItem{
		ContentId:   url,
		StreamType:  "BUFFERED",
		ContentType: "audio/mpeg",
	}
	if _, err := media.LoadMedia(ctx, item, 0, true, nil); err != nil {
		log.Printf("%s: failed to load media: %s", device.Name, err)
		return false
	}

	poll := func() (*controllers.MediaStatus, error) {
		return device.MediaStatus(ctx)
	}
	return service.awaitPlayback(device.Name, estimated, 500*time.Millisecond, poll)
}

func (service *Service) awaitPlayback(name string, estimated, interval time.Duration, poll func() (*controllers.MediaStatus, error)) bool {
	watcher := newPlaybackWatcher(estimated)
	for !watcher.expired() {
		if !service.sleep(interval) {
			return false
		}
		status, err := poll()
		if err != nil || status == nil {
			continue
		}
		if watcher.update(status) {
			return true
		}
		debugf("%s: %s at %.1fs (deadline in %.1fs)", name, status.PlayerState,
			status.CurrentTime, time.Until(watcher.deadline).Seconds())
	}
	return false
}
