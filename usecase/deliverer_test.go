package usecase

import (
	"errors"
	"sync"

	domainTopic "github.com/AzielCF/az-chat/domains/topic"
)

var errDeliveryFailed = errors.New("connection gone")

// recordingDeliverer keeps every frame per connection in arrival order.
type recordingDeliverer struct {
	mu      sync.Mutex
	frames  map[string][]domainTopic.Event
	failFor map[string]bool
}

func newRecordingDeliverer() *recordingDeliverer {
	return &recordingDeliverer{
		frames:  make(map[string][]domainTopic.Event),
		failFor: make(map[string]bool),
	}
}

func (d *recordingDeliverer) Deliver(connectionID string, evt domainTopic.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failFor[connectionID] {
		return errDeliveryFailed
	}
	d.frames[connectionID] = append(d.frames[connectionID], evt)
	return nil
}

func (d *recordingDeliverer) fail(connectionID string) {
	d.mu.Lock()
	d.failFor[connectionID] = true
	d.mu.Unlock()
}

func (d *recordingDeliverer) events(connectionID string) []domainTopic.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domainTopic.Event(nil), d.frames[connectionID]...)
}

func (d *recordingDeliverer) names(connectionID string) []string {
	var out []string
	for _, e := range d.events(connectionID) {
		out = append(out, e.Name)
	}
	return out
}
