package mqtt

import (
	"sync"

	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	events   []fancontroller.StateEvent
	payloads [][]byte
	closed   bool

	// PublishError, if set, is returned by PublishState.
	PublishError error
}

// fails if FakePublisher does not implement Publisher
var _ Publisher = &FakePublisher{}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (f *FakePublisher) PublishState(event fancontroller.StateEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.events = append(f.events, event)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Events returns a copy of the published events
func (f *FakePublisher) Events() []fancontroller.StateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fancontroller.StateEvent(nil), f.events...)
}

func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
