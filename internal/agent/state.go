package agent

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
)

var (
	// eventCounter counts the state events seen by the agent
	eventCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gboxfan_agent",
		Name:      "events_count",
		Help:      "Fan agent state event statistics (handled events)",
	}, []string{"reason"})

	// publishErrorCounter counts state events that could not be forwarded to the broker
	publishErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gboxfan_agent",
		Name:      "mqtt_publish_errors_count",
		Help:      "Fan agent state events that failed to publish",
	})
)

// FanState tracks the latest state event and wakes up waiters on every new one.
type FanState struct {
	mutex sync.Mutex

	last       fancontroller.StateEvent
	seen       bool
	updateChan chan struct{}
}

func NewFanState() *FanState {
	return &FanState{
		updateChan: make(chan struct{}),
	}
}

func (s *FanState) RegisterEvent(event fancontroller.StateEvent) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.last = event
	s.seen = true
	close(s.updateChan)
	s.updateChan = make(chan struct{})

	eventCounter.WithLabelValues(string(event.Reason)).Inc()
}

// Last returns the latest event, ok is false before the first one
func (s *FanState) Last() (event fancontroller.StateEvent, ok bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.last, s.seen
}

// WaitForUpdate blocks until the next event is registered.
func (s *FanState) WaitForUpdate(ctx context.Context) (fancontroller.StateEvent, error) {
	s.mutex.Lock()
	ch := s.updateChan
	s.mutex.Unlock()

	select {
	case <-ctx.Done():
		return fancontroller.StateEvent{}, ctx.Err()
	case <-ch:
		event, _ := s.Last()
		return event, nil
	}
}
