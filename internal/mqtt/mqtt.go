// Package mqtt publishes fan state changes to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
)

const (
	DefaultTopicPrefix = "gboxfan"
	DefaultClientID    = "gboxfan-agent"

	stateTopic        = "state"
	availabilityTopic = "availability"

	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Config configures the MQTT publisher. Publishing is disabled when Broker is empty.
type Config struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// Enabled reports whether a broker is configured
func (c Config) Enabled() bool {
	return c.Broker != ""
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = DefaultClientID
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	return c
}

// StateTopic is the retained topic carrying the latest fan state
func (c Config) StateTopic() string {
	return c.withDefaults().TopicPrefix + "/" + stateTopic
}

// AvailabilityTopic carries online/offline, offline is the last will
func (c Config) AvailabilityTopic() string {
	return c.withDefaults().TopicPrefix + "/" + availabilityTopic
}

// Publisher publishes fan state events.
type Publisher interface {
	// PublishState sends a state event to the broker.
	// Failures are returned to the caller and must not stop the agent.
	PublishState(event fancontroller.StateEvent) error
	// Close announces the agent as offline and disconnects.
	Close() error
}

// Payload is the JSON document published on the state topic.
type Payload struct {
	Fan FanPayload `json:"fan"`
}

type FanPayload struct {
	Timestamp   string `json:"timestamp"`
	Mode        string `json:"mode"`
	On          bool   `json:"on"`
	Temperature *int   `json:"temperature"`
	Reason      string `json:"reason"`
}

// FormatPayload creates the JSON payload for a state event. Invalid temperatures become null.
func FormatPayload(event fancontroller.StateEvent) ([]byte, error) {
	payload := Payload{
		Fan: FanPayload{
			Timestamp: event.Time.UTC().Format(time.RFC3339),
			Mode:      event.Mode.String(),
			On:        event.FanOn,
			Reason:    string(event.Reason),
		},
	}
	if event.Temperature.Valid() {
		temp := int(event.Temperature)
		payload.Fan.Temperature = &temp
	}
	return json.Marshal(payload)
}
