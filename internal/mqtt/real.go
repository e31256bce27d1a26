package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"go.uber.org/zap"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	config Config
	logger *zap.Logger
}

// fails if RealPublisher does not implement Publisher
var _ Publisher = &RealPublisher{}

// NewRealPublisher connects to the configured broker. The connection is retried in the
// background, so a broker that is down at startup does not block the agent for long.
func NewRealPublisher(ctx context.Context, config Config) (*RealPublisher, error) {
	config = config.withDefaults()
	logger := log.FromContext(ctx).Named("mqtt")

	opts := paho.NewClientOptions().
		AddBroker(config.Broker).
		SetClientID(config.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(config.AvailabilityTopic(), PayloadOffline, 1, true).
		SetOnConnectHandler(func(client paho.Client) {
			logger.Info("connected to broker", zap.String("broker", config.Broker))
			client.Publish(config.AvailabilityTopic(), 1, true, PayloadOnline)
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn("lost connection to broker", zap.Error(err))
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn("broker not reachable yet, retrying in background", zap.String("broker", config.Broker))
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// PublishState sends the state retained with QoS 0, so subscribers always see the latest state.
func (p *RealPublisher) PublishState(event fancontroller.StateEvent) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	token := p.client.Publish(p.config.StateTopic(), 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *RealPublisher) Close() error {
	if p.client.IsConnected() {
		token := p.client.Publish(p.config.AvailabilityTopic(), 1, true, PayloadOffline)
		if token.WaitTimeout(publishTimeout) && token.Error() != nil {
			p.logger.Warn("Failed to announce offline state", zap.Error(token.Error()))
		}
	}
	p.client.Disconnect(1000)
	return nil
}
