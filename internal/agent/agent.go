package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptime-industries/gboxfan-agent/internal/mqtt"
	"github.com/uptime-industries/gboxfan-agent/pkg/eventbus"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"github.com/uptime-industries/gboxfan-agent/pkg/hal"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"github.com/uptime-industries/gboxfan-agent/pkg/workqueue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// stateBacklog is the number of state events buffered between the controller and the forwarder
const stateBacklog = 32

// FanAgent implements the core-logic of the agent. It owns the hardware, the work queue and the
// fan controller and forwards state changes to the state tracker and the broker.
type FanAgent interface {
	// Run dispatches the agent and blocks until the context is canceled or an error occurs.
	// On return the fan is off and all hardware handles are released.
	Run(ctx context.Context) error
	// GetMode returns the current mode code
	GetMode() int
	// SetMode switches the fan mode
	SetMode(ctx context.Context, mode int) error
	// Status returns the controller status and the latest state event, if any
	Status() (fancontroller.Status, *fancontroller.StateEvent)
	// WaitForUpdate blocks until the fan state changes
	WaitForUpdate(ctx context.Context) (fancontroller.StateEvent, error)
}

// fanAgentImpl is the implementation of the FanAgent interface
type fanAgentImpl struct {
	opts          FanAgentConfig
	defaultMode   fancontroller.Mode
	devices       *hal.Devices
	queue         *workqueue.Queue
	bus           eventbus.EventBus
	subscriber    eventbus.Subscriber
	fanController fancontroller.FanController
	state         *FanState
	publisher     mqtt.Publisher
}

// NewFanAgent acquires the hardware and builds the agent. The broker connection is optional:
// if it cannot be established the agent runs without telemetry.
func NewFanAgent(ctx context.Context, opts FanAgentConfig) (FanAgent, error) {
	var publisher mqtt.Publisher
	if opts.Mqtt.Enabled() {
		p, err := mqtt.NewRealPublisher(ctx, opts.Mqtt)
		if err != nil {
			log.FromContext(ctx).Warn("MQTT disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}
	return newFanAgent(ctx, opts, publisher)
}

func newFanAgent(ctx context.Context, opts FanAgentConfig, publisher mqtt.Publisher) (*fanAgentImpl, error) {
	mode, err := fancontroller.ParseMode(opts.DefaultMode)
	if err != nil {
		return nil, err
	}

	devices, err := hal.Open(ctx, opts.HalOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", fancontroller.ErrResourceUnavailable, err)
	}

	bus := eventbus.New()
	// Subscribe before the controller exists so the init event is not lost
	subscriber := bus.Subscribe(fancontroller.StateTopic, stateBacklog, eventbus.MatchType[fancontroller.StateEvent])
	queue := workqueue.New(opts.WorkQueueOpts)

	fanController, err := fancontroller.New(ctx, opts.FanControllerConfig, fancontroller.Opts{
		Pin:       devices.Pin,
		Regulator: devices.Regulator,
		Thermal:   devices.Thermal,
		Scheduler: queue,
		Bus:       bus,
	})
	if err != nil {
		subscriber.Unsubscribe()
		if closeErr := devices.Close(); closeErr != nil {
			log.FromContext(ctx).Error("Failed to release hardware", zap.Error(closeErr))
		}
		return nil, err
	}

	return &fanAgentImpl{
		opts:          opts,
		defaultMode:   mode,
		devices:       devices,
		queue:         queue,
		bus:           bus,
		subscriber:    subscriber,
		fanController: fanController,
		state:         NewFanState(),
		publisher:     publisher,
	}, nil
}

func (a *fanAgentImpl) Run(origCtx context.Context) error {
	group, ctx := errgroup.WithContext(log.Named(origCtx, "agent"))
	defer a.cleanup(origCtx)

	log.FromContext(ctx).Info("Starting fan agent", zap.Stringer("default_mode", a.defaultMode))

	// Run work queue
	group.Go(func() error {
		log.FromContext(ctx).Info("Starting work queue")
		return a.queue.Run(ctx)
	})

	// Forward state events
	group.Go(func() error {
		log.FromContext(ctx).Info("Starting state event forwarder")
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg := <-a.subscriber.C():
				a.handleEvent(ctx, msg)
			}
		}
	})

	// Apply the configured mode. A failure leaves the fan off but keeps the agent reachable.
	if err := a.fanController.SetMode(ctx, int(a.defaultMode)); err != nil {
		log.FromContext(ctx).Error("Failed to apply default mode", zap.Error(err))
	}

	err := group.Wait()
	if errors.Is(err, context.Canceled) {
		return origCtx.Err()
	}
	return err
}

func (a *fanAgentImpl) handleEvent(ctx context.Context, msg any) {
	event, ok := msg.(fancontroller.StateEvent)
	if !ok {
		return
	}
	log.FromContext(ctx).Debug("Handling state event",
		zap.String("mode", event.Mode.String()),
		zap.Bool("fan_on", event.FanOn),
		zap.String("reason", string(event.Reason)),
	)
	a.state.RegisterEvent(event)

	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishState(event); err != nil {
		publishErrorCounter.Inc()
		log.FromContext(ctx).Warn("Failed to publish state", zap.Error(err))
	}
}

// cleanup forces the fan off and releases the hardware. Ignores canceled context!
func (a *fanAgentImpl) cleanup(ctx context.Context) {
	log.FromContext(ctx).Info("Exiting, switching fan off")
	if err := a.fanController.Close(ctx); err != nil {
		log.FromContext(ctx).Error("Failed to release fan controller", zap.Error(err))
	}

	// Forward what the shutdown produced, so the broker sees the fan off
	a.subscriber.Unsubscribe()
	for msg := range a.subscriber.C() {
		a.handleEvent(ctx, msg)
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			log.FromContext(ctx).Error("Failed to close MQTT publisher", zap.Error(err))
		}
	}
}

func (a *fanAgentImpl) GetMode() int {
	return a.fanController.GetMode()
}

// SetMode switches the fan mode
func (a *fanAgentImpl) SetMode(ctx context.Context, mode int) error {
	return a.fanController.SetMode(ctx, mode)
}

func (a *fanAgentImpl) Status() (fancontroller.Status, *fancontroller.StateEvent) {
	status := a.fanController.Status()
	if event, ok := a.state.Last(); ok {
		return status, &event
	}
	return status, nil
}

// WaitForUpdate waits for the next state event
func (a *fanAgentImpl) WaitForUpdate(ctx context.Context) (fancontroller.StateEvent, error) {
	return a.state.WaitForUpdate(ctx)
}
