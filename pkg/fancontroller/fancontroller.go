package fancontroller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/uptime-industries/gboxfan-agent/pkg/eventbus"
	"github.com/uptime-industries/gboxfan-agent/pkg/hal"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"github.com/uptime-industries/gboxfan-agent/pkg/util"
	"github.com/uptime-industries/gboxfan-agent/pkg/workqueue"
	"go.uber.org/zap"
)

const (
	// DefaultTriggerTemperature applies when no trigger temperature is configured
	DefaultTriggerTemperature hal.Temperature = 50
	// DefaultPollInterval is the time between two thermal polls in auto mode
	DefaultPollInterval                       = 30 * time.Second

	// StateTopic carries a StateEvent for every decision written to the fan pin
	StateTopic = "fancontroller:state"
)

var (
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSchedulingFailure   = errors.New("scheduling failure")
)

// FanController switches a fan on and off, either on request or driven by temperature
type FanController interface {
	// SetMode switches to the mode with the given code (see Mode)
	SetMode(ctx context.Context, mode int) error
	// GetMode returns the code of the current mode
	GetMode() int
	// Status returns a snapshot of the controller state
	Status() Status
	// Close forces the fan off and releases the pin and sensor handles
	Close(ctx context.Context) error
}

// Config configures the fan controller
type Config struct {
	// TriggerTemperature is the temperature above which the fan runs in auto mode, defaults to 50°C
	TriggerTemperature *int `mapstructure:"trigger_temperature"`
	// PollInterval is the time between two thermal evaluations in auto mode
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// ThermalDomain is the sensor channel the power domain voltage is converted with
	ThermalDomain int `mapstructure:"thermal_domain"`
}

// Opts are the collaborators of the fan controller
type Opts struct {
	// Pin is the fan control pin, owned by the controller
	Pin hal.FanPin
	// Regulator and Thermal produce the temperature; either may be nil
	Regulator hal.Regulator
	Thermal   hal.ThermalSensor
	// Scheduler runs the thermal poll ticks
	Scheduler workqueue.Scheduler
	// Bus receives a StateEvent per pin decision, optional
	Bus eventbus.EventBus
	// Clock timestamps events, defaults to the real clock
	Clock util.Clock
}

// Reason tells what caused a pin decision
type Reason string

const (
	ReasonInit  Reason = "init"
	ReasonMode  Reason = "mode"
	ReasonTick  Reason = "tick"
	ReasonClose Reason = "close"
)

// StateEvent describes a decision written to the fan pin
type StateEvent struct {
	Mode        Mode
	FanOn       bool
	Temperature hal.Temperature
	Reason      Reason
	Time        time.Time
}

// Status is a snapshot of the controller state
type Status struct {
	Mode               Mode
	FanOn              bool
	TriggerTemperature hal.Temperature
	LastTemperature    hal.Temperature
	TickPending        bool
	Ticks              uint64
}

type fanController struct {
	logger    *zap.Logger
	trigger   hal.Temperature
	interval  time.Duration
	domain    int
	pin       hal.FanPin
	regulator hal.Regulator
	thermal   hal.ThermalSensor
	scheduler workqueue.Scheduler
	bus       eventbus.EventBus
	clock     util.Clock

	mu       sync.Mutex
	mode     Mode
	fanOn    bool
	lastTemp hal.Temperature
	ticks    uint64
	closed   bool
	// pending is the next tick; generation identifies it so a cancelled tick that is
	// already executing can tell it is stale
	pending    workqueue.Task
	generation uint64
}

// New creates a fan controller in mode off with the fan pin driven low.
func New(ctx context.Context, config Config, opts Opts) (FanController, error) {
	if opts.Pin == nil {
		return nil, fmt.Errorf("%w: no fan pin", ErrResourceUnavailable)
	}
	if opts.Scheduler == nil {
		return nil, fmt.Errorf("%w: no scheduler", ErrInvalidArgument)
	}

	trigger := DefaultTriggerTemperature
	if config.TriggerTemperature != nil {
		trigger = hal.Temperature(*config.TriggerTemperature)
	}
	interval := config.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	clock := opts.Clock
	if clock == nil {
		clock = util.RealClock{}
	}

	c := &fanController{
		logger:    log.FromContext(ctx).Named("fancontroller"),
		trigger:   trigger,
		interval:  interval,
		domain:    config.ThermalDomain,
		pin:       opts.Pin,
		regulator: opts.Regulator,
		thermal:   opts.Thermal,
		scheduler: opts.Scheduler,
		bus:       opts.Bus,
		clock:     clock,
		mode:      ModeOff,
		lastTemp:  hal.InvalidTemperature,
	}

	if err := c.pin.Set(false); err != nil {
		return nil, fmt.Errorf("%w: fan pin: %w", ErrResourceUnavailable, err)
	}

	c.mu.Lock()
	c.fanOn = false
	fanOnMetric.Set(0)
	setModeMetric(ModeOff)
	c.publishLocked(ReasonInit)
	c.mu.Unlock()

	if opts.Regulator == nil || opts.Thermal == nil {
		c.logger.Warn("no temperature source, auto mode keeps the fan off")
	}
	c.logger.Info("fan controller ready",
		zap.Int("trigger_temperature", int(trigger)),
		zap.Duration("poll_interval", interval),
	)
	return c, nil
}

func (c *fanController) SetMode(ctx context.Context, code int) error {
	mode := Mode(code)
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidArgument, code)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("%w: controller closed", ErrResourceUnavailable)
	}

	prev := c.mode
	err := c.applyModeLocked(mode, ReasonMode)
	log.FromContext(ctx).Info("fan mode changed",
		zap.String("from", prev.String()),
		zap.String("to", c.mode.String()),
		zap.Error(err),
	)
	return err
}

// applyModeLocked always cancels the pending tick first, so re-entering a mode never leaves
// two ticks behind.
func (c *fanController) applyModeLocked(mode Mode, reason Reason) error {
	c.cancelTickLocked()
	c.mode = mode
	defer func() { setModeMetric(c.mode) }()

	switch mode {
	case ModeOff:
		c.setPinLocked(false, reason)
	case ModeOn:
		c.setPinLocked(true, reason)
	case ModeAuto:
		// The first tick decides the pin
		if err := c.scheduleTickLocked(0); err != nil {
			c.mode = ModeOff
			c.setPinLocked(false, reason)
			return fmt.Errorf("%w: %w", ErrSchedulingFailure, err)
		}
	default:
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidArgument, int(mode))
	}
	return nil
}

func (c *fanController) cancelTickLocked() {
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
	c.generation++
}

func (c *fanController) scheduleTickLocked(delay time.Duration) error {
	c.generation++
	gen := c.generation
	task, err := c.scheduler.Schedule(delay, func() {
		c.tick(gen)
	})
	if err != nil {
		c.pending = nil
		return err
	}
	c.pending = task
	return nil
}

func (c *fanController) currentLocked(gen uint64) bool {
	return c.pending != nil && c.generation == gen
}

// tick evaluates the temperature once and schedules the next evaluation. It never looks at
// the mode: leaving auto mode cancels the tick, which bumps the generation.
func (c *fanController) tick(gen uint64) {
	c.mu.Lock()
	current := c.currentLocked(gen)
	c.mu.Unlock()
	if !current {
		return
	}

	temp := c.sample()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Cancelled while sampling
	if !c.currentLocked(gen) {
		c.logger.Debug("dropping cancelled thermal poll")
		return
	}

	c.ticks++
	tickCounter.Inc()
	c.lastTemp = temp
	if temp.Valid() {
		temperatureMetric.Set(float64(temp))
	} else {
		invalidReadingCounter.Inc()
	}

	on := temp.Valid() && temp > c.trigger
	c.logger.Debug("thermal poll",
		zap.Stringer("temperature", temp),
		zap.Int("trigger_temperature", int(c.trigger)),
		zap.Bool("fan_on", on),
	)
	c.setPinLocked(on, ReasonTick)

	if err := c.scheduleTickLocked(c.interval); err != nil {
		c.logger.Error("Failed to reschedule thermal poll, fan keeps its last state", zap.Error(err))
	}
}

// sample reads the power domain and converts it to a temperature. Failures yield an invalid reading.
func (c *fanController) sample() hal.Temperature {
	if c.regulator == nil || c.thermal == nil {
		return hal.InvalidTemperature
	}
	uv, err := c.regulator.Voltage()
	if err != nil {
		c.logger.Warn("Failed to read power domain voltage", zap.Error(err))
		return hal.InvalidTemperature
	}
	return c.thermal.Temperature(c.domain, uv)
}

func (c *fanController) setPinLocked(on bool, reason Reason) {
	if err := c.pin.Set(on); err != nil {
		c.logger.Error("Failed to set fan pin", zap.Bool("on", on), zap.Error(err))
	}
	c.fanOn = on
	if on {
		fanOnMetric.Set(1)
	} else {
		fanOnMetric.Set(0)
	}
	c.publishLocked(reason)
}

func (c *fanController) publishLocked(reason Reason) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(StateTopic, StateEvent{
		Mode:        c.mode,
		FanOn:       c.fanOn,
		Temperature: c.lastTemp,
		Reason:      reason,
		Time:        c.clock.Now(),
	})
}

func (c *fanController) GetMode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.mode)
}

func (c *fanController) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:               c.mode,
		FanOn:              c.fanOn,
		TriggerTemperature: c.trigger,
		LastTemperature:    c.lastTemp,
		TickPending:        c.pending != nil,
		Ticks:              c.ticks,
	}
}

// Close is best-effort: every release is attempted, failures are logged and joined.
func (c *fanController) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	_ = c.applyModeLocked(ModeOff, ReasonClose)
	c.closed = true
	c.mu.Unlock()

	logger := log.FromContext(ctx)
	var errs []error
	if err := c.pin.Close(); err != nil {
		logger.Error("Failed to release fan pin", zap.Error(err))
		errs = append(errs, fmt.Errorf("release fan pin: %w", err))
	}
	if c.regulator != nil {
		if err := c.regulator.Close(); err != nil {
			logger.Error("Failed to release regulator", zap.Error(err))
			errs = append(errs, fmt.Errorf("release regulator: %w", err))
		}
	}
	return errors.Join(errs...)
}
