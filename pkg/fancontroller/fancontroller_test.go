package fancontroller_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptime-industries/gboxfan-agent/pkg/eventbus"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"github.com/uptime-industries/gboxfan-agent/pkg/hal"
	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"github.com/uptime-industries/gboxfan-agent/pkg/workqueue"
	"go.uber.org/zap"
)

// fakeScheduler records scheduled work; tests fire it explicitly.
type fakeScheduler struct {
	mu    sync.Mutex
	tasks []*fakeTask
	err   error
}

type fakeTask struct {
	s         *fakeScheduler
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (s *fakeScheduler) Schedule(delay time.Duration, fn func()) (workqueue.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	task := &fakeTask{s: s, delay: delay, fn: fn}
	s.tasks = append(s.tasks, task)
	return task, nil
}

func (t *fakeTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

func (s *fakeScheduler) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeScheduler) pending() []*fakeTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*fakeTask
	for _, task := range s.tasks {
		if !task.cancelled && !task.fired {
			out = append(out, task)
		}
	}
	return out
}

// fire runs the single pending task and returns the delay it was scheduled with.
func (s *fakeScheduler) fire(t *testing.T) time.Duration {
	t.Helper()
	pending := s.pending()
	require.Len(t, pending, 1, "expected exactly one pending tick")
	task := pending[0]
	s.mu.Lock()
	task.fired = true
	s.mu.Unlock()
	task.fn()
	return task.delay
}

type fixture struct {
	ctx        context.Context
	pin        *hal.SimulatedPin
	regulator  *hal.SimulatedRegulator
	thermal    *hal.SimulatedThermal
	scheduler  *fakeScheduler
	bus        eventbus.EventBus
	controller fancontroller.FanController
}

func newFixture(t *testing.T, config fancontroller.Config) *fixture {
	t.Helper()
	f := &fixture{
		ctx:       log.IntoContext(context.Background(), zap.NewNop()),
		pin:       hal.NewSimulatedPin(),
		regulator: hal.NewSimulatedRegulator(1100000),
		thermal:   hal.NewSimulatedThermal(20),
		scheduler: &fakeScheduler{},
		bus:       eventbus.New(),
	}
	controller, err := fancontroller.New(f.ctx, config, fancontroller.Opts{
		Pin:       f.pin,
		Regulator: f.regulator,
		Thermal:   f.thermal,
		Scheduler: f.scheduler,
		Bus:       f.bus,
	})
	require.NoError(t, err)
	f.controller = controller
	return f
}

func intPtr(v int) *int {
	return &v
}

func TestNew_ScenarioA(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})

	status := f.controller.Status()
	assert.Equal(t, fancontroller.ModeOff, status.Mode)
	assert.Equal(t, int(fancontroller.ModeOff), f.controller.GetMode())
	assert.Equal(t, hal.Temperature(50), status.TriggerTemperature)
	assert.False(t, status.FanOn)
	assert.False(t, status.TickPending)
	assert.False(t, f.pin.On())
	assert.Equal(t, 1, f.pin.Writes(), "pin is forced off during init")
	assert.Empty(t, f.scheduler.pending())
}

func TestNew_ConfiguredTrigger(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{TriggerTemperature: intPtr(65)})
	assert.Equal(t, hal.Temperature(65), f.controller.Status().TriggerTemperature)
}

func TestNew_MissingCollaborators(t *testing.T) {
	t.Parallel()

	ctx := log.IntoContext(context.Background(), zap.NewNop())

	_, err := fancontroller.New(ctx, fancontroller.Config{}, fancontroller.Opts{Scheduler: &fakeScheduler{}})
	assert.ErrorIs(t, err, fancontroller.ErrResourceUnavailable)

	_, err = fancontroller.New(ctx, fancontroller.Config{}, fancontroller.Opts{Pin: hal.NewSimulatedPin()})
	assert.ErrorIs(t, err, fancontroller.ErrInvalidArgument)
}

func TestNew_PinFailure(t *testing.T) {
	t.Parallel()

	pin := &hal.FanPinMock{}
	pin.On("Set", false).Return(errors.New("line released"))

	_, err := fancontroller.New(log.IntoContext(context.Background(), zap.NewNop()), fancontroller.Config{}, fancontroller.Opts{
		Pin:       pin,
		Scheduler: &fakeScheduler{},
	})
	assert.ErrorIs(t, err, fancontroller.ErrResourceUnavailable)
	pin.AssertExpectations(t)
}

func TestSetMode_On_ScenarioB(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)))
	assert.True(t, f.pin.On())
	assert.Equal(t, int(fancontroller.ModeOn), f.controller.GetMode())
	assert.Empty(t, f.scheduler.pending())
}

func TestSetMode_Auto_ScenarioC(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{TriggerTemperature: intPtr(50)})

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	assert.False(t, f.pin.On(), "entering auto does not touch the pin")

	// First tick fires immediately and reads 55°C
	f.thermal.SetTemperature(55)
	assert.Equal(t, time.Duration(0), f.scheduler.fire(t))
	assert.True(t, f.pin.On())
	assert.Equal(t, hal.Temperature(55), f.controller.Status().LastTemperature)

	// Second tick is 30s later and reads an invalid temperature
	f.thermal.SetTemperature(hal.InvalidTemperature)
	assert.Equal(t, 30*time.Second, f.scheduler.fire(t))
	assert.False(t, f.pin.On())

	// The loop keeps going
	assert.Len(t, f.scheduler.pending(), 1)
	status := f.controller.Status()
	assert.Equal(t, uint64(2), status.Ticks)
	assert.True(t, status.TickPending)
	assert.Equal(t, fancontroller.ModeAuto, status.Mode)
}

func TestSetMode_AutoThenOff_ScenarioD(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	require.Len(t, f.scheduler.pending(), 1)
	first := f.scheduler.pending()[0]

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOff)))
	assert.True(t, first.cancelled)
	assert.Empty(t, f.scheduler.pending())
	assert.False(t, f.pin.On())
	assert.False(t, f.controller.Status().TickPending)
}

func TestTick_CancelledWhileInFlight(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	f.thermal.SetTemperature(80)

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	inflight := f.scheduler.pending()[0]

	// The tick already started when the mode changed; cancelling it fails but the tick is stale
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOff)))
	writes := f.pin.Writes()
	inflight.fn()

	assert.False(t, f.pin.On(), "stale tick must not switch the fan on")
	assert.Equal(t, writes, f.pin.Writes())
	assert.Empty(t, f.scheduler.pending(), "stale tick must not reschedule")
	assert.Equal(t, uint64(0), f.controller.Status().Ticks)
}

func TestTick_TriggerBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		temperature hal.Temperature
		want        bool
	}{
		{"below", 20, false},
		{"equal", 50, false},
		{"above", 51, true},
		{"invalid", hal.InvalidTemperature, false},
		{"negative", -5, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, fancontroller.Config{})
			f.thermal.SetTemperature(tt.temperature)
			require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
			f.scheduler.fire(t)
			assert.Equal(t, tt.want, f.pin.On())
		})
	}
}

func TestTick_RegulatorFailureKeepsLoopRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	f.thermal.SetTemperature(70)

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	f.scheduler.fire(t)
	require.True(t, f.pin.On())

	f.regulator.SetError(errors.New("regulator not ready"))
	f.scheduler.fire(t)
	assert.False(t, f.pin.On(), "fan defaults off without a reading")
	assert.Len(t, f.scheduler.pending(), 1)

	f.regulator.SetVoltage(1100000)
	f.scheduler.fire(t)
	assert.True(t, f.pin.On())
}

func TestTick_UsesThermalDomain(t *testing.T) {
	t.Parallel()

	pin := hal.NewSimulatedPin()
	regulator := &hal.RegulatorMock{}
	regulator.On("Voltage").Return(hal.Microvolts(1000000), nil)
	thermal := &hal.ThermalSensorMock{}
	thermal.On("Temperature", 2, hal.Microvolts(1000000)).Return(hal.Temperature(60))
	scheduler := &fakeScheduler{}

	ctx := log.IntoContext(context.Background(), zap.NewNop())
	controller, err := fancontroller.New(ctx, fancontroller.Config{ThermalDomain: 2}, fancontroller.Opts{
		Pin:       pin,
		Regulator: regulator,
		Thermal:   thermal,
		Scheduler: scheduler,
	})
	require.NoError(t, err)

	require.NoError(t, controller.SetMode(ctx, int(fancontroller.ModeAuto)))
	scheduler.fire(t)
	assert.True(t, pin.On())
	regulator.AssertExpectations(t)
	thermal.AssertExpectations(t)
}

func TestTick_NoTemperatureSource(t *testing.T) {
	t.Parallel()

	pin := hal.NewSimulatedPin()
	scheduler := &fakeScheduler{}
	ctx := log.IntoContext(context.Background(), zap.NewNop())
	controller, err := fancontroller.New(ctx, fancontroller.Config{}, fancontroller.Opts{
		Pin:       pin,
		Thermal:   hal.NewSimulatedThermal(90),
		Scheduler: scheduler,
	})
	require.NoError(t, err)

	require.NoError(t, controller.SetMode(ctx, int(fancontroller.ModeOn)))
	require.NoError(t, controller.SetMode(ctx, int(fancontroller.ModeAuto)))
	scheduler.fire(t)
	assert.False(t, pin.On())
	assert.False(t, controller.Status().LastTemperature.Valid())
}

func TestSetMode_OffIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)))

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOff)))
	once := f.controller.Status()
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOff)))
	twice := f.controller.Status()

	assert.Equal(t, once, twice)
	assert.False(t, f.pin.On())
	assert.Empty(t, f.scheduler.pending())
}

func TestSetMode_ReenterAutoDoesNotLeakTicks(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	for i := 0; i < 5; i++ {
		require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
		assert.Len(t, f.scheduler.pending(), 1)
	}
	// Only the latest tick is live
	f.thermal.SetTemperature(70)
	for _, task := range f.scheduler.tasks[:4] {
		task.fn()
	}
	assert.False(t, f.pin.On())
	f.scheduler.fire(t)
	assert.True(t, f.pin.On())
}

func TestSetMode_InvalidArgument(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)))

	for _, code := range []int{-1, 3, 42} {
		err := f.controller.SetMode(f.ctx, code)
		assert.ErrorIs(t, err, fancontroller.ErrInvalidArgument)
	}
	assert.Equal(t, int(fancontroller.ModeOn), f.controller.GetMode())
	assert.True(t, f.pin.On())
}

func TestSetMode_SchedulingFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)))

	f.scheduler.setErr(workqueue.ErrQueueFull)
	err := f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto))
	assert.ErrorIs(t, err, fancontroller.ErrSchedulingFailure)
	assert.ErrorIs(t, err, workqueue.ErrQueueFull)

	assert.Equal(t, int(fancontroller.ModeOff), f.controller.GetMode())
	assert.False(t, f.pin.On())
	assert.False(t, f.controller.Status().TickPending)
}

func TestTick_RescheduleFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	f.thermal.SetTemperature(70)
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))

	f.scheduler.setErr(workqueue.ErrQueueClosed)
	f.scheduler.fire(t)

	status := f.controller.Status()
	assert.True(t, f.pin.On())
	assert.False(t, status.TickPending)
	assert.Equal(t, fancontroller.ModeAuto, status.Mode)
}

func TestSetMode_AtMostOnePendingTick(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		switch rng.Intn(5) {
		case 0, 1, 2:
			mode := fancontroller.Mode(rng.Intn(3))
			require.NoError(t, f.controller.SetMode(f.ctx, int(mode)))
			switch mode {
			case fancontroller.ModeOff:
				assert.False(t, f.pin.On())
			case fancontroller.ModeOn:
				assert.True(t, f.pin.On())
			}
		case 3:
			f.thermal.SetTemperature(hal.Temperature(rng.Intn(100)))
		case 4:
			if len(f.scheduler.pending()) == 1 {
				f.scheduler.fire(t)
			}
		}
		assert.LessOrEqual(t, len(f.scheduler.pending()), 1)
	}
}

func TestStateEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	sub := f.bus.Subscribe(fancontroller.StateTopic, 8, eventbus.MatchAll)
	defer sub.Unsubscribe()

	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)))
	f.thermal.SetTemperature(60)
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	f.scheduler.fire(t)

	ev := (<-sub.C()).(fancontroller.StateEvent)
	assert.Equal(t, fancontroller.ModeOn, ev.Mode)
	assert.True(t, ev.FanOn)
	assert.Equal(t, fancontroller.ReasonMode, ev.Reason)

	ev = (<-sub.C()).(fancontroller.StateEvent)
	assert.Equal(t, fancontroller.ModeAuto, ev.Mode)
	assert.True(t, ev.FanOn)
	assert.Equal(t, hal.Temperature(60), ev.Temperature)
	assert.Equal(t, fancontroller.ReasonTick, ev.Reason)
	assert.False(t, ev.Time.IsZero())
}

func TestClose(t *testing.T) {
	t.Parallel()

	f := newFixture(t, fancontroller.Config{})
	f.thermal.SetTemperature(70)
	require.NoError(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeAuto)))
	f.scheduler.fire(t)
	require.True(t, f.pin.On())

	require.NoError(t, f.controller.Close(f.ctx))
	assert.False(t, f.pin.On())
	assert.True(t, f.pin.Closed())
	assert.True(t, f.regulator.Closed())
	assert.Empty(t, f.scheduler.pending())
	assert.Equal(t, int(fancontroller.ModeOff), f.controller.GetMode())

	assert.ErrorIs(t, f.controller.SetMode(f.ctx, int(fancontroller.ModeOn)), fancontroller.ErrResourceUnavailable)
	assert.NoError(t, f.controller.Close(f.ctx), "second close is a no-op")
}

func TestClose_BestEffort(t *testing.T) {
	t.Parallel()

	pin := &hal.FanPinMock{}
	pin.On("Set", false).Return(nil)
	pin.On("Close").Return(errors.New("line busy"))
	regulator := &hal.RegulatorMock{}
	regulator.On("Close").Return(nil)

	ctx := log.IntoContext(context.Background(), zap.NewNop())
	controller, err := fancontroller.New(ctx, fancontroller.Config{}, fancontroller.Opts{
		Pin:       pin,
		Regulator: regulator,
		Thermal:   hal.NewSimulatedThermal(20),
		Scheduler: &fakeScheduler{},
	})
	require.NoError(t, err)

	err = controller.Close(ctx)
	assert.ErrorContains(t, err, "line busy")
	// the regulator is still released
	regulator.AssertCalled(t, "Close")
	pin.AssertExpectations(t)
}

func TestController_WithWorkQueue(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(log.IntoContext(context.Background(), zap.NewNop()))
	defer cancel()

	queue := workqueue.New(workqueue.Opts{Workers: 2})
	go func() {
		_ = queue.Run(ctx)
	}()

	pin := hal.NewSimulatedPin()
	thermal := hal.NewSimulatedThermal(70)
	controller, err := fancontroller.New(ctx, fancontroller.Config{PollInterval: 10 * time.Millisecond}, fancontroller.Opts{
		Pin:       pin,
		Regulator: hal.NewSimulatedRegulator(1100000),
		Thermal:   thermal,
		Scheduler: queue,
	})
	require.NoError(t, err)

	require.NoError(t, controller.SetMode(ctx, int(fancontroller.ModeAuto)))
	assert.Eventually(t, pin.On, time.Second, 5*time.Millisecond)

	thermal.SetTemperature(30)
	assert.Eventually(t, func() bool { return !pin.On() }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return controller.Status().Ticks >= 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, controller.SetMode(ctx, int(fancontroller.ModeOn)))
	ticks := controller.Status().Ticks
	time.Sleep(50 * time.Millisecond)
	assert.True(t, pin.On(), "manual mode is not overridden by stale ticks")
	assert.Equal(t, ticks, controller.Status().Ticks)
	assert.Equal(t, 0, queue.Pending())
}
