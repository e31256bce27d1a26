package hal

import (
	"sync"

	"go.uber.org/zap"
)

// fails if the simulated devices do not implement the hal interfaces
var (
	_ FanPin        = &SimulatedPin{}
	_ Regulator     = &SimulatedRegulator{}
	_ ThermalSensor = &SimulatedThermal{}
)

// SimulatedPin is an in-memory fan pin
type SimulatedPin struct {
	logger *zap.Logger

	mu     sync.Mutex
	on     bool
	writes int
	closed bool
}

func NewSimulatedPin() *SimulatedPin {
	return &SimulatedPin{logger: zap.L().Named("hal").Named("simulated-pin")}
}

func (p *SimulatedPin) Set(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Debug("Set", zap.Bool("on", on))
	p.on = on
	p.writes++
	fanPinLevel.Set(float64(pinValue(on)))
	return nil
}

// On returns the current pin level
func (p *SimulatedPin) On() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on
}

// Writes returns how often the pin was written
func (p *SimulatedPin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

func (p *SimulatedPin) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *SimulatedPin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.on = false
	p.closed = true
	return nil
}

// SimulatedRegulator reports a fixed voltage or a fixed error
type SimulatedRegulator struct {
	mu      sync.Mutex
	voltage Microvolts
	err     error
	closed  bool
}

func NewSimulatedRegulator(voltage Microvolts) *SimulatedRegulator {
	return &SimulatedRegulator{voltage: voltage}
}

func (r *SimulatedRegulator) SetVoltage(voltage Microvolts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.voltage = voltage
	r.err = nil
}

// SetError makes subsequent Voltage calls fail
func (r *SimulatedRegulator) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *SimulatedRegulator) Voltage() (Microvolts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	regulatorVoltage.Set(float64(r.voltage))
	return r.voltage, nil
}

func (r *SimulatedRegulator) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *SimulatedRegulator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SimulatedThermal returns a settable temperature for every powered domain
type SimulatedThermal struct {
	mu          sync.Mutex
	temperature Temperature
}

func NewSimulatedThermal(temperature Temperature) *SimulatedThermal {
	return &SimulatedThermal{temperature: temperature}
}

func (s *SimulatedThermal) SetTemperature(temperature Temperature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temperature = temperature
}

func (s *SimulatedThermal) Temperature(_ int, voltage Microvolts) Temperature {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voltage <= 0 {
		return InvalidTemperature
	}
	return s.temperature
}
