// Package hal abstracts the hardware the fan controller talks to: the fan control pin, the
// power-domain regulator and the thermal sensor that maps a voltage sample to a temperature.
package hal

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/uptime-industries/gboxfan-agent/pkg/log"
	"go.uber.org/zap"
)

const consumerName = "gboxfan"

// Microvolts is a regulator output voltage
type Microvolts int

// Temperature in degrees Celsius
type Temperature int

// InvalidTemperature is returned when no temperature could be derived from a voltage sample.
const InvalidTemperature Temperature = math.MinInt32

// Valid reports whether t is a real reading
func (t Temperature) Valid() bool {
	return t != InvalidTemperature
}

func (t Temperature) String() string {
	if !t.Valid() {
		return "invalid"
	}
	return fmt.Sprintf("%d°C", int(t))
}

// FanPin is a binary output driving the fan
type FanPin interface {
	// Set drives the pin high (fan on) or low (fan off)
	Set(on bool) error
	// Close releases the line
	Close() error
}

// Regulator is the power domain the thermal sensor samples against
type Regulator interface {
	Voltage() (Microvolts, error)
	Close() error
}

// ThermalSensor converts a voltage sample of a power domain to a temperature.
// It returns InvalidTemperature if the conversion fails.
type ThermalSensor interface {
	Temperature(domain int, voltage Microvolts) Temperature
}

type GpioBackend string

const (
	GpioBackendGpiod    GpioBackend = "gpiod"
	GpioBackendGpiocdev GpioBackend = "gpiocdev"
)

var ErrPinUnavailable = errors.New("fan control pin unavailable")

// Opts configures which devices Open acquires
type Opts struct {
	// Simulated replaces all devices with in-memory implementations
	Simulated bool `mapstructure:"simulated"`
	// SimulatedTemperature is the initial reading of the simulated thermal sensor
	SimulatedTemperature int `mapstructure:"simulated_temperature"`
	// GpioBackend selects the GPIO character device library
	GpioBackend GpioBackend `mapstructure:"gpio_backend"`
	// GpioChip is the GPIO chip holding the control line, e.g. gpiochip0
	GpioChip string `mapstructure:"gpio_chip"`
	// CtrlGpio is the line offset of the fan control pin
	CtrlGpio int `mapstructure:"ctrl_gpio"`
	// Regulator is the name of the power domain regulator, e.g. vdd_arm
	Regulator string `mapstructure:"regulator"`
	// SysfsRoot is the mount point of sysfs
	SysfsRoot string `mapstructure:"sysfs_root"`
}

// Devices bundles the handles acquired by Open
type Devices struct {
	Pin       FanPin
	Regulator Regulator // nil if the power domain is unavailable
	Thermal   ThermalSensor
}

// Close releases all handles
func (d *Devices) Close() error {
	var errs []error
	if d.Pin != nil {
		errs = append(errs, d.Pin.Close())
	}
	if d.Regulator != nil {
		errs = append(errs, d.Regulator.Close())
	}
	return errors.Join(errs...)
}

var openPinFn = openPin

// Open acquires the fan pin (driven low) and the sensor handles. A missing pin is fatal,
// a missing regulator is not: the controller then only ever sees invalid readings.
func Open(ctx context.Context, opts Opts) (*Devices, error) {
	logger := log.FromContext(ctx).Named("hal")

	if opts.Simulated {
		logger.Warn("Using simulated hal")
		regulator := NewSimulatedRegulator(1100000)
		thermal := NewSimulatedThermal(Temperature(opts.SimulatedTemperature))
		return &Devices{
			Pin:       NewSimulatedPin(),
			Regulator: regulator,
			Thermal:   thermal,
		}, nil
	}

	if opts.SysfsRoot == "" {
		opts.SysfsRoot = "/sys"
	}
	if opts.GpioBackend == "" {
		opts.GpioBackend = GpioBackendGpiod
	}

	pin, err := openPinFn(opts.GpioBackend, opts.GpioChip, opts.CtrlGpio)
	if err != nil {
		return nil, fmt.Errorf("%w: %s line %d: %w", ErrPinUnavailable, opts.GpioChip, opts.CtrlGpio, err)
	}
	logger.Info("acquired fan control pin",
		zap.String("backend", string(opts.GpioBackend)),
		zap.String("chip", opts.GpioChip),
		zap.Int("line", opts.CtrlGpio),
	)

	devices := &Devices{
		Pin:     pin,
		Thermal: NewSysfsThermal(opts.SysfsRoot),
	}

	regulator, err := OpenSysfsRegulator(opts.SysfsRoot, opts.Regulator)
	if err != nil {
		logger.Warn("power domain unavailable, auto mode will keep the fan off",
			zap.String("regulator", opts.Regulator), zap.Error(err))
	} else {
		devices.Regulator = regulator
	}

	return devices, nil
}

func openPin(backend GpioBackend, chip string, offset int) (FanPin, error) {
	if offset < 0 {
		return nil, fmt.Errorf("invalid line offset %d", offset)
	}
	switch backend {
	case GpioBackendGpiod:
		return openGpiodPin(chip, offset)
	case GpioBackendGpiocdev:
		return openGpiocdevPin(chip, offset)
	default:
		return nil, fmt.Errorf("unsupported gpio backend %q", backend)
	}
}

func pinValue(on bool) int {
	if on {
		return 1
	}
	return 0
}
