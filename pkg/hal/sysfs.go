package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	minPlausibleTemperature Temperature = -40
	maxPlausibleTemperature Temperature = 125
)

func readSysfsInt(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0, fmt.Errorf("%s: empty value", path)
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

type sysfsRegulator struct {
	name string
	path string
}

// OpenSysfsRegulator looks up a regulator by name below <root>/class/regulator.
func OpenSysfsRegulator(root string, name string) (Regulator, error) {
	if name == "" {
		return nil, fmt.Errorf("no regulator name configured")
	}
	dirs, err := filepath.Glob(filepath.Join(root, "class", "regulator", "regulator.*"))
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		raw, err := os.ReadFile(filepath.Join(dir, "name"))
		if err != nil || strings.TrimSpace(string(raw)) != name {
			continue
		}
		path := filepath.Join(dir, "microvolts")
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("regulator %q does not report its voltage: %w", name, err)
		}
		return &sysfsRegulator{name: name, path: path}, nil
	}
	return nil, fmt.Errorf("regulator %q not found", name)
}

func (r *sysfsRegulator) Voltage() (Microvolts, error) {
	v, err := readSysfsInt(r.path)
	if err != nil {
		return 0, fmt.Errorf("read regulator %q: %w", r.name, err)
	}
	regulatorVoltage.Set(float64(v))
	return Microvolts(v), nil
}

func (r *sysfsRegulator) Close() error {
	return nil
}

type sysfsThermal struct {
	root string
}

// NewSysfsThermal reads <root>/class/thermal/thermal_zone<domain>/temp.
func NewSysfsThermal(root string) ThermalSensor {
	return &sysfsThermal{root: root}
}

func (s *sysfsThermal) Temperature(domain int, voltage Microvolts) Temperature {
	// An unpowered domain cannot be sampled
	if voltage <= 0 {
		thermalReadErrors.WithLabelValues("unpowered").Inc()
		return InvalidTemperature
	}

	path := filepath.Join(s.root, "class", "thermal", fmt.Sprintf("thermal_zone%d", domain), "temp")
	v, err := readSysfsInt(path)
	if err != nil {
		thermalReadErrors.WithLabelValues("read").Inc()
		return InvalidTemperature
	}

	// Zones always report millidegrees
	temp := Temperature(v / 1000)
	if temp < minPlausibleTemperature || temp > maxPlausibleTemperature {
		thermalReadErrors.WithLabelValues("range").Inc()
		return InvalidTemperature
	}
	return temp
}
