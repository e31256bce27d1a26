package hal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fanPinLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Name:      "fan_pin_level",
		Help:      "Level of the fan control pin (1 = fan on)",
	})
	regulatorVoltage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Name:      "regulator_microvolts",
		Help:      "Last sampled power domain voltage in microvolts",
	})
	thermalReadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gboxfan",
		Name:      "thermal_read_errors_total",
		Help:      "Failed voltage to temperature conversions",
	}, []string{"reason"})
)
