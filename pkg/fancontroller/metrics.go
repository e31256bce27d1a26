package fancontroller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modeMetric = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Name:      "mode",
		Help:      "Fan mode (label values are off, on, auto)",
	}, []string{"mode"})
	fanOnMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Name:      "fan_on",
		Help:      "Whether the fan is commanded on",
	})
	temperatureMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gboxfan",
		Name:      "temperature_celsius",
		Help:      "Last valid temperature sampled in auto mode",
	})
	tickCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gboxfan",
		Name:      "ticks_total",
		Help:      "Executed thermal poll ticks",
	})
	invalidReadingCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gboxfan",
		Name:      "invalid_readings_total",
		Help:      "Thermal poll ticks without a valid temperature",
	})
)

func setModeMetric(mode Mode) {
	for _, m := range modes {
		v := 0.0
		if m == mode {
			v = 1
		}
		modeMetric.WithLabelValues(m.String()).Set(v)
	}
}
