package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/uptime-industries/gboxfan-agent/internal/mqtt"
	"github.com/uptime-industries/gboxfan-agent/pkg/fancontroller"
	"github.com/uptime-industries/gboxfan-agent/pkg/hal"
	"github.com/uptime-industries/gboxfan-agent/pkg/workqueue"
)

const (
	EnvPrefix         = "GBOXFAN"
	DefaultConfigDir  = "/etc/gboxfan"
	DefaultGrpcListen = "unix:///tmp/gboxfan.sock"
)

// ListenConfig holds the addresses the agent serves on
type ListenConfig struct {
	// Grpc is either unix:///path/to/socket or host:port
	Grpc string `mapstructure:"grpc"`
	// Metrics is the address of the prometheus endpoint, empty disables it
	Metrics string `mapstructure:"metrics"`
}

// FanAgentConfig is the complete agent configuration
type FanAgentConfig struct {
	// DefaultMode is applied when the agent starts (off, on, auto)
	DefaultMode string `mapstructure:"default_mode"`

	Listen ListenConfig `mapstructure:"listen"`

	// FanControllerConfig is the configuration of the fan controller
	FanControllerConfig fancontroller.Config `mapstructure:"fan"`
	HalOpts             hal.Opts             `mapstructure:"hal"`
	WorkQueueOpts       workqueue.Opts       `mapstructure:"workqueue"`
	Mqtt                mqtt.Config          `mapstructure:"mqtt"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_mode", fancontroller.ModeOff.String())
	v.SetDefault("listen.grpc", DefaultGrpcListen)
	v.SetDefault("listen.metrics", ":9666")
	v.SetDefault("fan.poll_interval", fancontroller.DefaultPollInterval)
	v.SetDefault("fan.thermal_domain", 0)
	v.SetDefault("hal.simulated", false)
	v.SetDefault("hal.simulated_temperature", 40)
	v.SetDefault("hal.gpio_backend", string(hal.GpioBackendGpiod))
	v.SetDefault("hal.gpio_chip", "gpiochip0")
	v.SetDefault("hal.ctrl_gpio", 0)
	v.SetDefault("hal.regulator", "vdd_arm")
	v.SetDefault("hal.sysfs_root", "/sys")
	v.SetDefault("workqueue.workers", 1)
	v.SetDefault("workqueue.max_pending", 16)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", mqtt.DefaultClientID)
	v.SetDefault("mqtt.topic_prefix", mqtt.DefaultTopicPrefix)
}

// LoadConfig reads the configuration file (path, or config.yaml in /etc/gboxfan and the working
// directory) and applies GBOXFAN_* environment overrides. A missing default file is not an error.
func LoadConfig(path string) (FanAgentConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// No default, unset means the controller default
	if err := v.BindEnv("fan.trigger_temperature"); err != nil {
		return FanAgentConfig{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return FanAgentConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var config FanAgentConfig
	if err := v.Unmarshal(&config); err != nil {
		return FanAgentConfig{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := fancontroller.ParseMode(config.DefaultMode); err != nil {
		return FanAgentConfig{}, fmt.Errorf("default_mode: %w", err)
	}
	return config, nil
}
