package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ButtonsConfig holds the BCM pin assignment for the front buttons.
// All buttons are active-low with internal pull-ups.
type ButtonsConfig struct {
	UpPin      int `yaml:"up_pin"`
	DownPin    int `yaml:"down_pin"`
	LeftPin    int `yaml:"left_pin"`
	RightPin   int `yaml:"right_pin"`
	SelectPin  int `yaml:"select_pin"`
	OKPin      int `yaml:"ok_pin"`
	ShutterPin int `yaml:"shutter_pin"`
}

// LEDConfig holds the PWM pins for the RGB status LED.
type LEDConfig struct {
	RedPin   int `yaml:"red_pin"`
	GreenPin int `yaml:"green_pin"`
	BluePin  int `yaml:"blue_pin"`
}

// BeeperConfig holds the PWM pin for the piezo buzzer.
type BeeperConfig struct {
	Pin int `yaml:"pin"` // 0 = no buzzer fitted
}

// CameraConfig describes the sensor attachment.
// Type selects a concrete implementation (e.g., "sim").
type CameraConfig struct {
	Type   string `yaml:"type"`   // e.g., "sim"
	Width  int    `yaml:"width"`  // initial capture width
	Height int    `yaml:"height"` // initial capture height
}

// StorageConfig describes the SD card mount.
type StorageConfig struct {
	Root          string `yaml:"root"`            // card mount point, e.g. /sd
	CardDetectPin int    `yaml:"card_detect_pin"` // 0 = poll the mount point instead
}

// DisplayConfig selects the preview presenter.
type DisplayConfig struct {
	Type  string `yaml:"type"`  // "sdl" or "none"
	Scale int    `yaml:"scale"` // integer upscale for the SDL window
}

// DefaultsConfig contains generic loop parameters.
type DefaultsConfig struct {
	DebounceMs         int  `yaml:"debounce_ms"`          // button debounce window
	TickBudgetMs       int  `yaml:"tick_budget_ms"`       // target loop iteration time
	BatteryPollS       int  `yaml:"battery_poll_s"`       // battery sample cadence
	BatteryADCChannel  int  `yaml:"battery_adc_channel"`  // MCP3008 channel
	MountRetries       int  `yaml:"mount_retries"`        // attempts after card insertion
	TimelapseIntervalS int  `yaml:"timelapse_interval_s"` // startup time-lapse interval
	DebugLevel         int  `yaml:"debug_level"`          // debug level 0-4
	MockGPIO           bool `yaml:"mock_gpio"`            // use mock GPIO (dev/test)
}

// Config aggregates all application configuration.
type Config struct {
	Buttons  ButtonsConfig  `yaml:"buttons"`
	LED      LEDConfig      `yaml:"led"`
	Beeper   BeeperConfig   `yaml:"beeper"`
	Camera   CameraConfig   `yaml:"camera"`
	Storage  StorageConfig  `yaml:"storage"`
	Display  DisplayConfig  `yaml:"display"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Camera.Type == "" {
		return nil, fmt.Errorf("camera.type is required")
	}
	if cfg.Storage.Root == "" {
		return nil, fmt.Errorf("storage.root is required")
	}
	if cfg.Camera.Width <= 0 {
		cfg.Camera.Width = 640
	}
	if cfg.Camera.Height <= 0 {
		cfg.Camera.Height = 480
	}
	if cfg.Display.Type == "" {
		cfg.Display.Type = "none"
	}
	if cfg.Display.Scale <= 0 {
		cfg.Display.Scale = 1
	}
	if cfg.Defaults.DebounceMs <= 0 {
		cfg.Defaults.DebounceMs = 20 // fixed default debounce window
	}
	if cfg.Defaults.DebounceMs > 200 {
		return nil, fmt.Errorf("debounce_ms must be <= 200, got %d", cfg.Defaults.DebounceMs)
	}
	if cfg.Defaults.TickBudgetMs <= 0 {
		cfg.Defaults.TickBudgetMs = 33 // ~30 ticks/s
	}
	if cfg.Defaults.BatteryPollS <= 0 {
		cfg.Defaults.BatteryPollS = 10
	}
	if cfg.Defaults.BatteryADCChannel < 0 || cfg.Defaults.BatteryADCChannel > 7 {
		return nil, fmt.Errorf("battery_adc_channel must be 0-7, got %d", cfg.Defaults.BatteryADCChannel)
	}
	if cfg.Defaults.MountRetries <= 0 {
		cfg.Defaults.MountRetries = 3
	}
	if cfg.Defaults.TimelapseIntervalS < 0 {
		return nil, fmt.Errorf("timelapse_interval_s must be positive, got %d", cfg.Defaults.TimelapseIntervalS)
	}
	if cfg.Defaults.TimelapseIntervalS == 0 {
		cfg.Defaults.TimelapseIntervalS = 60
	}

	return &cfg, nil
}

// Debounce returns the button debounce window.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Defaults.DebounceMs) * time.Millisecond
}

// TickBudget returns the target duration of one loop iteration.
func (c *Config) TickBudget() time.Duration {
	return time.Duration(c.Defaults.TickBudgetMs) * time.Millisecond
}

// BatteryPollInterval returns the battery sample cadence.
func (c *Config) BatteryPollInterval() time.Duration {
	return time.Duration(c.Defaults.BatteryPollS) * time.Second
}

// TimelapseInterval returns the startup time-lapse interval.
func (c *Config) TimelapseInterval() time.Duration {
	return time.Duration(c.Defaults.TimelapseIntervalS) * time.Second
}
