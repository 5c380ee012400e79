package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"snapcam/internal/debug"
)

// EnvOptions are the startup-only options read from the environment
// (or a .env file). They configure the time-sync collaborator; none of
// them is required. A missing WiFi pair only degrades time-lapse
// timestamp accuracy, never functionality.
type EnvOptions struct {
	WifiSSID     string
	WifiPassword string
	TZ           string
	UTCOffset    *int // seconds east of UTC, nil = resolve from TZ
}

// ConfigFault signals a malformed startup option. The affected feature
// degrades; the process keeps running.
type ConfigFault struct {
	Key string
	Err error
}

func (f *ConfigFault) Error() string {
	return fmt.Sprintf("config: invalid %s: %v", f.Key, f.Err)
}

func (f *ConfigFault) Unwrap() error { return f.Err }

// LoadEnv loads .env if present and reads the recognized options.
// Malformed values are reported as ConfigFaults and skipped.
func LoadEnv() (EnvOptions, []error) {
	if err := godotenv.Load(); err != nil {
		debug.Verbose("No .env file loaded: %v", err)
	}

	opts := EnvOptions{
		WifiSSID:     os.Getenv("WIFI_SSID"),
		WifiPassword: os.Getenv("WIFI_PASSWORD"),
		TZ:           os.Getenv("TZ"),
	}

	var faults []error
	if raw := os.Getenv("UTC_OFFSET"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			faults = append(faults, &ConfigFault{Key: "UTC_OFFSET", Err: err})
		} else {
			opts.UTCOffset = &v
		}
	}
	return opts, faults
}
