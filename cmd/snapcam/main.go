package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"snapcam/internal/capture"
	"snapcam/internal/config"
	"snapcam/internal/debug"
	"snapcam/internal/display"
	"snapcam/internal/hw/battery"
	"snapcam/internal/hw/beeper"
	"snapcam/internal/hw/buttons"
	"snapcam/internal/hw/gpio"
	"snapcam/internal/hw/led"
	"snapcam/internal/loop"
	"snapcam/internal/mode"
	"snapcam/internal/settings"
	"snapcam/internal/storage"
	"snapcam/internal/timesync"
)

func main() {
	// SDL needs the main OS thread.
	runtime.LockOSThread()

	configPath := flag.String("config", "configs/default.yaml", "path to the YAML configuration")
	mock := flag.Bool("mock", false, "force the mock GPIO driver")
	headless := flag.Bool("headless", false, "run without a display")
	flag.Parse()

	if err := run(*configPath, *mock, *headless); err != nil {
		fmt.Fprintf(os.Stderr, "snapcam: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, mock, headless bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Summary("snapcam starting")

	env, envErrs := config.LoadEnv()
	for _, e := range envErrs {
		debug.Error(e) // degraded: features depending on the key stay off
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	useMock := mock || cfg.Defaults.MockGPIO
	driver, err := gpio.NewDriver(useMock)
	if err != nil {
		return fmt.Errorf("gpio: %w", err)
	}
	defer driver.Close()

	poller := buttons.NewPoller(driver, buttons.Pins{
		Up:      cfg.Buttons.UpPin,
		Down:    cfg.Buttons.DownPin,
		Left:    cfg.Buttons.LeftPin,
		Right:   cfg.Buttons.RightPin,
		Select:  cfg.Buttons.SelectPin,
		OK:      cfg.Buttons.OKPin,
		Shutter: cfg.Buttons.ShutterPin,
	}, cfg.Debounce())

	read, cleanup, err := batteryReader(cfg, useMock)
	if err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	defer cleanup()
	monitor := battery.NewMonitor(read, cfg.BatteryPollInterval())

	var statusLED *led.LED
	if cfg.LED.RedPin > 0 {
		statusLED = led.New(driver, led.Pins{
			Red:   cfg.LED.RedPin,
			Green: cfg.LED.GreenPin,
			Blue:  cfg.LED.BluePin,
		})
		defer statusLED.Off()
	}

	var buzzer *beeper.Beeper
	if cfg.Beeper.Pin > 0 {
		buzzer = beeper.New(driver, cfg.Beeper.Pin)
	}

	store := storage.NewManager(cfg.Storage.Root, cardDetect(cfg, driver))

	camera, err := newCamera(cfg)
	if err != nil {
		return err
	}

	presenter, err := newPresenter(cfg, headless)
	if err != nil {
		return err
	}
	defer presenter.Close()

	prefs := settings.New()
	prefs.SetTimelapseIntervalSeconds(cfg.Defaults.TimelapseIntervalS)

	ctrl := mode.NewController(camera, store, prefs)

	l := loop.New(loop.Deps{
		Config:     cfg,
		Buttons:    poller,
		Battery:    monitor,
		Storage:    store,
		Settings:   prefs,
		Controller: ctrl,
		Display:    presenter,
		Camera:     camera,
		LED:        statusLED,
		Beeper:     buzzer,
		TimeSync:   timesync.Start(env),
	})

	if err := l.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	debug.Summary("snapcam stopped")
	return nil
}

// batteryReader picks the fuel-gauge source: the MCP3008 over SPI on
// hardware, a fixed mid-charge reading when mocked.
func batteryReader(cfg *config.Config, mock bool) (battery.ReadFunc, func(), error) {
	if mock {
		// ~3.95V through the 2:1 divider.
		return func() (uint16, error) { return 39200, nil }, func() {}, nil
	}
	return battery.NewMCP3008Reader(cfg.Defaults.BatteryADCChannel)
}

// cardDetect builds the presence probe: the card-detect GPIO when one
// is configured (switch closes to ground on insertion), a stat of the
// mount point otherwise.
func cardDetect(cfg *config.Config, driver gpio.Driver) storage.DetectFunc {
	if pin := cfg.Storage.CardDetectPin; pin > 0 {
		if err := driver.SetupPin(pin, gpio.InputPullup); err != nil {
			debug.Error(err)
		}
		return func() bool {
			level, err := driver.ReadPin(pin)
			if err != nil {
				return false
			}
			return level == gpio.Low
		}
	}
	root := cfg.Storage.Root
	return func() bool {
		info, err := os.Stat(root)
		return err == nil && info.IsDir()
	}
}

func newCamera(cfg *config.Config) (capture.Service, error) {
	switch cfg.Camera.Type {
	case "sim":
		return capture.NewSimulator(cfg.Camera.Width, cfg.Camera.Height), nil
	default:
		return nil, fmt.Errorf("unknown camera type %q", cfg.Camera.Type)
	}
}

func newPresenter(cfg *config.Config, headless bool) (display.Presenter, error) {
	if headless || cfg.Display.Type == "none" {
		return display.NullPresenter{}, nil
	}
	switch cfg.Display.Type {
	case "sdl":
		return display.NewSDLPresenter(cfg.Camera.Width, cfg.Camera.Height, cfg.Display.Scale)
	default:
		return nil, fmt.Errorf("unknown display type %q", cfg.Display.Type)
	}
}
