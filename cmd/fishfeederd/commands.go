package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/IM-Lab-france/fishfeeder/internal/button"
	"github.com/IM-Lab-france/fishfeeder/internal/config"
	"github.com/IM-Lab-france/fishfeeder/internal/device"
	"github.com/IM-Lab-france/fishfeeder/internal/feeder"
	"github.com/IM-Lab-france/fishfeeder/internal/hal"
	"github.com/IM-Lab-france/fishfeeder/internal/logging"
	"github.com/IM-Lab-france/fishfeeder/internal/mqtt"
	"github.com/IM-Lab-france/fishfeeder/internal/server"
	"github.com/IM-Lab-france/fishfeeder/internal/version"
	"github.com/IM-Lab-france/fishfeeder/internal/wifi"
)

// Daemon flags
var (
	configPath   string
	listenHost   string
	listenPort   int
	logLevel     string
	simulate     bool
	wifiIface    string
	buttonChip   string
	buttonOffset int
	buttonHigh   bool
	pwmChip      int
	pwmChannel   int
	pollInterval time.Duration
)

func init() {
	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.DefaultPath, "Path of the persisted configuration file")
	f.StringVar(&listenHost, "listen", "", "HTTP listen address (empty = all interfaces)")
	f.IntVar(&listenPort, "port", 80, "HTTP listen port")
	f.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); empty = silent")
	f.BoolVar(&simulate, "simulate", false, "Use in-memory button and servo instead of real hardware")
	f.StringVar(&wifiIface, "iface", "wlan0", "WiFi interface managed by NetworkManager")
	f.StringVar(&buttonChip, "button-chip", hal.DefaultButtonChip, "GPIO chip of the feed button")
	f.IntVar(&buttonOffset, "button-offset", hal.DefaultButtonOffset, "GPIO line offset of the feed button")
	f.BoolVar(&buttonHigh, "button-active-high", false, "Button line reads high when pressed")
	f.IntVar(&pwmChip, "pwm-chip", 0, "Sysfs PWM chip of the feed servo")
	f.IntVar(&pwmChannel, "pwm-channel", 0, "Sysfs PWM channel of the feed servo")
	f.DurationVar(&pollInterval, "poll-interval", device.DefaultPollInterval, "Control loop tick period")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}

	logging.Info("Starting fishfeederd",
		zap.String("version", version.Full()),
		zap.String("config", configPath),
	)

	store := config.NewStore(configPath)
	cfg := store.Load()

	suffix := deviceSuffix()
	apSSID := wifi.APSSIDPrefix + suffix

	btn, servo, err := openHardware()
	if err != nil {
		return err
	}
	defer btn.Close()
	defer servo.Close()

	monitor := button.NewMonitor(btn)
	actuator := feeder.NewActuator(servo, cfg.ServoCloseAngleDeg)
	conn := wifi.NewManager(wifi.NewNmcliBackend(wifiIface), apSSID, cfg.WifiSSID, cfg.WifiPass)

	var ctrl *device.Controller
	session := mqtt.NewSession(cfg, "fishfeeder-"+suffix, mqtt.NewPahoClient, func(c string) {
		ctrl.EnqueueCommand(c)
	})

	ctrl = device.New(store, monitor, actuator, conn, session, func() {
		// systemd (Restart=always) brings the daemon back up.
		os.Exit(0)
	})

	srv := server.New(&server.Config{
		Host:     listenHost,
		Port:     listenPort,
		Instance: apSSID,
	}, ctrl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpErr := make(chan error, 1)
	go func() { httpErr <- srv.Start() }()

	loopErr := make(chan error, 1)
	go func() { loopErr <- ctrl.Run(ctx, pollInterval) }()

	select {
	case err := <-httpErr:
		stop()
		<-loopErr
		return err
	case err := <-loopErr:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			logging.Warn("HTTP shutdown failed", zap.Error(serr))
		}
		return err
	}
}

// openHardware opens the button and servo, real or simulated.
func openHardware() (hal.ButtonInput, hal.Servo, error) {
	if simulate {
		logging.Info("Running with simulated hardware")
		return hal.NewMemoryButton(), hal.NewMemoryServo(), nil
	}

	btn, err := hal.OpenButton(buttonChip, buttonOffset, !buttonHigh)
	if err != nil {
		return nil, nil, fmt.Errorf("opening feed button: %w", err)
	}

	servo, err := hal.OpenPWMServo(pwmChip, pwmChannel, config.MinAngleDeg, config.MaxAngleDeg)
	if err != nil {
		btn.Close()
		return nil, nil, fmt.Errorf("opening feed servo: %w", err)
	}

	return btn, servo, nil
}

// deviceSuffix derives a stable per-device identifier for the access point
// SSID and the MQTT client ID.
func deviceSuffix() string {
	if data, err := os.ReadFile("/etc/machine-id"); err == nil {
		id := strings.TrimSpace(string(data))
		if len(id) >= 4 {
			return strings.ToUpper(id[len(id)-4:])
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "0000"
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the built-in default configuration as YAML",
	Long: `Print the compiled-in default configuration in the format of the
persisted configuration file. Useful as a starting point for a hand-written
config.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(config.Defaults())
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}
