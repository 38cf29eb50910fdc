package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/junsooki/FocusLink/internal/config"
	"github.com/junsooki/FocusLink/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "focuslink",
	Short:         "Stream camera frames to a focus-scoring service and show the live score",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("verbose") {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error getting verbose flag: %v\n", err)
				return
			}
			logger.SetVerbose(verbose)
		}
	},
}

// sessionFlags are shared by every command that resolves a config.
type sessionFlags struct {
	configPath  string
	env         string
	url         string
	duration    int
	device      string
	width       int
	height      int
	fps         int
	cadence     string
	quality     int
	maxRetries  int
	autoStop    bool
	metricsAddr string
	headless    bool
}

var flags sessionFlags

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.StringVarP(&flags.configPath, "config", "c", "", "YAML config file")
	pf.StringVar(&flags.env, "env", "", "Environment (development, production); defaults to $"+config.EnvVar)
	pf.StringVar(&flags.url, "url", "", "Scoring service WebSocket URL (overrides --env)")
	pf.IntVarP(&flags.duration, "duration", "d", 0, "Session length in minutes")
	pf.StringVar(&flags.device, "device", "", `Camera: OpenCV index, stream URL, "pattern" or "black"`)
	pf.IntVar(&flags.width, "width", 0, "Ideal capture width")
	pf.IntVar(&flags.height, "height", 0, "Ideal capture height")
	pf.IntVar(&flags.fps, "fps", 0, "Ideal capture frame rate")
	pf.StringVar(&flags.cadence, "cadence", "", "Send interval, e.g. 100ms (defaults to 1/fps)")
	pf.IntVar(&flags.quality, "quality", 0, "JPEG quality 1-100")
	pf.IntVar(&flags.maxRetries, "max-retries", 0, "Reconnect attempts after transport errors")
	pf.BoolVar(&flags.autoStop, "auto-stop", false, "Stop the session once the duration elapses")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.BoolVar(&flags.headless, "headless", false, "Log status instead of opening a window")
}

// resolveConfig loads the config file and applies every flag the user set.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	f := cmd.Flags()
	if f.Changed("env") {
		cfg.Environment = flags.env
	}
	if f.Changed("url") {
		cfg.TargetAddress = flags.url
	}
	if f.Changed("duration") {
		cfg.DurationMinutes = flags.duration
	}
	if f.Changed("device") {
		cfg.Camera.Device = flags.device
	}
	if f.Changed("width") {
		cfg.Camera.Width = flags.width
	}
	if f.Changed("height") {
		cfg.Camera.Height = flags.height
	}
	if f.Changed("fps") {
		cfg.Camera.FrameRate = flags.fps
	}
	if f.Changed("cadence") {
		d, err := time.ParseDuration(flags.cadence)
		if err != nil {
			return nil, fmt.Errorf("%w: cadence: %v", config.ErrInvalidConfig, err)
		}
		cfg.CaptureCadence = d
	}
	if f.Changed("quality") {
		cfg.Quality = flags.quality
	}
	if f.Changed("max-retries") {
		cfg.MaxRetries = flags.maxRetries
	}
	if f.Changed("auto-stop") {
		cfg.AutoStop = flags.autoStop
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if f.Changed("headless") {
		cfg.Headless = flags.headless
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
