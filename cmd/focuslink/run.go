package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/junsooki/FocusLink/internal/camera"
	"github.com/junsooki/FocusLink/internal/camera/cv"
	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/display"
	"github.com/junsooki/FocusLink/internal/encoder"
	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/media"
	"github.com/junsooki/FocusLink/internal/metrics"
	"github.com/junsooki/FocusLink/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a focus session",
	Long: `Run opens the channel to the scoring service, streams camera frames at
the configured cadence and shows the live focus score until interrupted,
the session ends or reconnect attempts are exhausted.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.Default()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, reg, log)
		defer shutdown(srv)
	}

	address, err := cfg.Address()
	if err != nil {
		return err
	}
	engine, err := session.New(session.Options{
		Config:  cfg,
		Device:  openDevice(cfg.Camera.Device),
		Encoder: encoder.NewDataURL(encoder.NewJPEGEncoder(cfg.Quality, cfg.Camera.Width, cfg.Camera.Height)),
		NewChannel: session.WebSocketChannels(channel.Options{
			Logger: log,
		}),
		Metrics: m,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("FocusLink starting", "url", address, "duration_minutes", cfg.DurationMinutes, "device", cfg.Camera.Device)
	if err := engine.StartSession(ctx, cfg.DurationMinutes); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer engine.StopSession()

	go watch(ctx, stop, engine, cfg.MaxRetries, log)

	var disp display.Display
	if cfg.Headless {
		disp = display.NewLogDisplay(engine, log)
	} else {
		disp = display.NewEbitenDisplay(engine, engine)
	}
	if err := disp.Run(ctx); err != nil {
		return fmt.Errorf("display: %w", err)
	}

	st := engine.Status()
	log.Info("session finished", "state", st.State.String(), "errors", st.ErrorCount, "last_score", st.FocusScore)
	if st.State == channel.Erroring && st.LastError != nil {
		return st.LastError
	}
	return nil
}

func openDevice(spec string) media.Device {
	kind, src := camera.ParseSpec(spec)
	switch kind {
	case camera.KindPattern:
		return &camera.Pattern{}
	case camera.KindBlack:
		return &camera.Pattern{Black: true}
	default:
		return &cv.Device{Source: src}
	}
}

// watch cancels the run once the session can make no further progress.
func watch(ctx context.Context, cancel context.CancelFunc, engine *session.Engine, maxRetries int, log *slog.Logger) {
	updates, unsubscribe := engine.Subscribe()
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			if finished(s, maxRetries) {
				log.Info("session over", "state", s.State.String())
				cancel()
				return
			}
		}
	}
}

func finished(s session.Status, maxRetries int) bool {
	switch s.State {
	case channel.Disconnected:
		return true
	case channel.Erroring:
		return s.ErrorCount > maxRetries || errors.Is(s.LastError, media.ErrAcquisition)
	}
	return false
}

func serveMetrics(addr string, reg *prometheus.Registry, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
