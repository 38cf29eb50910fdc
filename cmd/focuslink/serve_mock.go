package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/mockserver"
)

var mockFlags struct {
	addr       string
	path       string
	errorEvery int
	closeAfter int
}

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run a local stand-in for the scoring service",
	Long: `Serve-mock accepts study sessions on the development endpoint and scores
each frame by its brightness. Use it with "focuslink run --device pattern"
to exercise the client without a camera or the real service.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		log := logger.Default()
		mux := http.NewServeMux()
		mux.Handle(mockFlags.path, mockserver.New(mockserver.Options{
			ErrorEvery: mockFlags.errorEvery,
			CloseAfter: mockFlags.closeAfter,
			Logger:     log,
		}))
		srv := &http.Server{Addr: mockFlags.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()

		log.Info("mock scoring service listening", "addr", mockFlags.addr, "path", mockFlags.path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	f := serveMockCmd.Flags()
	f.StringVar(&mockFlags.addr, "addr", "localhost:8000", "Listen address")
	f.StringVar(&mockFlags.path, "path", "/ws/study", "WebSocket path")
	f.IntVar(&mockFlags.errorEvery, "error-every", 0, "Reply with an error notice every N frames")
	f.IntVar(&mockFlags.closeAfter, "close-after", 0, "Close each session after N frames")
	rootCmd.AddCommand(serveMockCmd)
}
