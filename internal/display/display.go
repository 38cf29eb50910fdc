package display

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/session"
)

// Display presents session status until ctx is done.
type Display interface {
	Run(ctx context.Context) error
}

// StatusSource streams session snapshots.
type StatusSource interface {
	Subscribe() (<-chan session.Status, func())
}

// FrameSource provides the latest camera frame for the preview.
type FrameSource interface {
	Preview() (*capture.Frame, error)
}

// StatusLine renders a snapshot as one line of text.
func StatusLine(s session.Status) string {
	line := fmt.Sprintf("[%s] Focus: %d%%", s.Indicator, s.FocusScore)
	if s.ErrorCount > 0 {
		line += fmt.Sprintf("  errors: %d", s.ErrorCount)
	}
	if s.LastServerError != "" {
		line += "  server: " + s.LastServerError
	}
	if s.State == channel.Erroring && s.LastError != nil {
		line += "  (" + s.LastError.Error() + ")"
	}
	return line
}

// IndicatorColor maps an indicator label to its status-bar color.
func IndicatorColor(indicator string) color.RGBA {
	switch indicator {
	case channel.Connected.String():
		return color.RGBA{0x2e, 0xcc, 0x71, 0xff}
	case channel.Connecting.String(), channel.Closing.String():
		return color.RGBA{0xf1, 0xc4, 0x0f, 0xff}
	case session.IndicatorError:
		return color.RGBA{0xe7, 0x4c, 0x3c, 0xff}
	default:
		return color.RGBA{0x95, 0xa5, 0xa6, 0xff}
	}
}

// aspectFitTransform returns scale and offsets to fit frame into view with letterboxing.
func aspectFitTransform(viewW, viewH, frameW, frameH float64) (scale, offsetX, offsetY float64) {
	scale = math.Min(viewW/frameW, viewH/frameH)
	offsetX = (viewW - frameW*scale) / 2
	offsetY = (viewH - frameH*scale) / 2
	return
}

// LogDisplay writes a log record for every status change.
type LogDisplay struct {
	status StatusSource
	log    *slog.Logger
}

// NewLogDisplay creates a headless display.
func NewLogDisplay(status StatusSource, log *slog.Logger) *LogDisplay {
	return &LogDisplay{status: status, log: logger.Component(log, "display")}
}

// Run logs snapshots until ctx is done.
func (d *LogDisplay) Run(ctx context.Context) error {
	updates, cancel := d.status.Subscribe()
	defer cancel()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			line := StatusLine(s)
			if line == last {
				continue
			}
			last = line
			d.log.Info(line, "state", s.State.String(), "streaming", s.Streaming, "session", s.SessionID)
		}
	}
}
