package display

import (
	"context"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"github.com/junsooki/FocusLink/internal/session"
)

const (
	windowW = 800
	windowH = 600
	barH    = 28
)

// EbitenDisplay renders the camera preview under a status bar.
type EbitenDisplay struct {
	status StatusSource
	frames FrameSource

	mu          sync.Mutex
	current     session.Status
	done        bool
	ebitenImage *ebiten.Image
}

// NewEbitenDisplay creates an Ebitengine-based display.
func NewEbitenDisplay(status StatusSource, frames FrameSource) *EbitenDisplay {
	return &EbitenDisplay{status: status, frames: frames}
}

// Run starts the Ebitengine game loop. Must be called from the main goroutine.
// It returns once ctx is done or the window is closed.
func (d *EbitenDisplay) Run(ctx context.Context) error {
	updates, cancel := d.status.Subscribe()
	defer cancel()

	go func() {
		for {
			select {
			case <-ctx.Done():
				d.mu.Lock()
				d.done = true
				d.mu.Unlock()
				return
			case s, ok := <-updates:
				if !ok {
					return
				}
				d.mu.Lock()
				d.current = s
				d.mu.Unlock()
			}
		}
	}()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("FocusLink")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(30)
	return ebiten.RunGame(d)
}

// --- ebiten.Game interface ---

func (d *EbitenDisplay) Update() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return ebiten.Termination
	}
	return nil
}

func (d *EbitenDisplay) Draw(screen *ebiten.Image) {
	d.mu.Lock()
	status := d.current
	d.mu.Unlock()

	sw, sh := screen.Bounds().Dx(), screen.Bounds().Dy()
	if frame, err := d.frames.Preview(); err == nil && frame != nil {
		d.drawFrame(screen, frame.Image, sw, sh-barH)
	}

	bar := screen.SubImage(image.Rect(0, sh-barH, sw, sh)).(*ebiten.Image)
	bar.Fill(IndicatorColor(status.Indicator))
	ebitenutil.DebugPrintAt(screen, StatusLine(status), 8, sh-barH+6)
}

func (d *EbitenDisplay) drawFrame(screen *ebiten.Image, frame *image.RGBA, viewW, viewH int) {
	fb := frame.Bounds()
	if d.ebitenImage == nil ||
		d.ebitenImage.Bounds().Dx() != fb.Dx() ||
		d.ebitenImage.Bounds().Dy() != fb.Dy() {
		d.ebitenImage = ebiten.NewImage(fb.Dx(), fb.Dy())
	}
	d.ebitenImage.WritePixels(frame.Pix)

	scale, offsetX, offsetY := aspectFitTransform(float64(viewW), float64(viewH), float64(fb.Dx()), float64(fb.Dy()))
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(d.ebitenImage, op)
}

func (d *EbitenDisplay) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
