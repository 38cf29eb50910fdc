// Package mockserver is a local stand-in for the focus-scoring service.
package mockserver

import (
	"encoding/json"
	"image"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/decoder"
	"github.com/junsooki/FocusLink/internal/logger"
)

const writeWait = 10 * time.Second

// Options tunes the server's behavior.
type Options struct {
	// ErrorEvery sends an "error:" notice instead of a score on every Nth
	// frame. Zero disables it.
	ErrorEvery int
	// CloseAfter closes the session normally after N frames. Zero keeps it
	// open until the client leaves.
	CloseAfter int
	Logger     *slog.Logger
}

// Server implements http.Handler.
type Server struct {
	opts     Options
	log      *slog.Logger
	upgrader websocket.Upgrader
	decoder  decoder.Decoder

	frames   atomic.Int64
	sessions atomic.Int64

	mu         sync.Mutex
	handshakes []channel.Handshake
}

// New creates a server.
func New(opts Options) *Server {
	return &Server{
		opts: opts,
		log:  logger.Component(opts.Logger, "mockserver"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		decoder: decoder.NewDataURLDecoder(),
	}
}

// Frames returns the number of frames scored so far.
func (s *Server) Frames() int64 { return s.frames.Load() }

// Sessions returns the number of sessions that completed the handshake.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

// Handshakes returns every handshake received, in order.
func (s *Server) Handshakes() []channel.Handshake {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]channel.Handshake(nil), s.handshakes...)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var hs channel.Handshake
	if err := json.Unmarshal(data, &hs); err != nil || hs.Duration <= 0 {
		s.reply(conn, channel.ServerErrorPrefix+"invalid handshake")
		return
	}
	s.mu.Lock()
	s.handshakes = append(s.handshakes, hs)
	s.mu.Unlock()
	s.sessions.Add(1)
	s.log.Info("session opened", "remote", r.RemoteAddr, "duration", hs.Duration)

	var n int
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Info("session ended", "frames", n, "error", err)
			return
		}
		n++
		s.frames.Add(1)

		if s.opts.ErrorEvery > 0 && n%s.opts.ErrorEvery == 0 {
			s.reply(conn, channel.ServerErrorPrefix+"model unavailable")
		} else if img, err := s.decoder.Decode(data); err != nil {
			s.reply(conn, channel.ServerErrorPrefix+"undecodable frame")
		} else {
			s.reply(conn, strconv.Itoa(Score(img)))
		}

		if s.opts.CloseAfter > 0 && n >= s.opts.CloseAfter {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session complete")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return
		}
	}
}

func (s *Server) reply(conn *websocket.Conn, text string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		s.log.Debug("reply failed", "error", err)
	}
}

// Score maps the mean luma of img onto 0-100.
func Score(img *image.RGBA) int {
	b := img.Bounds()
	if b.Empty() {
		return 0
	}
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			sum += 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		}
	}
	mean := sum / float64(b.Dx()*b.Dy())
	return int(math.Round(mean / 255 * channel.MaxScore))
}
