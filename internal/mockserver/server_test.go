package mockserver

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/FocusLink/internal/camera"
	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/config"
	"github.com/junsooki/FocusLink/internal/encoder"
	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/session"
)

func uniform(c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score(uniform(color.RGBA{255, 255, 255, 255})))
	assert.Equal(t, 0, Score(uniform(color.RGBA{0, 0, 0, 255})))
	assert.Equal(t, 50, Score(uniform(color.RGBA{128, 128, 128, 255})))
	assert.Equal(t, 0, Score(image.NewRGBA(image.Rectangle{})))
}

func TestRejectsBadHandshake(t *testing.T) {
	srv := httptest.NewServer(New(Options{Logger: logger.Discard()}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"duration":0}`)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), channel.ServerErrorPrefix))
}

func TestUndecodableFrame(t *testing.T) {
	srv := httptest.NewServer(New(Options{Logger: logger.Discard()}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"duration":5}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not a frame")))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "error:undecodable frame", string(data))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newEngine(t *testing.T, srv *httptest.Server) *session.Engine {
	t.Helper()
	cfg := config.Default()
	cfg.TargetAddress = wsURL(srv)
	cfg.Camera = config.CameraConfig{Device: "pattern", Width: 320, Height: 240, FrameRate: 30}
	cfg.CaptureCadence = 20 * time.Millisecond

	e, err := session.New(session.Options{
		Config:     cfg,
		Device:     &camera.Pattern{},
		Encoder:    encoder.NewDataURL(encoder.NewJPEGEncoder(cfg.Quality, 640, 480)),
		NewChannel: session.WebSocketChannels(channel.Options{Logger: logger.Discard()}),
		Logger:     logger.Discard(),
	})
	require.NoError(t, err)
	return e
}

func TestEndToEndSession(t *testing.T) {
	mock := New(Options{Logger: logger.Discard()})
	srv := httptest.NewServer(mock)
	defer srv.Close()

	e := newEngine(t, srv)
	defer e.StopSession()
	require.NoError(t, e.StartSession(context.Background(), 25))

	require.Eventually(t, func() bool {
		st := e.Status()
		return st.State == channel.Connected && st.Streaming && st.FocusScore > 0
	}, 5*time.Second, 10*time.Millisecond)

	require.Len(t, mock.Handshakes(), 1)
	assert.Equal(t, 25, mock.Handshakes()[0].Duration)
	assert.Positive(t, mock.Frames())

	e.StopSession()
	st := e.Status()
	assert.Equal(t, channel.Disconnected, st.State)
	assert.False(t, st.Streaming)
	assert.Zero(t, st.FocusScore)
}

func TestServerCloseEndsSession(t *testing.T) {
	srv := httptest.NewServer(New(Options{CloseAfter: 3, Logger: logger.Discard()}))
	defer srv.Close()

	e := newEngine(t, srv)
	defer e.StopSession()
	require.NoError(t, e.StartSession(context.Background(), 5))

	require.Eventually(t, func() bool {
		st := e.Status()
		return st.State == channel.Disconnected && !st.Streaming
	}, 5*time.Second, 10*time.Millisecond)
	st := e.Status()
	assert.Zero(t, st.ErrorCount)
	assert.Zero(t, st.FocusScore)
}

func TestServerErrorShowsIndicator(t *testing.T) {
	srv := httptest.NewServer(New(Options{ErrorEvery: 1, Logger: logger.Discard()}))
	defer srv.Close()

	e := newEngine(t, srv)
	defer e.StopSession()
	require.NoError(t, e.StartSession(context.Background(), 5))

	require.Eventually(t, func() bool {
		return e.Status().Indicator == session.IndicatorError
	}, 5*time.Second, 10*time.Millisecond)
	st := e.Status()
	assert.Equal(t, channel.Connected, st.State)
	assert.Equal(t, "model unavailable", st.LastServerError)
	assert.Zero(t, st.ErrorCount)
}
