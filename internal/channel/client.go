// Package channel is the duplex WebSocket connection to the scoring
// service. It owns the socket, drives the connection state machine and
// parses inbound score and error payloads.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/junsooki/FocusLink/internal/logger"
)

// ErrInvalidTransition is returned by Open outside Disconnected/Erroring.
var ErrInvalidTransition = errors.New("invalid state transition")

// Default connection constants.
const (
	DefaultDialTimeout    = 10 * time.Second
	DefaultWriteWait      = 10 * time.Second
	DefaultPingInterval   = 25 * time.Second
	DefaultMaxMessageSize = 64 * 1024
)

// Handler callbacks for channel lifecycle and inbound messages. Callbacks
// for one connection attempt are delivered sequentially from a single
// goroutine, in arrival order, and never while the client holds its lock.
type Handler struct {
	OnOpen        func()
	OnScore       func(score int)
	OnServerError func(msg string)
	OnError       func(err error)
	OnClose       func(code int, reason string)
}

// Options tunes the transport. Zero values take the defaults.
type Options struct {
	Header         http.Header
	DialTimeout    time.Duration
	WriteWait      time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	Logger         *slog.Logger
}

func (o *Options) defaults() {
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.WriteWait == 0 {
		o.WriteWait = DefaultWriteWait
	}
	if o.PingInterval == 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.MaxMessageSize == 0 {
		o.MaxMessageSize = DefaultMaxMessageSize
	}
}

// Client is a WebSocket client for the scoring service.
type Client struct {
	handshake []byte
	handler   Handler
	opts      Options
	log       *slog.Logger

	mu         sync.Mutex
	state      State
	conn       *websocket.Conn
	epoch      uint64
	cancelDial context.CancelFunc
	done       chan struct{}
	writeErr   error

	writeMu sync.Mutex
}

// NewClient creates a client that sends handshake as its first message on
// every successful connect.
func NewClient(handshake Handshake, handler Handler, opts Options) (*Client, error) {
	data, err := json.Marshal(handshake)
	if err != nil {
		return nil, fmt.Errorf("marshal handshake: %w", err)
	}
	opts.defaults()
	return &Client{
		handshake: data,
		handler:   handler,
		opts:      opts,
		log:       logger.Component(opts.Logger, "channel"),
	}, nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready reports whether Send would transmit.
func (c *Client) Ready() bool {
	return c.State() == Connected
}

// Open starts a connection attempt to address and returns immediately. The
// outcome is reported through OnOpen or OnError.
func (c *Client) Open(address string) error {
	c.mu.Lock()
	if !c.state.CanOpen() {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: open while %s", ErrInvalidTransition, state)
	}
	c.epoch++
	epoch := c.epoch
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.DialTimeout)
	c.cancelDial = cancel
	c.state = Connecting
	c.writeErr = nil
	c.mu.Unlock()

	c.log.Debug("connecting", "url", address, "attempt", epoch)
	go c.run(ctx, cancel, epoch, address)
	return nil
}

// Send writes one text message. It returns false without queuing when the
// channel is not Connected. A write failure tears the connection down and
// is reported through OnError from the reader goroutine.
func (c *Client) Send(payload []byte) bool {
	c.mu.Lock()
	if c.state != Connected || c.conn == nil {
		c.mu.Unlock()
		return false
	}
	conn := c.conn
	epoch := c.epoch
	c.mu.Unlock()

	if err := c.write(conn, websocket.TextMessage, payload); err != nil {
		c.abort(epoch, conn, fmt.Errorf("write: %w", err))
		return false
	}
	return true
}

// Close shuts the channel down. From Connected it passes through Closing and
// fires OnClose before returning. From Connecting or Erroring it returns to
// Disconnected without a callback. It is a no-op when already Disconnected.
func (c *Client) Close() {
	c.mu.Lock()
	switch c.state {
	case Disconnected, Closing:
		c.mu.Unlock()
		return
	case Connecting:
		c.epoch++
		if c.cancelDial != nil {
			c.cancelDial()
		}
		c.state = Disconnected
		c.mu.Unlock()
		c.log.Debug("connect canceled")
		return
	case Erroring:
		c.epoch++
		c.state = Disconnected
		c.mu.Unlock()
		return
	}

	c.state = Closing
	c.epoch++
	conn := c.detachLocked()
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	conn.Close()

	c.mu.Lock()
	c.state = Disconnected
	c.mu.Unlock()

	c.log.Info("channel closed")
	if c.handler.OnClose != nil {
		c.handler.OnClose(websocket.CloseNormalClosure, "client closed")
	}
}

func (c *Client) run(ctx context.Context, cancel context.CancelFunc, epoch uint64, address string) {
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, address, c.opts.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.fail(epoch, fmt.Errorf("dial %s: %w", address, err))
		return
	}
	conn.SetReadLimit(c.opts.MaxMessageSize)

	c.mu.Lock()
	if c.epoch != epoch || c.state != Connecting {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = Connected
	done := make(chan struct{})
	c.done = done
	c.mu.Unlock()

	if err := c.write(conn, websocket.TextMessage, c.handshake); err != nil {
		c.fail(epoch, fmt.Errorf("handshake: %w", err))
		return
	}
	c.log.Info("channel connected", "url", address)

	if !c.current(epoch) {
		return
	}
	if c.handler.OnOpen != nil {
		c.handler.OnOpen()
	}

	go c.pingLoop(conn, epoch, done)
	c.readLoop(conn, epoch)
}

func (c *Client) readLoop(conn *websocket.Conn, epoch uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
				c.remoteClosed(epoch, ce.Code, ce.Text)
				return
			}
			c.fail(epoch, fmt.Errorf("read: %w", err))
			return
		}
		if !c.current(epoch) {
			return
		}
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	msg := ParseMessage(string(data))
	switch msg.Kind {
	case KindScore:
		if c.handler.OnScore != nil {
			c.handler.OnScore(msg.Score)
		}
	case KindServerError:
		c.log.Warn("server error", "message", msg.Text)
		if c.handler.OnServerError != nil {
			c.handler.OnServerError(msg.Text)
		}
	default:
		c.log.Debug("ignoring payload", "bytes", len(data))
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, epoch uint64, done <-chan struct{}) {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(c.opts.WriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.abort(epoch, conn, fmt.Errorf("ping: %w", err))
				return
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
		return err
	}
	return conn.WriteMessage(messageType, data)
}

// abort closes conn after a write-side failure. The reader goroutine then
// observes the closed socket and reports err through fail, so OnError is
// never invoked from a writer's goroutine.
func (c *Client) abort(epoch uint64, conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.epoch == epoch && c.writeErr == nil {
		c.writeErr = err
	}
	c.mu.Unlock()
	c.log.Warn("write failed", "error", err)
	conn.Close()
}

func (c *Client) fail(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch != epoch || (c.state != Connecting && c.state != Connected) {
		c.mu.Unlock()
		return
	}
	if c.writeErr != nil {
		err = c.writeErr
	}
	c.state = Erroring
	conn := c.detachLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.log.Warn("channel error", "error", err)
	if c.handler.OnError != nil {
		c.handler.OnError(err)
	}
}

func (c *Client) remoteClosed(epoch uint64, code int, reason string) {
	c.mu.Lock()
	if c.epoch != epoch || c.state != Connected {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	conn := c.detachLocked()
	c.mu.Unlock()

	conn.Close()
	c.log.Info("channel closed by server", "code", code, "reason", reason)
	if c.handler.OnClose != nil {
		c.handler.OnClose(code, reason)
	}
}

func (c *Client) detachLocked() *websocket.Conn {
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	return conn
}

func (c *Client) current(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch == epoch
}
