// Package session orchestrates a focus telemetry session: it opens the
// channel, acquires the camera once connected, drives the frame pipeline and
// reconnects with bounded exponential backoff after transport failures.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/channel"
	"github.com/junsooki/FocusLink/internal/config"
	"github.com/junsooki/FocusLink/internal/encoder"
	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/media"
	"github.com/junsooki/FocusLink/internal/metrics"
	"github.com/junsooki/FocusLink/internal/pipeline"
)

// ErrSessionActive is returned by StartSession while a session is connecting
// or connected.
var ErrSessionActive = errors.New("session already active")

// Options wires the engine's collaborators. Config, Device, Encoder and
// NewChannel are required.
type Options struct {
	Config     *config.Config
	Device     media.Device
	Encoder    encoder.Encoder
	NewChannel ChannelFactory
	Clock      Clock
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// run is one StartSession..StopSession span.
type run struct {
	id      string
	address string
	ch      Channel
	pipe    *pipeline.Pipeline
	log     *slog.Logger
}

// Engine is the session state machine. Every handler runs under mu, so at
// most one mutates the status at a time.
type Engine struct {
	cfg     *config.Config
	encoder encoder.Encoder
	factory ChannelFactory
	clock   Clock
	metrics *metrics.Metrics
	root    *slog.Logger
	log     *slog.Logger
	source  *media.Source

	// opMu serializes StartSession and StopSession.
	opMu sync.Mutex

	mu            sync.Mutex
	run           *run
	gen           uint64
	status        Status
	backoff       *backoff.ExponentialBackOff
	retryTimer    Timer
	stopTimer     Timer
	cancelAcquire context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]chan Status
	nextSub int
}

// New validates opts and builds an idle engine.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil || opts.Device == nil || opts.Encoder == nil || opts.NewChannel == nil {
		return nil, errors.New("session: config, device, encoder and channel factory are required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	return &Engine{
		cfg:     opts.Config,
		encoder: opts.Encoder,
		factory: opts.NewChannel,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		root:    opts.Logger,
		log:     logger.Component(opts.Logger, "session"),
		source:  media.NewSource(opts.Device, opts.Logger),
		backoff: newBackoff(opts.Config),
		status:  Status{State: channel.Disconnected},
		subs:    make(map[int]chan Status),
	}, nil
}

// maxBackoffDoublings bounds the reconnect delay at BackoffBase * 2^16.
const maxBackoffDoublings = 16

func newBackoff(cfg *config.Config) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.BackoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = cfg.BackoffBase << min(max(cfg.MaxRetries, 1), maxBackoffDoublings)
	if b.MaxInterval < cfg.BackoffBase {
		b.MaxInterval = cfg.BackoffBase
	}
	b.Reset()
	return b
}

// StartSession opens the channel for a new session lasting durationMinutes.
// A non-positive duration uses the configured one. It fails with
// ErrSessionActive unless the engine is Disconnected or Erroring; leftovers
// of an errored session are torn down first.
func (e *Engine) StartSession(ctx context.Context, durationMinutes int) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if state := e.State(); !state.CanOpen() {
		return fmt.Errorf("%w: %s", ErrSessionActive, state)
	}
	e.stop()

	if durationMinutes <= 0 {
		durationMinutes = e.cfg.DurationMinutes
	}
	address, err := e.cfg.Address()
	if err != nil {
		return err
	}

	r := &run{id: uuid.NewString(), address: address}
	r.log = e.log.With("session", r.id)
	ch, err := e.factory(channel.Handshake{Duration: durationMinutes}, e.handler(r))
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	r.ch = ch
	r.pipe = pipeline.New(e.source, ch, e.encoder, pipeline.Config{
		Cadence: e.cfg.Cadence(),
		Validator: capture.Validator{
			MinWidth:  e.cfg.MinFrameWidth,
			MinHeight: e.cfg.MinFrameHeight,
		},
		MinPayloadBytes: e.cfg.MinEncodedBytes,
	}, e.root.With("session", r.id), e.metrics)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	e.run = r
	e.status = Status{
		SessionID: r.id,
		StartedAt: time.Now(),
		State:     channel.Disconnected,
	}
	e.backoff.Reset()
	e.metrics.FocusScore(0)

	if e.cfg.AutoStop {
		e.stopTimer = e.clock.AfterFunc(time.Duration(durationMinutes)*time.Minute, func() {
			e.autoStop(r)
		})
	}

	r.log.Info("session starting", "url", address, "duration_minutes", durationMinutes)
	e.connectLocked(r)
	return nil
}

// StopSession ends the current session from any state: it cancels pending
// reconnects, auto-stop and acquisitions, closes the channel, stops the
// pipeline and releases the camera. Repeated calls are harmless.
func (e *Engine) StopSession() {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	e.stop()
}

func (e *Engine) autoStop(r *run) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	current := e.run == r
	e.mu.Unlock()
	if !current {
		return
	}
	r.log.Info("session duration elapsed")
	e.stop()
}

// stop requires opMu.
func (e *Engine) stop() {
	e.mu.Lock()
	r := e.run
	e.run = nil
	e.gen++
	e.stopTimersLocked()
	if r != nil && e.status.State != channel.Disconnected {
		e.setStateLocked(channel.Closing)
	}
	e.mu.Unlock()

	// Close may call back into the handler synchronously; those callbacks
	// see e.run != r and return.
	if r != nil {
		r.ch.Close()
	}

	e.mu.Lock()
	finish := e.teardownLocked(r)
	e.status.FocusScore = 0
	e.metrics.FocusScore(0)
	e.setStateLocked(channel.Disconnected)
	e.mu.Unlock()
	finish()

	if r != nil {
		r.log.Info("session stopped")
	}
}

// Status returns a snapshot of the current session.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// State returns the current connection state.
func (e *Engine) State() channel.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status.State
}

// Preview returns the latest camera frame, or media.ErrNotReady when the
// camera is not streaming.
func (e *Engine) Preview() (*capture.Frame, error) {
	return e.source.Sample()
}

// Subscribe returns a channel that receives a snapshot after every status
// change. Only the latest snapshot is kept for a slow reader. The returned
// func unsubscribes and closes the channel.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	e.mu.Lock()
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	ch <- e.snapshotLocked()
	e.subMu.Unlock()
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subs, id)
			e.subMu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) handler(r *run) channel.Handler {
	return channel.Handler{
		OnOpen:        func() { e.onOpen(r) },
		OnScore:       func(score int) { e.onScore(r, score) },
		OnServerError: func(msg string) { e.onServerError(r, msg) },
		OnError:       func(err error) { e.onError(r, err) },
		OnClose:       func(code int, reason string) { e.onClose(r, code, reason) },
	}
}

func (e *Engine) connectLocked(r *run) {
	e.setStateLocked(channel.Connecting)
	if err := r.ch.Open(r.address); err != nil {
		r.log.Error("open channel", "error", err)
		e.status.LastError = err
		e.setStateLocked(channel.Erroring)
	}
}

func (e *Engine) onOpen(r *run) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r || e.status.State != channel.Connecting {
		return
	}
	e.status.ErrorCount = 0
	e.status.ServerError = false
	e.status.LastServerError = ""
	e.backoff.Reset()
	e.setStateLocked(channel.Connected)
	r.log.Info("connected")

	ctx, cancel := context.WithCancel(context.Background())
	e.cancelAcquire = cancel
	go e.acquire(ctx, r, e.gen)
}

func (e *Engine) acquire(ctx context.Context, r *run, gen uint64) {
	c := media.Constraints{
		Width:     e.cfg.Camera.Width,
		Height:    e.cfg.Camera.Height,
		FrameRate: e.cfg.Camera.FrameRate,
	}
	stream, err := e.source.Acquire(ctx, c)

	e.mu.Lock()
	if e.gen != gen || e.run != r {
		e.mu.Unlock()
		if stream != nil {
			e.source.Discard(stream)
		}
		return
	}
	e.cancelAcquire = nil
	if err != nil {
		r.log.Error("camera acquisition failed", "error", err)
		e.status.LastError = err
		e.setStateLocked(channel.Erroring)
		e.mu.Unlock()
		r.ch.Close()
		return
	}
	e.source.AttachSink(stream)
	r.pipe.Start()
	e.status.Streaming = true
	e.publishLocked()
	e.mu.Unlock()
}

func (e *Engine) onScore(r *run, score int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r || e.status.State != channel.Connected {
		return
	}
	e.status.FocusScore = score
	e.metrics.FocusScore(score)
	e.publishLocked()
}

func (e *Engine) onServerError(r *run, msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run != r || e.status.State != channel.Connected {
		return
	}
	e.status.ServerError = true
	e.status.LastServerError = msg
	e.metrics.ServerError()
	r.log.Warn("server reported error", "message", msg)
	e.publishLocked()
}

func (e *Engine) onError(r *run, err error) {
	e.mu.Lock()
	finish := e.failLocked(r, err)
	e.mu.Unlock()
	finish()
}

func (e *Engine) failLocked(r *run, err error) (finish func()) {
	if e.run != r {
		return func() {}
	}
	if s := e.status.State; s != channel.Connecting && s != channel.Connected {
		return func() {}
	}
	finish = e.teardownLocked(r)
	e.status.ErrorCount++
	e.status.LastError = err
	e.metrics.TransportError()
	e.setStateLocked(channel.Erroring)

	if e.status.ErrorCount > e.cfg.MaxRetries {
		r.log.Error("giving up after repeated transport errors", "errors", e.status.ErrorCount, "error", err)
		return finish
	}
	delay := e.backoff.NextBackOff()
	gen := e.gen
	r.log.Warn("transport error, reconnecting", "error", err, "attempt", e.status.ErrorCount, "delay", delay)
	e.metrics.ReconnectScheduled()
	e.retryTimer = e.clock.AfterFunc(delay, func() { e.reconnect(r, gen) })
	return finish
}

func (e *Engine) reconnect(r *run, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen != gen || e.run != r || e.status.State != channel.Erroring {
		return
	}
	e.retryTimer = nil
	r.log.Info("reconnecting", "attempt", e.status.ErrorCount)
	e.connectLocked(r)
}

func (e *Engine) onClose(r *run, code int, reason string) {
	e.mu.Lock()
	if e.run != r {
		e.mu.Unlock()
		return
	}
	finish := e.teardownLocked(r)
	e.status.FocusScore = 0
	e.metrics.FocusScore(0)
	if e.status.State != channel.Erroring {
		e.setStateLocked(channel.Disconnected)
	} else {
		e.publishLocked()
	}
	e.mu.Unlock()
	finish()
	r.log.Info("channel closed", "code", code, "reason", reason)
}

// teardownLocked marks streaming off and detaches the pipeline run and the
// camera handles. The returned func waits for the pipeline and closes the
// camera; call it after releasing mu. The generation bump discards
// in-flight acquisitions when they land.
func (e *Engine) teardownLocked(r *run) (finish func()) {
	e.gen++
	if e.cancelAcquire != nil {
		e.cancelAcquire()
		e.cancelAcquire = nil
	}
	e.status.Streaming = false

	wait := func() {}
	if r != nil {
		wait = r.pipe.Halt()
	}
	release := e.source.Detach()
	return func() {
		wait()
		release()
	}
}

func (e *Engine) stopTimersLocked() {
	if e.retryTimer != nil {
		e.retryTimer.Stop()
		e.retryTimer = nil
	}
	if e.stopTimer != nil {
		e.stopTimer.Stop()
		e.stopTimer = nil
	}
}

func (e *Engine) setStateLocked(s channel.State) {
	e.status.State = s
	e.metrics.ConnectionState(int(s))
	e.publishLocked()
}

func (e *Engine) snapshotLocked() Status {
	s := e.status
	s.Indicator = s.State.String()
	if s.ServerError {
		s.Indicator = IndicatorError
	}
	return s
}

func (e *Engine) publishLocked() {
	s := e.snapshotLocked()
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
