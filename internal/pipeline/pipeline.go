package pipeline

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/logger"
	"github.com/junsooki/FocusLink/internal/metrics"
)

// FrameSource provides the latest camera frame.
type FrameSource interface {
	Sample() (*capture.Frame, error)
}

// Sender transmits encoded frames. Send must not queue: it reports false
// when the frame was dropped.
type Sender interface {
	Ready() bool
	Send(payload []byte) bool
}

// Encoder turns a frame into the outbound payload.
type Encoder interface {
	Encode(img *image.RGBA) ([]byte, error)
}

// Config holds the pipeline's tunables.
type Config struct {
	Cadence         time.Duration
	Validator       capture.Validator
	MinPayloadBytes int
}

// Pipeline owns only its scheduling handle. It never closes the source or
// the sender.
type Pipeline struct {
	source  FrameSource
	sender  Sender
	encoder Encoder
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}

	sent    atomic.Uint64
	skipped [numOutcomes]atomic.Uint64
}

// New creates a stopped pipeline.
func New(source FrameSource, sender Sender, encoder Encoder, cfg Config, log *slog.Logger, m *metrics.Metrics) *Pipeline {
	if cfg.Cadence <= 0 {
		cfg.Cadence = 100 * time.Millisecond
	}
	return &Pipeline{
		source:  source,
		sender:  sender,
		encoder: encoder,
		cfg:     cfg,
		log:     logger.Component(log, "pipeline"),
		metrics: m,
	}
}

// Start begins the recurring cycle. It is a no-op if already running.
func (p *Pipeline) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.gen++
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.gen, p.done)
	p.log.Info("pipeline started", "cadence", p.cfg.Cadence)
}

// Stop cancels the recurring cycle and waits for an in-flight cycle to
// finish. It is idempotent. Once Stop returns no further frame is sent by
// this run.
func (p *Pipeline) Stop() {
	p.Halt()()
}

// Halt cancels the recurring cycle without waiting. The returned func blocks
// until the cancelled run has exited; it does not wait for a run started
// afterwards.
func (p *Pipeline) Halt() (wait func()) {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.gen++
	p.mu.Unlock()

	if cancel == nil {
		return func() {}
	}
	cancel()
	return func() {
		<-done
		p.log.Info("pipeline stopped", "sent", p.sent.Load())
	}
}

// Running reports whether the cycle is scheduled.
func (p *Pipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Step runs a single cycle outside the scheduler.
func (p *Pipeline) Step() Outcome {
	p.mu.Lock()
	gen := p.gen
	p.mu.Unlock()
	return p.cycle(gen)
}

func (p *Pipeline) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.cfg.Cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(gen)
		}
	}
}

func (p *Pipeline) cycle(gen uint64) Outcome {
	out, n := p.attempt(gen)
	if out == Sent {
		p.sent.Add(1)
		p.metrics.FrameSent(n)
	} else {
		p.skipped[out].Add(1)
		p.metrics.FrameSkipped(out.String())
		p.log.Debug("frame skipped", "reason", out)
	}
	return out
}

func (p *Pipeline) attempt(gen uint64) (Outcome, int) {
	frame, err := p.source.Sample()
	if err != nil || frame == nil {
		return SkipNotReady, 0
	}
	if !p.cfg.Validator.Valid(frame) {
		return SkipInvalid, 0
	}
	payload, err := p.encoder.Encode(frame.Image)
	if err != nil {
		return SkipEncode, 0
	}
	if len(payload) <= p.cfg.MinPayloadBytes {
		return SkipUndersized, 0
	}
	if !p.current(gen) {
		return SkipStale, 0
	}
	if !p.sender.Ready() {
		return SkipChannel, 0
	}
	if !p.sender.Send(payload) {
		return SkipChannel, 0
	}
	return Sent, len(payload)
}

func (p *Pipeline) current(gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen == gen
}

// Stats returns cumulative counts since creation.
func (p *Pipeline) Stats() Stats {
	s := Stats{Sent: p.sent.Load(), Skipped: make(map[Outcome]uint64)}
	for o := Outcome(1); o < numOutcomes; o++ {
		if n := p.skipped[o].Load(); n > 0 {
			s.Skipped[o] = n
		}
	}
	return s
}
