package media

import (
	"sync"
	"time"

	"github.com/junsooki/FocusLink/internal/capture"
)

// Sink continuously reads a stream and keeps the latest frame so it can be
// sampled at any cadence without blocking on the device.
type Sink struct {
	stream Stream

	mu     sync.RWMutex
	latest *capture.Frame

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func newSink(stream Stream) *Sink {
	return &Sink{
		stream: stream,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// stopTimeout bounds how long stop waits for a Read that never returns.
const stopTimeout = 2 * time.Second

func (k *Sink) run() {
	defer close(k.doneCh)
	for {
		select {
		case <-k.stopCh:
			return
		default:
		}

		f, err := k.stream.Read()
		if err != nil {
			k.mu.Lock()
			k.latest = nil
			k.mu.Unlock()
			return
		}
		if f == nil {
			continue
		}

		k.mu.Lock()
		k.latest = f
		k.mu.Unlock()
	}
}

// Current returns the latest frame, or ErrNotReady if none has arrived.
func (k *Sink) Current() (*capture.Frame, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.latest == nil {
		return nil, ErrNotReady
	}
	return k.latest, nil
}

// stop waits for the read loop to exit. The loop checks stopCh between
// reads, so this normally blocks for one device frame interval.
func (k *Sink) stop() {
	k.stopOnce.Do(func() { close(k.stopCh) })
	select {
	case <-k.doneCh:
	case <-time.After(stopTimeout):
	}
}
