package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/junsooki/FocusLink/internal/capture"
	"github.com/junsooki/FocusLink/internal/logger"
)

// Source holds the camera streams it acquired and the sink attached to one
// of them. It is the only component allowed to close those streams.
type Source struct {
	device Device
	log    *slog.Logger

	acquireMu sync.Mutex

	mu      sync.Mutex
	streams []Stream
	sink    *Sink
}

// NewSource creates a Source backed by device.
func NewSource(device Device, log *slog.Logger) *Source {
	return &Source{
		device: device,
		log:    logger.Component(log, "media"),
	}
}

// Acquire opens a stream with the given constraints. The stream is held by
// the Source until Release or Discard.
func (s *Source) Acquire(ctx context.Context, c Constraints) (Stream, error) {
	s.acquireMu.Lock()
	defer s.acquireMu.Unlock()

	stream, err := s.device.Open(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}
	if err := ctx.Err(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: %v", ErrAcquisition, err)
	}

	s.mu.Lock()
	s.streams = append(s.streams, stream)
	s.mu.Unlock()

	s.log.Info("camera acquired", "width", c.Width, "height", c.Height, "fps", c.FrameRate)
	return stream, nil
}

// AttachSink binds stream to a new sink, replacing any previous one.
func (s *Source) AttachSink(stream Stream) {
	sink := newSink(stream)

	s.mu.Lock()
	prev := s.sink
	s.sink = sink
	s.mu.Unlock()

	if prev != nil {
		prev.stop()
	}
	go sink.run()
}

// Sample returns the most recent frame from the attached sink.
func (s *Source) Sample() (*capture.Frame, error) {
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		return nil, ErrNotReady
	}
	return sink.Current()
}

// Attached reports whether a sink is bound.
func (s *Source) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink != nil
}

// Held returns the number of streams not yet released.
func (s *Source) Held() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Discard closes a single stream, detaching the sink if it was bound to it.
// Used for acquisitions that completed after their session ended.
func (s *Source) Discard(stream Stream) {
	s.mu.Lock()
	var sink *Sink
	if s.sink != nil && s.sink.stream == stream {
		sink = s.sink
		s.sink = nil
	}
	found := false
	for i, st := range s.streams {
		if st == stream {
			s.streams = append(s.streams[:i], s.streams[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if sink != nil {
		sink.stop()
	}
	if found {
		if err := stream.Close(); err != nil {
			s.log.Warn("close stream", "error", err)
		}
	}
}

// Release stops the sink and closes every held stream. Safe to call when
// nothing is held.
func (s *Source) Release() {
	s.Detach()()
}

// Detach takes the sink and every held stream away from the Source without
// blocking. The returned func stops and closes exactly those; streams
// acquired afterwards are not affected.
func (s *Source) Detach() (release func()) {
	s.mu.Lock()
	sink := s.sink
	streams := s.streams
	s.sink = nil
	s.streams = nil
	s.mu.Unlock()

	return func() {
		if sink != nil {
			sink.stop()
		}
		for _, st := range streams {
			if err := st.Close(); err != nil {
				s.log.Warn("close stream", "error", err)
			}
		}
		if sink != nil || len(streams) > 0 {
			s.log.Info("camera released", "streams", len(streams))
		}
	}
}
