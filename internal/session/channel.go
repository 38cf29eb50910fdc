package session

import "github.com/junsooki/FocusLink/internal/channel"

// Channel is the slice of the channel client the engine drives.
type Channel interface {
	Open(address string) error
	Send(payload []byte) bool
	Ready() bool
	Close()
	State() channel.State
}

// ChannelFactory builds a channel that reports to handler and sends
// handshake on every connect.
type ChannelFactory func(handshake channel.Handshake, handler channel.Handler) (Channel, error)

// WebSocketChannels returns a factory for gorilla/websocket clients.
func WebSocketChannels(opts channel.Options) ChannelFactory {
	return func(hs channel.Handshake, h channel.Handler) (Channel, error) {
		return channel.NewClient(hs, h, opts)
	}
}
