package channel

import (
	"strconv"
	"strings"
)

// ServerErrorPrefix marks an inbound error notice from the service.
const ServerErrorPrefix = "error:"

// Score bounds accepted from the service.
const (
	MinScore = 0
	MaxScore = 100
)

// Handshake is the first payload sent after the channel opens, before any
// frame traffic.
type Handshake struct {
	Duration int `json:"duration"`
}

// Kind classifies an inbound payload.
type Kind int

const (
	KindIgnored Kind = iota
	KindScore
	KindServerError
)

// Message is a parsed inbound payload.
type Message struct {
	Kind  Kind
	Score int
	Text  string
}

// ParseMessage applies the inbound grammar: a decimal integer "0"-"100" is a
// score, a string starting with "error:" is a server error notice, anything
// else is ignored.
func ParseMessage(data string) Message {
	if strings.HasPrefix(data, ServerErrorPrefix) {
		return Message{Kind: KindServerError, Text: strings.TrimPrefix(data, ServerErrorPrefix)}
	}
	s := strings.TrimSpace(data)
	if s == "" || len(s) > 3 {
		return Message{Kind: KindIgnored}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Message{Kind: KindIgnored}
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < MinScore || n > MaxScore {
		return Message{Kind: KindIgnored}
	}
	return Message{Kind: KindScore, Score: n}
}
