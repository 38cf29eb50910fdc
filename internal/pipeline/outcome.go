package pipeline

// Outcome is the result of one capture cycle. Everything but Sent is a
// silent skip: the loop carries on with the next tick.
type Outcome int

const (
	Sent Outcome = iota
	SkipNotReady
	SkipInvalid
	SkipEncode
	SkipUndersized
	SkipChannel
	SkipStale
	numOutcomes
)

func (o Outcome) String() string {
	switch o {
	case Sent:
		return "sent"
	case SkipNotReady:
		return "not_ready"
	case SkipInvalid:
		return "invalid"
	case SkipEncode:
		return "encode_failed"
	case SkipUndersized:
		return "undersized"
	case SkipChannel:
		return "channel_not_ready"
	case SkipStale:
		return "stale"
	}
	return "unknown"
}

// Stats counts cycle outcomes.
type Stats struct {
	Sent    uint64
	Skipped map[Outcome]uint64
}
