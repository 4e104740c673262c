package events

// Names of events emitted while scanning.
const (
	ScanStarted   = "scan_started"
	ScanProgress  = "scan_progress"
	ScanCompleted = "scan_completed"
	ScanCanceled  = "scan_canceled"

	ItemsAdded   = "items_added"
	ItemsUpdated = "items_updated"
	ItemsMissing = "items_missing"
)

// BatchSize is how many items go into a single item event. Large libraries
// can touch thousands of items in one scan; batching bounds the pressure on
// whoever is draining the sink.
const BatchSize = 10

// Event is a single emitted notification.
type Event struct {
	Name    string
	Payload any
}

// Sink receives scan notifications. Emit is fire-and-forget: implementations
// must not block the caller, however slow the eventual consumer is.
type Sink interface {
	Emit(name string, payload any)
}

// EmitBatched splits items into chunks of BatchSize and emits one event per
// chunk. Empty input emits nothing.
func EmitBatched[T any](sink Sink, name string, items []T) {
	for start := 0; start < len(items); start += BatchSize {
		end := start + BatchSize
		if end > len(items) {
			end = len(items)
		}
		sink.Emit(name, items[start:end])
	}
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Emit(string, any) {}

// ChannelSink buffers events on a channel for a single consumer. When the
// buffer is full new events are dropped rather than blocking the emitter.
type ChannelSink struct {
	ch chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(name string, payload any) {
	select {
	case s.ch <- Event{Name: name, Payload: payload}:
	default:
	}
}

// Events is the consumer side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}
