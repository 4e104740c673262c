package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	events []Event
}

func (s *recordingSink) Emit(name string, payload any) {
	s.events = append(s.events, Event{Name: name, Payload: payload})
}

func TestEmitBatched(t *testing.T) {
	t.Parallel()

	items := make([]int, 23)
	for i := range items {
		items[i] = i
	}

	sink := &recordingSink{}
	EmitBatched(sink, ItemsAdded, items)

	require.Len(t, sink.events, 3)
	assert.Len(t, sink.events[0].Payload, 10)
	assert.Len(t, sink.events[1].Payload, 10)
	assert.Len(t, sink.events[2].Payload, 3)
	for _, event := range sink.events {
		assert.Equal(t, ItemsAdded, event.Name)
	}

	sink = &recordingSink{}
	EmitBatched(sink, ItemsUpdated, []int{})
	assert.Empty(t, sink.events)
}

func TestChannelSinkDropsWhenFull(t *testing.T) {
	t.Parallel()

	sink := NewChannelSink(2)
	sink.Emit(ScanStarted, nil)
	sink.Emit(ScanProgress, 1)
	// Buffer is full; this must return immediately instead of blocking.
	sink.Emit(ScanProgress, 2)

	first := <-sink.Events()
	assert.Equal(t, ScanStarted, first.Name)
	second := <-sink.Events()
	assert.Equal(t, ScanProgress, second.Name)
	assert.Equal(t, 1, second.Payload)

	select {
	case e := <-sink.Events():
		t.Fatalf("expected dropped event, got %v", e)
	default:
	}
}
