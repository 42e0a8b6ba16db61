// Package subscribe drives a single WebSocket subscription to the node: the
// connecting/upgrading/consuming state machine, backoff on failure, frame
// construction, and decoding of incoming block/event notifications into the
// stream buffer.
package subscribe

import "fmt"

// Source selects which of the node's two notification kinds a subscription
// consumes.
type Source string

const (
	SourceBlock Source = "block"
	SourceEvent Source = "event"
)

// EventFilter narrows an event-source subscription, or adds a secondary
// filter to a block-source one, to logs matching a given header/address and
// (optionally) specific indexed/data values.
type EventFilter struct {
	Event   string // header, e.g. "Transfer(Address,Address,int)"
	Addr    string // SCORE address, optional
	Indexed []any  // nil entries are wildcards
	Data    []any  // nil entries are wildcards
}

// Descriptor is the immutable configuration of a subscription.
type Descriptor struct {
	Source        Source
	FromHeight    int64 // -1 means "latest"
	MaxBufferSize int
	Events        []EventFilter
}

const fromHeightLatest = -1

// FromLatest is the FromHeight sentinel requesting the node's latest block
// height at subscribe time rather than a fixed starting height.
func FromLatest() int64 { return fromHeightLatest }

// Validate checks the descriptor's required shape: a valid source, a
// positive buffer size, and (for event source) exactly one event filter.
func (d Descriptor) Validate() error {
	switch d.Source {
	case SourceBlock, SourceEvent:
	default:
		return fmt.Errorf("subscribe: unknown source %q", d.Source)
	}
	if d.MaxBufferSize <= 0 {
		return fmt.Errorf("subscribe: max_buffer_size must be positive, got %d", d.MaxBufferSize)
	}
	if d.Source == SourceEvent && len(d.Events) != 1 {
		return fmt.Errorf("subscribe: event source requires exactly one event filter, got %d", len(d.Events))
	}
	return nil
}

// WithDefaults returns a copy of d with MaxBufferSize defaulted to 1000 and
// FromHeight defaulted to latest when left at its zero value.
func (d Descriptor) WithDefaults() Descriptor {
	if d.MaxBufferSize == 0 {
		d.MaxBufferSize = 1000
	}
	if d.FromHeight == 0 {
		d.FromHeight = fromHeightLatest
	}
	return d
}
