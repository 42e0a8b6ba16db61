package subscribe

import (
	"fmt"

	"github.com/alexdesousa/icon-sub001/internal/wire"
)

// BuildFrame constructs the single JSON-able subscription frame sent at the
// end of setting_up (§4.5). height is the resolved starting height (never
// the "latest" sentinel by this point).
func BuildFrame(d Descriptor, height int64) (map[string]any, error) {
	heightHex, err := wire.Integer(wire.NonNegInt).Dump(height)
	if err != nil {
		return nil, fmt.Errorf("subscribe: dump frame height: %w", err)
	}

	switch d.Source {
	case SourceBlock:
		frame := map[string]any{"height": heightHex}
		if len(d.Events) > 0 {
			filters := make([]map[string]any, 0, len(d.Events))
			for _, ev := range d.Events {
				f, err := encodeFilter(ev)
				if err != nil {
					return nil, err
				}
				filters = append(filters, f)
			}
			frame["eventFilters"] = filters
		}
		return frame, nil

	case SourceEvent:
		if len(d.Events) != 1 {
			return nil, fmt.Errorf("subscribe: event source requires exactly one event filter")
		}
		frame, err := encodeFilter(d.Events[0])
		if err != nil {
			return nil, err
		}
		frame["height"] = heightHex
		return frame, nil

	default:
		return nil, fmt.Errorf("subscribe: unknown source %q", d.Source)
	}
}

// encodeFilter dumps one EventFilter's indexed/data values using the
// element types parsed from its header, leaving nil positions as JSON
// null.
func encodeFilter(f EventFilter) (map[string]any, error) {
	if f.Event == "" {
		return nil, fmt.Errorf("subscribe: event filter missing header")
	}
	types, err := wire.ParseHeaderTypes(f.Event)
	if err != nil {
		return nil, fmt.Errorf("subscribe: parse event header: %w", err)
	}

	out := map[string]any{"event": f.Event}
	if f.Addr != "" {
		out["addr"] = f.Addr
	}
	if f.Indexed != nil {
		vals, err := encodeFilterValues(types, f.Indexed)
		if err != nil {
			return nil, fmt.Errorf("subscribe: encode indexed filter: %w", err)
		}
		out["indexed"] = vals
	}
	if f.Data != nil {
		vals, err := encodeFilterValues(types, f.Data)
		if err != nil {
			return nil, fmt.Errorf("subscribe: encode data filter: %w", err)
		}
		out["data"] = vals
	}
	return out, nil
}

func encodeFilterValues(types []string, values []any) ([]any, error) {
	if len(values) > len(types) {
		return nil, fmt.Errorf("more filter values (%d) than header types (%d)", len(values), len(types))
	}
	out := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = nil
			continue
		}
		codec, err := wire.ElementCodec(types[i])
		if err != nil {
			return nil, err
		}
		w, err := codec.Dump(v)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}
