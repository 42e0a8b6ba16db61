package wire

import (
	"fmt"
	"strings"
)

// EventLog is the typed value an event-log codec loads into and dumps from.
type EventLog struct {
	ScoreAddress string
	Header       string // full "Name(Type1,Type2,...)" signature
	Name         string // Header up to the first "("
	Indexed      []any  // typed values parsed from indexed[1:]
	Data         []any  // typed values parsed from data
}

// ParseHeaderTypes splits an event header's "(Type1,Type2,...)" segment
// into its element type tokens. An empty parameter list yields an empty
// slice.
func ParseHeaderTypes(header string) ([]string, error) {
	open := strings.IndexByte(header, '(')
	close := strings.LastIndexByte(header, ')')
	if open < 0 || close < open {
		return nil, fmt.Errorf("malformed event header %q", header)
	}
	inner := header[open+1 : close]
	if inner == "" {
		return nil, nil
	}
	parts := strings.Split(inner, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}

// HeaderName returns the event name, the header up to its first "(".
func HeaderName(header string) string {
	if i := strings.IndexByte(header, '('); i >= 0 {
		return header[:i]
	}
	return header
}

// ElementCodec resolves one of the event log's permitted element types
// (int, str, bytes, bool, Address) by name. Subscription filters use this
// to dump indexed/data values against the types parsed from an event
// header, the same way event-log decoding does.
func ElementCodec(typeName string) (Codec, error) {
	return elementCodec(typeName)
}

// elementCodec resolves one of the event log's five permitted element
// types: int, str, bytes, bool, Address.
func elementCodec(typeName string) (Codec, error) {
	switch typeName {
	case "int":
		return Integer(AnyInt), nil
	case "str":
		return String(), nil
	case "bytes":
		return Bytes(), nil
	case "bool":
		return Boolean(), nil
	case "Address":
		return Address(), nil
	default:
		return nil, fmt.Errorf("unknown event log element type %q", typeName)
	}
}

// EventLogCodec is the codec for the structured event-log record (§3).
func EventLogCodec() Codec {
	return &funcCodec{
		name: "event_log",
		load: func(w any) (any, error) { return loadEventLog(w) },
		dump: func(v any) (any, error) { return dumpEventLog(v) },
	}
}

func loadEventLog(w any) (any, error) {
	m, ok := w.(map[string]any)
	if !ok {
		return nil, invalid("event_log", w, fmt.Errorf("expected object"))
	}
	scoreAddr, _ := m["scoreAddress"].(string)

	var indexedWire, dataWire []any
	if v, ok := m["indexed"]; ok && v != nil {
		indexedWire, _ = v.([]any)
	}
	if v, ok := m["data"]; ok && v != nil {
		dataWire, _ = v.([]any)
	}
	if len(indexedWire) == 0 {
		return nil, invalid("event_log", w, fmt.Errorf("missing header in indexed[0]"))
	}
	header, ok := indexedWire[0].(string)
	if !ok {
		return nil, invalid("event_log", w, fmt.Errorf("indexed[0] must be the header string"))
	}

	types, err := ParseHeaderTypes(header)
	if err != nil {
		return nil, invalid("event_log", w, err)
	}
	indexedValues := indexedWire[1:]
	if len(types) < len(indexedValues)+len(dataWire) {
		return nil, invalid("event_log", w, fmt.Errorf("header arity too small for %d indexed + %d data values", len(indexedValues), len(dataWire)))
	}

	indexed := make([]any, 0, len(indexedValues))
	for i, raw := range indexedValues {
		codec, err := elementCodec(types[i])
		if err != nil {
			return nil, invalid("event_log", w, err)
		}
		val, err := codec.Load(raw)
		if err != nil {
			return nil, invalid("event_log", w, err)
		}
		indexed = append(indexed, val)
	}

	data := make([]any, 0, len(dataWire))
	for i, raw := range dataWire {
		codec, err := elementCodec(types[len(indexedValues)+i])
		if err != nil {
			return nil, invalid("event_log", w, err)
		}
		val, err := codec.Load(raw)
		if err != nil {
			return nil, invalid("event_log", w, err)
		}
		data = append(data, val)
	}

	return &EventLog{
		ScoreAddress: scoreAddr,
		Header:       header,
		Name:         HeaderName(header),
		Indexed:      indexed,
		Data:         data,
	}, nil
}

func dumpEventLog(v any) (any, error) {
	ev, ok := v.(*EventLog)
	if !ok {
		return nil, invalid("event_log", v, fmt.Errorf("expected *EventLog"))
	}
	types, err := ParseHeaderTypes(ev.Header)
	if err != nil {
		return nil, invalid("event_log", v, err)
	}
	if len(types) < len(ev.Indexed)+len(ev.Data) {
		return nil, invalid("event_log", v, fmt.Errorf("header arity too small"))
	}

	indexedWire := make([]any, 0, len(ev.Indexed)+1)
	indexedWire = append(indexedWire, ev.Header)
	for i, val := range ev.Indexed {
		codec, err := elementCodec(types[i])
		if err != nil {
			return nil, invalid("event_log", v, err)
		}
		w, err := codec.Dump(val)
		if err != nil {
			return nil, invalid("event_log", v, err)
		}
		indexedWire = append(indexedWire, w)
	}

	dataWire := make([]any, 0, len(ev.Data))
	for i, val := range ev.Data {
		codec, err := elementCodec(types[len(ev.Indexed)+i])
		if err != nil {
			return nil, invalid("event_log", v, err)
		}
		w, err := codec.Dump(val)
		if err != nil {
			return nil, invalid("event_log", v, err)
		}
		dataWire = append(dataWire, w)
	}

	out := map[string]any{
		"indexed": indexedWire,
		"data":    dataWire,
	}
	if ev.ScoreAddress != "" {
		out["scoreAddress"] = ev.ScoreAddress
	}
	return out, nil
}
