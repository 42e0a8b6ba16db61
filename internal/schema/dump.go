package schema

import "fmt"

// MapConvertible lets a caller-supplied named type participate in Dump
// without Dump needing reflection: it exposes its fields as a plain map.
type MapConvertible interface {
	ToMap() map[string]any
}

// Dump coerces a typed value back into its wire representation. Optional
// fields that are absent from the input record are omitted from the output;
// an absent required field takes its default, or fails with "is required"
// when it has none. An empty result means "no params field" once the caller
// embeds it in a request envelope.
func Dump(s *Schema, v any) (map[string]any, error) {
	m, err := toMap(v)
	if err != nil {
		return nil, err
	}
	out, errs := dumpRecord(s, m)
	if !errs.empty() {
		return nil, &ValidationError{Tree: errs}
	}
	return out, nil
}

func toMap(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case MapConvertible:
		return t.ToMap(), nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, fmt.Errorf("schema: cannot dump value of type %T", v)
	}
}

func dumpRecord(s *Schema, m map[string]any) (map[string]any, FieldErrors) {
	out := make(map[string]any)
	errs := newErrorTree()

	for _, name := range s.order {
		f := s.Fields[name]
		val, present := lookupField(m, name)

		if f.Kind == KindVariant {
			if !present {
				if f.Required {
					errs[name] = &FieldError{Message: "is required"}
				}
				continue
			}
			discVal, discPresent := lookupField(m, f.Discriminator)
			if !discPresent {
				errs[name] = &FieldError{Message: "is invalid"}
				continue
			}
			branchKey := fmt.Sprint(discVal)
			branch, ok := f.Branches[branchKey]
			if !ok {
				errs[name] = &FieldError{Message: "is invalid"}
				continue
			}
			dumped, err := dumpFieldValue(branch, val)
			if err != nil {
				errs[name] = wrapFieldErr(err)
				continue
			}
			out[name] = dumped
			continue
		}

		if !present {
			if f.Required {
				if d, ok := resolveDefault(f); ok {
					present = true
					val = d
				} else {
					errs[name] = &FieldError{Message: "is required"}
					continue
				}
			} else {
				continue
			}
		}

		if val == nil {
			if f.Nullable {
				out[name] = nil
				continue
			}
			errs[name] = &FieldError{Message: "is invalid"}
			continue
		}

		dumped, err := dumpFieldValue(f, val)
		if err != nil {
			errs[name] = wrapFieldErr(err)
			continue
		}
		out[name] = dumped
	}

	return out, errs
}

func dumpFieldValue(f *Field, val any) (any, error) {
	switch f.Kind {
	case KindPrimitive, KindAny:
		return f.codec.Dump(val)
	case KindEnum:
		var s string
		switch t := val.(type) {
		case Symbol:
			s = string(t)
		case string:
			s = t
		default:
			return nil, fmt.Errorf("expected enum symbol")
		}
		if _, ok := f.Enum[Symbol(s)]; !ok {
			return nil, fmt.Errorf("unknown enum value %q", s)
		}
		return s, nil
	case KindList:
		items, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list")
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := dumpFieldValue(f.Element, item)
			if err != nil {
				return nil, fmt.Errorf("element: %w", err)
			}
			out = append(out, v)
		}
		return out, nil
	case KindMap:
		items, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object")
		}
		out := make(map[string]any, len(items))
		for k, item := range items {
			v, err := dumpFieldValue(f.Element, item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case KindNested:
		m, err := toMap(val)
		if err != nil {
			return nil, err
		}
		nested, errs := dumpRecord(f.Nested, m)
		if !errs.empty() {
			return nil, &nestedError{errs: errs}
		}
		return nested, nil
	default:
		return nil, fmt.Errorf("unsupported field kind")
	}
}
