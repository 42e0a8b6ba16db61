package schema

import "fmt"

// Load validates and coerces a decoded-JSON wire map into a typed value per
// the schema. On success it returns (value, nil); on failure it returns
// (nil, *ValidationError).
func Load(s *Schema, w map[string]any) (any, error) {
	state, errs := loadRecord(s, w)
	if !errs.empty() {
		return nil, &ValidationError{Tree: errs}
	}
	return Apply(s, state, s.Into)
}

// Apply finalizes a partially built state into a typed value, optionally
// casting it through a named-record constructor. A nil into returns the
// plain map unchanged.
func Apply(s *Schema, state map[string]any, into func(map[string]any) (any, error)) (any, error) {
	if into == nil {
		return state, nil
	}
	return into(state)
}

func loadRecord(s *Schema, w map[string]any) (map[string]any, FieldErrors) {
	state := make(map[string]any, len(s.Fields))
	errs := newErrorTree()

	for _, name := range s.order {
		f := s.Fields[name]
		val, present := lookupField(w, name)

		if f.Kind == KindVariant {
			discVal, discPresent := lookupField(w, f.Discriminator)
			if !discPresent {
				if f.Required {
					errs[name] = &FieldError{Message: "is invalid"}
				}
				continue
			}
			branchKey := fmt.Sprint(discVal)
			branch, ok := f.Branches[branchKey]
			if !ok {
				errs[name] = &FieldError{Message: "is invalid"}
				continue
			}
			if !present {
				if f.Required {
					errs[name] = &FieldError{Message: "is required"}
				}
				continue
			}
			loaded, err := loadFieldValue(branch, val)
			if err != nil {
				errs[name] = wrapFieldErr(err)
				continue
			}
			state[name] = loaded
			continue
		}

		if !present || isEmptyString(val) {
			if d, ok := resolveDefault(f); ok {
				state[name] = d
				continue
			}
			if f.Required {
				errs[name] = &FieldError{Message: "is required"}
			}
			continue
		}

		if val == nil {
			if f.Nullable {
				state[name] = nil
				continue
			}
		}

		loaded, err := loadFieldValue(f, val)
		if err != nil {
			errs[name] = wrapFieldErr(err)
			continue
		}
		state[name] = loaded
	}

	return state, errs
}

func loadFieldValue(f *Field, val any) (any, error) {
	switch f.Kind {
	case KindPrimitive, KindAny:
		return f.codec.Load(val)
	case KindEnum:
		s, ok := val.(string)
		if !ok {
			if sym, ok := val.(Symbol); ok {
				s = string(sym)
			} else {
				return nil, fmt.Errorf("expected enum string")
			}
		}
		if _, ok := f.Enum[Symbol(s)]; !ok {
			return nil, fmt.Errorf("unknown enum value %q", s)
		}
		return Symbol(s), nil
	case KindList:
		items, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("expected list")
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			v, err := loadFieldValue(f.Element, item)
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
			v, err := loadFieldValue(f.Element, item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = v
		}
		return out, nil
	case KindNested:
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object")
		}
		state, errs := loadRecord(f.Nested, m)
		if !errs.empty() {
			return nil, &nestedError{errs: errs}
		}
		return Apply(f.Nested, state, f.Nested.Into)
	default:
		return nil, fmt.Errorf("unsupported field kind")
	}
}

// nestedError carries a sub-tree so the caller can attach it under the
// parent field's key with Nested set instead of flattening to "is invalid".
type nestedError struct {
	errs FieldErrors
}

func (e *nestedError) Error() string { return "nested validation failed" }

func wrapFieldErr(err error) *FieldError {
	if ne, ok := err.(*nestedError); ok {
		return &FieldError{Nested: ne.errs}
	}
	return &FieldError{Message: "is invalid"}
}

func lookupField(w map[string]any, name string) (any, bool) {
	v, ok := w[name]
	return v, ok
}

func isEmptyString(v any) bool {
	s, ok := v.(string)
	return ok && s == ""
}

func resolveDefault(f *Field) (any, bool) {
	if f.Default == nil {
		return nil, false
	}
	if thunk, ok := f.Default.(func() any); ok {
		return thunk(), true
	}
	return f.Default, true
}
