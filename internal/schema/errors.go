package schema

import (
	"sort"
	"strings"
)

// FieldErrors is a dot-path-addressable tree of per-field failures. A leaf
// node has a non-empty Message and no Nested entries; an interior node (a
// failed nested schema) has Nested populated and an empty Message. A failed
// list, including a list of nested schemas, is a single "is invalid" leaf.
type FieldErrors map[string]*FieldError

// FieldError is one node in the validation error tree.
type FieldError struct {
	Message string
	Nested  FieldErrors
}

// ValidationError is returned by Load and Dump when one or more fields
// fail. It preserves both the structured tree (for programmatic access)
// and a flattened, alphabetically-joined single-line Message — the source
// kept both representations and so do we (§9).
type ValidationError struct {
	Tree FieldErrors
}

func (e *ValidationError) Error() string {
	return e.Message()
}

// Message flattens the error tree into dot-path keys ("outer.inner") and
// joins them alphabetically into a single line.
func (e *ValidationError) Message() string {
	pairs := flatten("", e.Tree)
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func flatten(prefix string, fe FieldErrors) []string {
	var out []string
	for key, err := range fe {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if err.Nested != nil {
			out = append(out, flatten(path, err.Nested)...)
			continue
		}
		out = append(out, path+" "+err.Message)
	}
	return out
}

func newErrorTree() FieldErrors {
	return make(FieldErrors)
}

func (fe FieldErrors) empty() bool {
	return len(fe) == 0
}
