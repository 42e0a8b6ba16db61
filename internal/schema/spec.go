// Package schema composes the primitive codecs in package wire into named
// or anonymous records with required/default/nullable/variant-discriminated
// fields (spec §4.1). Generate is pure and cached by a content fingerprint;
// Load/Dump perform the bidirectional coercion; Apply finalizes a validated
// state into a named Go value.
package schema

import "github.com/alexdesousa/icon-sub001/internal/wire"

// Symbol distinguishes an enum value defined at schema-authoring time from
// an arbitrary runtime string, mirroring the spec's "enum values must be
// symbols" invariant.
type Symbol string

// Kind discriminates the shape a FieldSpec describes.
type Kind int

const (
	KindPrimitive Kind = iota
	KindList
	KindEnum
	KindVariant
	KindNested
	KindAny
	KindMap
)

// FieldSpec is the declarative, not-yet-compiled description of one field.
// Generate turns a Spec built from these into a compiled Schema.
type FieldSpec struct {
	Kind Kind

	// KindPrimitive / KindList (element) / KindMap (element)
	Codec wire.Codec

	// KindList: the element descriptor, which may itself be primitive or
	// nested (recurses through Kind/Codec/Nested).
	Element *FieldSpec

	// KindEnum
	Enum []Symbol

	// KindVariant
	Discriminator string
	Branches      map[string]*FieldSpec

	// KindNested
	Nested *Spec

	// KindMap uses Element for its uniform value type.

	Required bool
	Nullable bool
	// Default supplies a static value or a thunk (func() any). Load uses it
	// whenever the field is absent or the empty string; Dump uses it only
	// for a required field that is absent.
	Default any
}

// Spec is the declarative description of a full record, keyed by field
// name.
type Spec struct {
	Name   string
	Fields map[string]*FieldSpec
	// Into optionally casts a validated field map into a named Go value.
	// Nil means Load/Apply return the plain map[string]any.
	Into func(map[string]any) (any, error)
}
