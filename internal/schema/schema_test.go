package schema

import (
	"strings"
	"testing"

	"github.com/alexdesousa/icon-sub001/internal/wire"
)

func intSpec(name string, required bool) *FieldSpec {
	return &FieldSpec{Kind: KindPrimitive, Codec: wire.Integer(wire.AnyInt), Required: required}
}

func TestGenerateIsCachedByShape(t *testing.T) {
	specA := &Spec{Name: "point", Fields: map[string]*FieldSpec{
		"x": intSpec("x", true),
		"y": intSpec("y", true),
	}}
	specB := &Spec{Name: "point", Fields: map[string]*FieldSpec{
		"x": intSpec("x", true),
		"y": intSpec("y", true),
	}}

	sa, err := Generate(specA)
	if err != nil {
		t.Fatalf("generate a: %v", err)
	}
	sb, err := Generate(specB)
	if err != nil {
		t.Fatalf("generate b: %v", err)
	}
	if sa != sb {
		t.Fatalf("expected structurally identical specs to share one compiled Schema")
	}
}

func TestGenerateRejectsMalformedSpecs(t *testing.T) {
	cases := []struct {
		name string
		fs   *FieldSpec
	}{
		{"missing codec", &FieldSpec{Kind: KindPrimitive}},
		{"missing element", &FieldSpec{Kind: KindList}},
		{"empty enum", &FieldSpec{Kind: KindEnum}},
		{"missing discriminator", &FieldSpec{Kind: KindVariant, Branches: map[string]*FieldSpec{"a": intSpec("a", true)}}},
		{"missing branches", &FieldSpec{Kind: KindVariant, Discriminator: "type"}},
		{"missing nested", &FieldSpec{Kind: KindNested}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Generate(&Spec{Name: "bad_" + c.name, Fields: map[string]*FieldSpec{"f": c.fs}})
			if err == nil {
				t.Fatalf("expected compile error")
			}
		})
	}
}

func recordSpec() *Spec {
	return &Spec{
		Name: "transfer",
		Fields: map[string]*FieldSpec{
			"to":    {Kind: KindPrimitive, Codec: wire.Address(), Required: true},
			"value": {Kind: KindPrimitive, Codec: wire.Loop(), Required: false},
			"memo":  {Kind: KindPrimitive, Codec: wire.String(), Required: false, Nullable: true},
		},
	}
}

func TestLoadDumpRoundTrip(t *testing.T) {
	s, err := Generate(recordSpec())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	wireVal := map[string]any{
		"to":    "hx0000000000000000000000000000000000000abc",
		"value": "0x2386f26fc10000",
	}

	loaded, err := Load(s, wireVal)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	state, ok := loaded.(map[string]any)
	if !ok {
		t.Fatalf("expected plain map, got %T", loaded)
	}
	if state["to"] != "hx0000000000000000000000000000000000000abc" {
		t.Fatalf("unexpected to: %v", state["to"])
	}

	dumped, err := Dump(s, state)
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if dumped["to"] != wireVal["to"] {
		t.Fatalf("round-trip mismatch: %v", dumped["to"])
	}
	if _, present := dumped["memo"]; present {
		t.Fatalf("absent optional field should not reappear on dump")
	}
}

func TestLoadMissingRequiredFieldFails(t *testing.T) {
	s, err := Generate(recordSpec())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = Load(s, map[string]any{"value": "0x1"})
	if err == nil {
		t.Fatalf("expected error for missing required field")
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if !strings.Contains(ve.Message(), "to is required") {
		t.Fatalf("unexpected message: %q", ve.Message())
	}
}

func variantSpec() *Spec {
	return &Spec{
		Name: "message",
		Fields: map[string]*FieldSpec{
			"type": {Kind: KindEnum, Required: true, Enum: []Symbol{"a", "b"}},
			"body": {
				Kind:          KindVariant,
				Required:      true,
				Discriminator: "type",
				Branches: map[string]*FieldSpec{
					"a": {Kind: KindPrimitive, Codec: wire.String(), Required: true},
					"b": {Kind: KindPrimitive, Codec: wire.Integer(wire.AnyInt), Required: true},
				},
			},
		},
	}
}

func TestVariantSelectsBranchByDiscriminator(t *testing.T) {
	s, err := Generate(variantSpec())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	loaded, err := Load(s, map[string]any{"type": "a", "body": "hello"})
	if err != nil {
		t.Fatalf("load branch a: %v", err)
	}
	state := loaded.(map[string]any)
	if state["body"] != "hello" {
		t.Fatalf("expected string branch, got %v", state["body"])
	}

	_, err = Load(s, map[string]any{"type": "c", "body": "hello"})
	if err == nil {
		t.Fatalf("expected error for unknown discriminator value")
	}
}

func TestEnumAcceptsStringAndSymbol(t *testing.T) {
	s, err := Generate(&Spec{Name: "e", Fields: map[string]*FieldSpec{
		"kind": {Kind: KindEnum, Required: true, Enum: []Symbol{"up", "down"}},
	}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := Load(s, map[string]any{"kind": "up"}); err != nil {
		t.Fatalf("load string form: %v", err)
	}
	if _, err := Load(s, map[string]any{"kind": Symbol("down")}); err != nil {
		t.Fatalf("load symbol form: %v", err)
	}
	if _, err := Load(s, map[string]any{"kind": "sideways"}); err == nil {
		t.Fatalf("expected error for unknown enum value")
	}
}

func TestListFailsAsOneUnit(t *testing.T) {
	s, err := Generate(&Spec{Name: "l", Fields: map[string]*FieldSpec{
		"values": {Kind: KindList, Required: true, Element: &FieldSpec{Kind: KindPrimitive, Codec: wire.Integer(wire.AnyInt)}},
	}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	_, err = Load(s, map[string]any{"values": []any{"0x1", "not-a-number", "0x3"}})
	if err == nil {
		t.Fatalf("expected list load to fail")
	}
	ve := err.(*ValidationError)
	if !strings.Contains(ve.Message(), "values is invalid") {
		t.Fatalf("expected single flattened failure for the whole list, got %q", ve.Message())
	}
}

func TestNestedSchemaErrorsPropagateAsTree(t *testing.T) {
	inner := &Spec{Name: "inner", Fields: map[string]*FieldSpec{
		"to": {Kind: KindPrimitive, Codec: wire.Address(), Required: true},
	}}
	outer := &Spec{Name: "outer", Fields: map[string]*FieldSpec{
		"data": {Kind: KindNested, Required: true, Nested: inner},
	}}
	s, err := Generate(outer)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	_, err = Load(s, map[string]any{"data": map[string]any{}})
	if err == nil {
		t.Fatalf("expected nested validation failure")
	}
	ve := err.(*ValidationError)
	if !strings.Contains(ve.Message(), "data.to is required") {
		t.Fatalf("expected dot-path nested message, got %q", ve.Message())
	}
}

func TestDumpElidesEmptyRecord(t *testing.T) {
	s, err := Generate(&Spec{Name: "empty", Fields: map[string]*FieldSpec{
		"note": {Kind: KindPrimitive, Codec: wire.String(), Required: false},
	}})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	dumped, err := Dump(s, map[string]any{})
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if len(dumped) != 0 {
		t.Fatalf("expected empty record to dump to an empty map, got %v", dumped)
	}
}

func TestApplyCastsIntoNamedType(t *testing.T) {
	type point struct{ X, Y int }
	s, err := Generate(&Spec{
		Name: "point",
		Fields: map[string]*FieldSpec{
			"x": intSpec("x", true),
			"y": intSpec("y", true),
		},
		Into: func(m map[string]any) (any, error) {
			return point{}, nil
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	loaded, err := Load(s, map[string]any{"x": "0x1", "y": "0x2"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := loaded.(point); !ok {
		t.Fatalf("expected Into to cast into point, got %T", loaded)
	}
}
