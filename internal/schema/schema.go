package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Field is the compiled, immutable counterpart of FieldSpec.
type Field struct {
	Kind          Kind
	codec         codecIface
	Element       *Field
	Enum          map[Symbol]struct{}
	Discriminator string
	Branches      map[string]*Field
	Nested        *Schema
	Required      bool
	Nullable      bool
	Default       any
}

type codecIface interface {
	Name() string
	Load(any) (any, error)
	Dump(any) (any, error)
}

// Schema is the compiled, cacheable output of Generate.
type Schema struct {
	Name        string
	Fields      map[string]*Field
	order       []string // field names, sorted — deterministic iteration
	Into        func(map[string]any) (any, error)
	fingerprint string
}

// Fingerprint returns the content hash Generate cached s under, letting
// callers build shape-keyed caches of their own (e.g. the step-limit
// estimator) without re-hashing the schema definition.
func (s *Schema) Fingerprint() string { return s.fingerprint }

var (
	cacheMu sync.Mutex
	cache   *lru.Cache[string, *Schema]
)

func init() {
	c, err := lru.New[string, *Schema](4096)
	if err != nil {
		panic(err) // only fails for a non-positive size, which is a programmer error
	}
	cache = c
}

// Generate compiles a Spec into a Schema. It is pure and idempotent:
// generating the same Spec shape twice returns byte-for-byte identical
// compiled output, and the process-wide cache (keyed by a content
// fingerprint of the shape, not by pointer identity) means the second call
// never re-walks the spec.
func Generate(spec *Spec) (*Schema, error) {
	fp := fingerprint(spec)

	cacheMu.Lock()
	if s, ok := cache.Get(fp); ok {
		cacheMu.Unlock()
		return s, nil
	}
	cacheMu.Unlock()

	s, err := compile(spec, fp)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	// Another goroutine may have won the race; first writer's result wins,
	// duplicate compiles are harmless and simply discarded here.
	if existing, ok := cache.Get(fp); ok {
		cacheMu.Unlock()
		return existing, nil
	}
	cache.Add(fp, s)
	cacheMu.Unlock()

	return s, nil
}

func compile(spec *Spec, fp string) (*Schema, error) {
	s := &Schema{
		Name:        spec.Name,
		Fields:      make(map[string]*Field, len(spec.Fields)),
		Into:        spec.Into,
		fingerprint: fp,
	}
	for name, fs := range spec.Fields {
		f, err := compileField(fs)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		s.Fields[name] = f
		s.order = append(s.order, name)
	}
	sort.Strings(s.order)
	return s, nil
}

func compileField(fs *FieldSpec) (*Field, error) {
	f := &Field{
		Kind:     fs.Kind,
		Required: fs.Required,
		Nullable: fs.Nullable,
		Default:  fs.Default,
	}
	switch fs.Kind {
	case KindPrimitive, KindAny:
		if fs.Codec == nil {
			return nil, fmt.Errorf("primitive field missing codec")
		}
		f.codec = fs.Codec
	case KindList, KindMap:
		if fs.Element == nil {
			return nil, fmt.Errorf("list/map field missing element descriptor")
		}
		el, err := compileField(fs.Element)
		if err != nil {
			return nil, fmt.Errorf("element: %w", err)
		}
		f.Element = el
	case KindEnum:
		if len(fs.Enum) == 0 {
			return nil, fmt.Errorf("enum field must declare at least one symbol")
		}
		f.Enum = make(map[Symbol]struct{}, len(fs.Enum))
		for _, sym := range fs.Enum {
			f.Enum[sym] = struct{}{}
		}
	case KindVariant:
		if fs.Discriminator == "" {
			return nil, fmt.Errorf("variant field missing discriminator")
		}
		if len(fs.Branches) == 0 {
			return nil, fmt.Errorf("variant field must declare at least one branch")
		}
		f.Discriminator = fs.Discriminator
		f.Branches = make(map[string]*Field, len(fs.Branches))
		for key, branch := range fs.Branches {
			bf, err := compileField(branch)
			if err != nil {
				return nil, fmt.Errorf("branch %q: %w", key, err)
			}
			f.Branches[key] = bf
		}
	case KindNested:
		if fs.Nested == nil {
			return nil, fmt.Errorf("nested field missing schema spec")
		}
		nested, err := Generate(fs.Nested)
		if err != nil {
			return nil, err
		}
		f.Nested = nested
	default:
		return nil, fmt.Errorf("unknown field kind %d", fs.Kind)
	}
	return f, nil
}

// fingerprint computes a deterministic content hash of a Spec's shape so
// that structurally identical specs (built from different call sites) share
// one cache entry. Codecs are identified by Name rather than by pointer, and
// a default contributes only whether it is set, not its value. Into is
// identified by its function's code pointer, so specs with different Into
// functions never share a compiled Schema.
func fingerprint(spec *Spec) string {
	var b strings.Builder
	writeSpec(&b, spec)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeSpec(b *strings.Builder, spec *Spec) {
	b.WriteString("spec{")
	b.WriteString(spec.Name)
	fmt.Fprintf(b, "|into=%p", spec.Into)
	names := make([]string, 0, len(spec.Fields))
	for n := range spec.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		b.WriteString("|")
		b.WriteString(n)
		b.WriteString(":")
		writeField(b, spec.Fields[n])
	}
	b.WriteString("}")
}

func writeField(b *strings.Builder, fs *FieldSpec) {
	fmt.Fprintf(b, "k%d,r%v,n%v,d%v", fs.Kind, fs.Required, fs.Nullable, fs.Default != nil)
	switch fs.Kind {
	case KindPrimitive, KindAny:
		if fs.Codec != nil {
			b.WriteString(",c=")
			b.WriteString(fs.Codec.Name())
		}
	case KindList, KindMap:
		b.WriteString(",e=[")
		if fs.Element != nil {
			writeField(b, fs.Element)
		}
		b.WriteString("]")
	case KindEnum:
		syms := make([]string, 0, len(fs.Enum))
		for _, s := range fs.Enum {
			syms = append(syms, string(s))
		}
		sort.Strings(syms)
		b.WriteString(",enum=")
		b.WriteString(strings.Join(syms, ","))
	case KindVariant:
		b.WriteString(",disc=")
		b.WriteString(fs.Discriminator)
		keys := make([]string, 0, len(fs.Branches))
		for k := range fs.Branches {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(",branch:")
			b.WriteString(k)
			b.WriteString("=")
			writeField(b, fs.Branches[k])
		}
	case KindNested:
		if fs.Nested != nil {
			b.WriteString(",nested=")
			writeSpec(b, fs.Nested)
		}
	}
}
