package rpcclient

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexdesousa/icon-sub001/internal/schema"
)

func dumpParams(req *Request) (map[string]any, error) {
	dumped, err := schema.Dump(req.Options.Schema, req.Params)
	if err != nil {
		return nil, err
	}
	return dumped, nil
}

const serializePrefix = "icx_sendTransaction."

// Serialize produces the canonical string used to compute a transaction's
// signing digest. It is only valid for icx_sendTransaction and
// icx_sendTransactionAndWait; every other method fails invalid_params. The
// params map is first dumped through the request's schema so the canonical
// string encodes wire forms, never typed values.
func Serialize(req *Request) (string, error) {
	if !IsTransactionMethod(req.Method) {
		return "", errInvalidParams(fmt.Sprintf("rpcclient: Serialize is only valid for transaction methods, got %q", req.Method))
	}
	if req.Options.Schema == nil {
		return "", errInvalidParams("rpcclient: Serialize requires a schema to dump params against")
	}

	dumped, err := dumpParams(req)
	if err != nil {
		return "", errInvalidParams(fmt.Sprintf("rpcclient: dump params: %v", err))
	}

	var b strings.Builder
	b.WriteString(serializePrefix)
	encodeMap(&b, dumped)
	return b.String(), nil
}

func encodeValue(b *strings.Builder, v any) {
	switch t := v.(type) {
	case nil:
		b.WriteString(`\0`)
	case map[string]any:
		b.WriteString("{")
		encodeMap(b, t)
		b.WriteString("}")
	case []any:
		b.WriteString("[")
		encodeList(b, t)
		b.WriteString("]")
	default:
		b.WriteString(escapeScalar(fmt.Sprint(t)))
	}
}

// encodeMap sorts keys ascending, drops "signature", and joins "k.<enc(v)>"
// pairs with ".".
func encodeMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(".")
		}
		b.WriteString(escapeScalar(k))
		b.WriteString(".")
		encodeValue(b, m[k])
	}
}

func encodeList(b *strings.Builder, items []any) {
	for i, item := range items {
		if i > 0 {
			b.WriteString(".")
		}
		encodeValue(b, item)
	}
}

var scalarEscapes = strings.NewReplacer(
	`\`, `\\`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`.`, `\.`,
)

func escapeScalar(s string) string {
	return scalarEscapes.Replace(s)
}
