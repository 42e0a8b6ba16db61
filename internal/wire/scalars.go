package wire

import (
	"encoding/base64"
	"fmt"
	"math/big"
	"time"
)

// Boolean is the codec for the node's hex-flag booleans: "0x0"/"0x1" on the
// wire. Load also accepts 0/1 (number or string) and a native bool.
func Boolean() Codec {
	return &funcCodec{
		name: "bool",
		load: func(w any) (any, error) {
			switch t := w.(type) {
			case bool:
				return t, nil
			case string:
				switch t {
				case "0x1", "1":
					return true, nil
				case "0x0", "0":
					return false, nil
				}
			case float64:
				if t == 1 {
					return true, nil
				}
				if t == 0 {
					return false, nil
				}
			case int:
				if t == 1 {
					return true, nil
				}
				if t == 0 {
					return false, nil
				}
			}
			return nil, invalid("bool", w, fmt.Errorf("expected boolean flag"))
		},
		dump: func(v any) (any, error) {
			b, ok := v.(bool)
			if !ok {
				return nil, invalid("bool", v, fmt.Errorf("expected bool"))
			}
			if b {
				return "0x1", nil
			}
			return "0x0", nil
		},
	}
}

// String is the identity-shaped codec for UTF-8 strings.
func String() Codec {
	return &funcCodec{
		name: "str",
		load: func(w any) (any, error) {
			s, ok := w.(string)
			if !ok {
				return nil, invalid("str", w, fmt.Errorf("expected string"))
			}
			return s, nil
		},
		dump: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, invalid("str", v, fmt.Errorf("expected string"))
			}
			return s, nil
		},
	}
}

// Signature is the codec for a base64-encoded recoverable signature. The
// typed value is the base64 string itself; the codec only validates that it
// decodes successfully.
func Signature() Codec {
	return &funcCodec{
		name: "signature",
		load: func(w any) (any, error) { return loadSignature(w) },
		dump: func(v any) (any, error) { return loadSignature(v) },
	}
}

func loadSignature(w any) (any, error) {
	s, ok := w.(string)
	if !ok {
		return nil, invalid("signature", w, fmt.Errorf("expected base64 string"))
	}
	if _, err := base64.StdEncoding.DecodeString(s); err != nil {
		return nil, invalid("signature", w, err)
	}
	return s, nil
}

// Timestamp is the codec for signed-integer microseconds since the Unix
// epoch, represented as time.Time in Go.
func Timestamp() Codec {
	return &funcCodec{
		name: "timestamp",
		load: func(w any) (any, error) {
			n, err := parseInteger(w)
			if err != nil {
				return nil, invalid("timestamp", w, err)
			}
			if !n.IsInt64() {
				return nil, invalid("timestamp", w, fmt.Errorf("value exceeds int64 range"))
			}
			return time.UnixMicro(n.Int64()).UTC(), nil
		},
		dump: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, invalid("timestamp", v, fmt.Errorf("expected time.Time"))
			}
			return encodeHexInt(big.NewInt(t.UnixMicro())), nil
		},
	}
}
