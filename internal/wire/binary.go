package wire

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Bytes is the codec for binary data: "0x" + even-length lowercase hex on
// the wire, []byte as the typed value. Load also accepts a raw []byte
// passed straight through (used when a caller builds params programmatically
// rather than from decoded JSON).
func Bytes() Codec {
	return &funcCodec{
		name: "bytes",
		load: func(w any) (any, error) {
			switch t := w.(type) {
			case []byte:
				return t, nil
			case string:
				s := strings.TrimPrefix(t, "0x")
				if len(s)%2 != 0 {
					return nil, invalid("bytes", w, fmt.Errorf("odd-length hex"))
				}
				b, err := hex.DecodeString(s)
				if err != nil {
					return nil, invalid("bytes", w, err)
				}
				return b, nil
			default:
				return nil, invalid("bytes", w, fmt.Errorf("unsupported representation %T", w))
			}
		},
		dump: func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, invalid("bytes", v, fmt.Errorf("expected []byte"))
			}
			return "0x" + hex.EncodeToString(b), nil
		},
	}
}
