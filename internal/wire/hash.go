package wire

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	hashPrefixed = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	hashBare     = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)
)

// Hash is the codec for a 32-byte digest: "0x" + 64 lowercase hex chars on
// the wire. Load also accepts a bare 64-hex-char string and adds the
// prefix.
func Hash() Codec {
	return &funcCodec{
		name: "hash",
		load: func(w any) (any, error) {
			s, ok := w.(string)
			if !ok {
				return nil, invalid("hash", w, fmt.Errorf("expected string"))
			}
			switch {
			case hashPrefixed.MatchString(s):
				return strings.ToLower(s), nil
			case hashBare.MatchString(s):
				return "0x" + strings.ToLower(s), nil
			default:
				return nil, invalid("hash", w, fmt.Errorf("expected 32-byte hash"))
			}
		},
		dump: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok || !hashPrefixed.MatchString(s) {
				return nil, invalid("hash", v, fmt.Errorf("expected 32-byte hash"))
			}
			return strings.ToLower(s), nil
		},
	}
}
