package wire

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	eoaPattern = regexp.MustCompile(`^hx[0-9a-fA-F]{40}$`)
	scorePattern = regexp.MustCompile(`^cx[0-9a-fA-F]{40}$`)
)

// EOA is the codec for an externally-owned-account address: "hx" followed
// by 40 lowercase hex characters. Load and Dump both accept hex digits in
// either case and produce the lowercase form.
func EOA() Codec {
	return &funcCodec{
		name: "eoa",
		load: func(w any) (any, error) { return loadAddress("eoa", eoaPattern, w) },
		dump: func(v any) (any, error) { return dumpAddress("eoa", eoaPattern, v) },
	}
}

// SCORE is the codec for a smart-contract address: "cx" followed by 40
// lowercase hex characters.
func SCORE() Codec {
	return &funcCodec{
		name: "score",
		load: func(w any) (any, error) { return loadAddress("score", scorePattern, w) },
		dump: func(v any) (any, error) { return dumpAddress("score", scorePattern, v) },
	}
}

// Address is the sum type accepting either an EOA or a SCORE address.
func Address() Codec {
	return &funcCodec{
		name: "address",
		load: func(w any) (any, error) {
			if v, err := loadAddress("address", eoaPattern, w); err == nil {
				return v, nil
			}
			return loadAddress("address", scorePattern, w)
		},
		dump: func(v any) (any, error) {
			if w, err := dumpAddress("address", eoaPattern, v); err == nil {
				return w, nil
			}
			return dumpAddress("address", scorePattern, v)
		},
	}
}

func loadAddress(name string, pattern *regexp.Regexp, w any) (any, error) {
	s, ok := w.(string)
	if !ok || !pattern.MatchString(s) {
		return nil, invalid(name, w, fmt.Errorf("expected %s address", name))
	}
	return strings.ToLower(s), nil
}

func dumpAddress(name string, pattern *regexp.Regexp, v any) (any, error) {
	s, ok := v.(string)
	if !ok || !pattern.MatchString(s) {
		return nil, invalid(name, v, fmt.Errorf("expected %s address", name))
	}
	return strings.ToLower(s), nil
}
