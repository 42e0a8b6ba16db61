package wire

import (
	"fmt"
	"math/big"
	"strings"
)

// IntRange restricts an Integer codec to a sign class. Unrestricted is the
// plain signed integer.
type IntRange int

const (
	AnyInt IntRange = iota
	NonNegInt
	PositiveInt
	NegativeInt
	NonPosInt
)

// Integer returns the codec for a signed integer wire primitive, optionally
// range-restricted (Non-neg / pos / neg / non-pos per the spec's table).
// The unrestricted form (AnyInt) — and Loop, its currency-unit alias — load
// and dump a *big.Int, since loop amounts (1 ICX = 10^18 loop) and values
// like total supply routinely exceed int64. The range-restricted forms are
// protocol-bounded fields (version, nid, nonce, stepLimit, heights, indexes)
// that always fit an int64, so they load/dump as plain int64 for callers'
// convenience; a value that doesn't fit is an error, never a silent
// truncation.
func Integer(r IntRange) Codec {
	name := "integer"
	switch r {
	case NonNegInt:
		name = "non_neg_integer"
	case PositiveInt:
		name = "positive_integer"
	case NegativeInt:
		name = "negative_integer"
	case NonPosInt:
		name = "non_pos_integer"
	}
	return &funcCodec{
		name: name,
		load: func(w any) (any, error) { return loadInteger(name, r, w) },
		dump: func(v any) (any, error) { return dumpInteger(name, r, v) },
	}
}

// Loop is the currency-unit alias of the unrestricted Integer codec.
func Loop() Codec {
	return &funcCodec{
		name: "loop",
		load: func(w any) (any, error) { return loadInteger("loop", AnyInt, w) },
		dump: func(v any) (any, error) { return dumpInteger("loop", AnyInt, v) },
	}
}

func loadInteger(name string, r IntRange, w any) (any, error) {
	n, err := parseInteger(w)
	if err != nil {
		return nil, invalid(name, w, err)
	}
	if !inRange(r, n) {
		return nil, invalid(name, w, fmt.Errorf("out of range for %s", name))
	}
	if r == AnyInt {
		return n, nil
	}
	if !n.IsInt64() {
		return nil, invalid(name, w, fmt.Errorf("value exceeds int64 range for %s", name))
	}
	return n.Int64(), nil
}

func dumpInteger(name string, r IntRange, v any) (any, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, invalid(name, v, err)
	}
	if !inRange(r, n) {
		return nil, invalid(name, v, fmt.Errorf("out of range for %s", name))
	}
	return encodeHexInt(n), nil
}

func inRange(r IntRange, n *big.Int) bool {
	switch r {
	case NonNegInt:
		return n.Sign() >= 0
	case PositiveInt:
		return n.Sign() > 0
	case NegativeInt:
		return n.Sign() < 0
	case NonPosInt:
		return n.Sign() <= 0
	default:
		return true
	}
}

// encodeHexInt renders n as "0x" + lowercase hex of its absolute value,
// prefixed with "-" when negative — the only form Dump ever produces.
func encodeHexInt(n *big.Int) string {
	if n.Sign() < 0 {
		return "-0x" + new(big.Int).Abs(n).Text(16)
	}
	return "0x" + n.Text(16)
}

// parseInteger accepts every numeric encoding the node's source tolerates
// on load: a native JSON number, a decimal string, or a "0x"/"-0x"-prefixed
// hex string in any case, in each case at arbitrary precision.
func parseInteger(w any) (*big.Int, error) {
	switch t := w.(type) {
	case int64:
		return big.NewInt(t), nil
	case int:
		return big.NewInt(int64(t)), nil
	case float64:
		n, _ := big.NewFloat(t).Int(nil)
		return n, nil
	case *big.Int:
		return new(big.Int).Set(t), nil
	case string:
		return parseIntegerString(t)
	default:
		return nil, fmt.Errorf("unsupported integer representation %T", w)
	}
}

func parseIntegerString(s string) (*big.Int, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	n := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, ok = n.SetString(s[2:], 16)
	} else {
		n, ok = n.SetString(s, 10)
	}
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// toBigInt coerces a typed Go value into a *big.Int for Dump. Values a
// caller would plausibly set on a params map: a literal int64/int, a
// *big.Int for amounts too large for int64, or a float64 from a
// round-tripped decoded-JSON value.
func toBigInt(v any) (*big.Int, error) {
	switch t := v.(type) {
	case *big.Int:
		return new(big.Int).Set(t), nil
	case int64:
		return big.NewInt(t), nil
	case int:
		return big.NewInt(int64(t)), nil
	case float64:
		n, _ := big.NewFloat(t).Int(nil)
		return n, nil
	default:
		return nil, fmt.Errorf("not an integer")
	}
}
