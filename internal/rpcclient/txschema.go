package rpcclient

import (
	"time"

	"github.com/alexdesousa/icon-sub001/internal/schema"
	"github.com/alexdesousa/icon-sub001/internal/wire"
)

// TransactionSchema compiles and returns the canonical field set for
// icx_sendTransaction / icx_sendTransactionAndWait params (§6). The data
// field's inner shape varies by dataType (call/deploy/message/deposit) far
// more than the node's other records, so it is kept as a passthrough: the
// canonical serializer only needs the dumped wire map, not a fully typed
// nested record, to produce a correct signing string.
func TransactionSchema() (*schema.Schema, error) {
	return schema.Generate(&schema.Spec{
		Name: "transaction_params",
		Fields: map[string]*schema.FieldSpec{
			"version":   {Kind: schema.KindPrimitive, Codec: wire.Integer(wire.NonNegInt), Required: true, Default: int64(3)},
			"from":      {Kind: schema.KindPrimitive, Codec: wire.EOA(), Required: true},
			"to":        {Kind: schema.KindPrimitive, Codec: wire.Address(), Required: true},
			"value":     {Kind: schema.KindPrimitive, Codec: wire.Loop(), Required: false},
			// Not required at the schema level: the step-limit estimator
			// dumps a copy of the params with stepLimit stripped to request
			// an estimate, and that call must still serialize cleanly.
			"stepLimit": {Kind: schema.KindPrimitive, Codec: wire.Integer(wire.NonNegInt), Required: false},
			"timestamp": {Kind: schema.KindPrimitive, Codec: wire.Timestamp(), Required: true, Default: func() any { return time.Now() }},
			"nid":       {Kind: schema.KindPrimitive, Codec: wire.Integer(wire.NonNegInt), Required: true},
			"nonce":     {Kind: schema.KindPrimitive, Codec: wire.Integer(wire.NonNegInt), Required: false},
			"signature": {Kind: schema.KindPrimitive, Codec: wire.Signature(), Required: false},
			"dataType":  {Kind: schema.KindEnum, Required: false, Enum: []schema.Symbol{"call", "deploy", "message", "deposit"}},
			"data":      {Kind: schema.KindAny, Codec: wire.Any, Required: false},
		},
	})
}

// BuildTransactionParams fills in the fields a caller shouldn't have to
// supply by hand: version defaults to 3, nid comes from the identity's
// network id, and timestamp defaults to now (microsecond precision) unless
// already set.
func BuildTransactionParams(params map[string]any, networkID int64) map[string]any {
	out := make(map[string]any, len(params)+3)
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out["version"]; !ok {
		out["version"] = int64(3)
	}
	if _, ok := out["nid"]; !ok {
		out["nid"] = networkID
	}
	if _, ok := out["timestamp"]; !ok {
		out["timestamp"] = time.Now()
	}
	return out
}
