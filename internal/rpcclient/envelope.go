// Package rpcclient builds, signs, estimates and sends JSON-RPC requests
// against the node, following the teacher's RPCCaller interface-seam
// pattern (internal/clawchain/proxy.go): a small interface abstracts the
// HTTP transport so tests inject a fake instead of hitting the network.
package rpcclient

import (
	"sync"
	"time"

	"github.com/alexdesousa/icon-sub001/internal/identity"
	"github.com/alexdesousa/icon-sub001/internal/schema"
)

// Request is one JSON-RPC call bound to an identity, optionally carrying a
// schema for its params (required to Serialize/Sign a transaction).
type Request struct {
	ID      int64
	Method  string
	Params  map[string]any
	Options Options
}

// Options carries everything Build needs besides the method and params.
type Options struct {
	Identity  *identity.Identity
	Schema    *schema.Schema
	TimeoutMs int64
	URL       string
}

var (
	idMu   sync.Mutex
	lastID int64
)

// nextID returns a strictly increasing id derived from wall-clock
// nanoseconds, falling back to lastID+1 when two calls land in the same
// tick — the node only requires monotonicity, not real timestamps.
func nextID() int64 {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixNano()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return now
}

// Build constructs a Request: id is a monotone timestamp, the URL is
// derived from the identity's debug flag, and the schema (if any) travels
// with the request so Serialize/Sign can dump params against it later.
func Build(method string, params map[string]any, opts Options) (*Request, error) {
	if opts.Identity == nil {
		return nil, errInvalidRequest("rpcclient: Build requires an Options.Identity")
	}
	if params == nil {
		params = map[string]any{}
	}
	url := opts.URL
	if url == "" {
		url = opts.Identity.RequestURL()
	}
	return &Request{
		ID:     nextID(),
		Method: method,
		Params: params,
		Options: Options{
			Identity:  opts.Identity,
			Schema:    opts.Schema,
			TimeoutMs: opts.TimeoutMs,
			URL:       url,
		},
	}, nil
}

// IsTransactionMethod reports whether method is one of the two methods
// Serialize/Sign operate on.
func IsTransactionMethod(method string) bool {
	return method == "icx_sendTransaction" || method == "icx_sendTransactionAndWait"
}
