// Package icon is the public surface of this module: construct an
// Identity, send JSON-RPC calls against the node, and drive a reconnecting
// WebSocket subscription. Everything else lives under internal/ per the
// convention of keeping implementation packages unexported and root-level
// files thin.
package icon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexdesousa/icon-sub001/internal/identity"
	"github.com/alexdesousa/icon-sub001/internal/rpcclient"
	"github.com/alexdesousa/icon-sub001/internal/schema"
	"github.com/alexdesousa/icon-sub001/internal/stream"
	"github.com/alexdesousa/icon-sub001/internal/subscribe"
)

// Identity holds the node URL, network id, debug flag and optional signing
// key a Client binds every call to.
type Identity = identity.Identity

// IdentityOption configures an Identity at construction time.
type IdentityOption = identity.Option

// Re-exported identity constructors; see package identity for details.
var (
	NewIdentity          = identity.New
	WithNetwork          = identity.WithNetwork
	WithNetworkID        = identity.WithNetworkID
	WithNodeURL          = identity.WithNodeURL
	WithDebug            = identity.WithDebug
	WithPrivateKey       = identity.WithPrivateKey
	WithNodeURLOverrides = identity.WithNodeURLOverrides
	WithConfigFile       = identity.WithConfigFile
)

// readMethods is the closed set of read-only RPC methods Call accepts:
// every supported method except the two transaction-sending ones, which go
// through SendTransaction so their params always carry a schema, a
// step-limit estimate, and a signature. Call also accepts the debug
// step-estimation method, which is not listed here.
var readMethods = map[string]bool{
	"icx_getLastBlock":          true,
	"icx_getBlockByHeight":      true,
	"icx_getBlockByHash":        true,
	"icx_getBalance":            true,
	"icx_getScoreApi":           true,
	"icx_call":                  true,
	"icx_getTotalSupply":        true,
	"icx_getTransactionResult":  true,
	"icx_getTransactionByHash":  true,
	"icx_waitTransactionResult": true,
}

// Client sends JSON-RPC calls against a single node, bound to one Identity.
type Client struct {
	identity *identity.Identity
	rpc      *rpcclient.Client
	txSchema *schema.Schema
	logger   *slog.Logger
}

// NewClient builds a Client bound to id, logging through logger. The
// transaction-params schema is compiled once here so every SendTransaction
// call reuses it.
func NewClient(id *identity.Identity, logger *slog.Logger) (*Client, error) {
	txSchema, err := rpcclient.TransactionSchema()
	if err != nil {
		return nil, fmt.Errorf("icon: compile transaction schema: %w", err)
	}
	return &Client{
		identity: id,
		rpc:      rpcclient.NewClient(logger),
		txSchema: txSchema,
		logger:   logger.With("component", "icon"),
	}, nil
}

// Call sends one of the node's read-only JSON-RPC methods and returns its
// decoded result. It rejects the two transaction-sending methods; use
// SendTransaction for those.
func (c *Client) Call(ctx context.Context, method string, params map[string]any) (any, error) {
	if rpcclient.IsTransactionMethod(method) {
		return nil, fmt.Errorf("icon: %s must go through SendTransaction, not Call", method)
	}
	if !readMethods[method] && method != "debug_estimateStep" {
		return nil, fmt.Errorf("icon: unsupported method %q", method)
	}
	req, err := rpcclient.Build(method, params, rpcclient.Options{Identity: c.identity})
	if err != nil {
		return nil, err
	}
	return c.rpc.Send(ctx, req)
}

// SendTransaction fills in version/nid/timestamp defaults, estimates
// stepLimit when absent, signs with the identity's private key, and sends
// either icx_sendTransaction or icx_sendTransactionAndWait. wait selects
// which of the two methods is used.
func (c *Client) SendTransaction(ctx context.Context, params map[string]any, wait bool) (any, error) {
	method := "icx_sendTransaction"
	if wait {
		method = "icx_sendTransactionAndWait"
	}

	filled := rpcclient.BuildTransactionParams(params, c.identity.NetworkID())
	req, err := rpcclient.Build(method, filled, rpcclient.Options{Identity: c.identity, Schema: c.txSchema})
	if err != nil {
		return nil, err
	}

	if err := c.rpc.EstimateStepLimit(ctx, req); err != nil {
		return nil, err
	}

	signed, err := rpcclient.Sign(req)
	if err != nil {
		return nil, err
	}

	return c.rpc.Send(ctx, signed)
}

// Subscription is a live WebSocket subscription; call Pop to drain
// delivered items and Stop to tear it down.
type Subscription struct {
	sub *subscribe.Subscriber
}

// SubscriptionDescriptor configures a Subscribe call: source, starting
// height, buffer capacity, and (for an event-source subscription) the
// single event filter to match.
type SubscriptionDescriptor = subscribe.Descriptor

// EventFilter narrows an event-source subscription to one event signature,
// optionally matching specific indexed/data argument values.
type EventFilter = subscribe.EventFilter

const (
	SourceBlock = subscribe.SourceBlock
	SourceEvent = subscribe.SourceEvent
)

// FromLatest is the FromHeight sentinel meaning "start at the chain's
// current height rather than a fixed one".
func FromLatest() int64 { return subscribe.FromLatest() }

// Subscribe starts a reconnecting WebSocket subscription against the
// client's node and returns immediately; the subscription runs in its own
// goroutine until ctx is cancelled or Stop is called.
func (c *Client) Subscribe(ctx context.Context, descriptor SubscriptionDescriptor) (*Subscription, error) {
	if err := descriptor.Validate(); err != nil {
		return nil, err
	}
	sub := subscribe.New(descriptor, c.identity, c.rpc, c.logger)
	go sub.Start(ctx)
	return &Subscription{sub: sub}, nil
}

// Status reports the subscription's current lifecycle state.
func (s *Subscription) Status() subscribe.Status { return s.sub.Status() }

// Pop drains up to n buffered items, oldest first.
func (s *Subscription) Pop(n int) []stream.Item { return s.sub.Buffer().Pop(n) }

// Stop requests termination and waits for the subscription to exit.
func (s *Subscription) Stop() { s.sub.Stop() }
