package subscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/alexdesousa/icon-sub001/internal/identity"
	"github.com/alexdesousa/icon-sub001/internal/rpcclient"
	"github.com/alexdesousa/icon-sub001/internal/stream"
	"github.com/alexdesousa/icon-sub001/internal/wire"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Dialer abstracts the transport so tests can drive the state machine
// without a real socket, the same seam the rpcclient package uses for its
// own HTTP transport.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is the minimal surface Subscriber needs from a WebSocket
// connection.
type Conn interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// wsDialer is the default Dialer, backed by coder/websocket.
type wsDialer struct{}

func (wsDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("subscribe: dial %s: %w", url, err)
	}
	return &wsConnAdapter{conn: conn}, nil
}

type wsConnAdapter struct {
	conn *websocket.Conn
}

func (c *wsConnAdapter) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConnAdapter) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	return data, err
}

func (c *wsConnAdapter) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "done")
}

// Subscriber drives one subscription's state machine: connect, upgrade,
// resolve the starting height, send the subscription frame, then consume
// notifications into a stream.Buffer until stopped or backed off into a
// reconnect.
type Subscriber struct {
	descriptor Descriptor
	identity   *identity.Identity
	rpc        *rpcclient.Client
	resolver   Resolver
	dialer     Dialer
	backoffCfg BackoffConfig
	logger     *slog.Logger

	buffer *stream.Buffer
	state  *stateTracker

	connMu sync.Mutex
	conn   Conn

	stopCh chan struct{}
	doneCh chan struct{}
	rnd    *rand.Rand
}

// setConn records the currently active connection so Stop can close it to
// unblock a pending Read.
func (s *Subscriber) setConn(c Conn) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.conn = c
}

func (s *Subscriber) closeConn() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// New creates a Subscriber for descriptor, bound to id's node and signing
// identity. rpc is used both for the resolver's follow-up RPC calls and to
// fetch the latest height when descriptor.FromHeight is the latest
// sentinel.
func New(descriptor Descriptor, id *identity.Identity, rpc *rpcclient.Client, logger *slog.Logger) *Subscriber {
	descriptor = descriptor.WithDefaults()
	return &Subscriber{
		descriptor: descriptor,
		identity:   id,
		rpc:        rpc,
		resolver:   &ClientResolver{Client: rpc, Identity: id},
		dialer:     wsDialer{},
		backoffCfg: BackoffConfig{},
		logger:     logger.With("component", "subscribe"),
		buffer:     stream.New(descriptor.MaxBufferSize),
		state:      newStateTracker(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		rnd:        rand.New(rand.NewSource(1)),
	}
}

// WithDialer overrides the transport, for tests.
func (s *Subscriber) WithDialer(d Dialer) *Subscriber {
	s.dialer = d
	return s
}

// WithResolver overrides the notification resolver, for tests.
func (s *Subscriber) WithResolver(r Resolver) *Subscriber {
	s.resolver = r
	return s
}

// Status returns the subscriber's current lifecycle state.
func (s *Subscriber) Status() Status { return s.state.Status() }

// Buffer returns the underlying stream buffer notifications are pushed
// into; callers pop from it to consume the subscription.
func (s *Subscriber) Buffer() *stream.Buffer { return s.buffer }

// Start runs the subscriber's state machine until ctx is cancelled or Stop
// is called. It blocks; callers typically run it in a goroutine.
func (s *Subscriber) Start(ctx context.Context) {
	defer close(s.doneCh)
	for {
		select {
		case <-ctx.Done():
			s.state.set(StatusTerminating)
			return
		case <-s.stopCh:
			s.state.set(StatusTerminating)
			return
		default:
		}

		if err := s.runOnce(ctx); err != nil {
			s.logger.Warn("subscription cycle ended", "error", err)
			retries := s.state.recordFailure()
			if !s.backoff(ctx, retries) {
				s.state.set(StatusTerminating)
				return
			}
			continue
		}
		// runOnce only returns nil when ctx/stop fired mid-consumption.
		s.state.set(StatusTerminating)
		return
	}
}

// Stop requests termination and waits for the producer to reach
// terminating.
func (s *Subscriber) Stop() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.closeConn()
	<-s.doneCh
}

func (s *Subscriber) backoff(ctx context.Context, retries int) bool {
	ms := ComputeBackoff(s.backoffCfg, retries, s.rnd)
	s.state.setBackoff(ms)
	s.state.set(StatusConnecting)
	if ms == 0 {
		return true
	}
	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-s.stopCh:
		return false
	}
}

// runOnce drives one connecting->consuming lifecycle; it returns an error
// to trigger backoff, or nil when it exited cleanly via ctx/stop. Every
// cycle gets its own correlation id so debug logs for a reconnect attempt
// can be told apart from the one before it.
func (s *Subscriber) runOnce(ctx context.Context) error {
	cycleLogger := s.logger.With("correlation_id", uuid.NewString())

	s.state.set(StatusConnecting)
	url, err := s.identity.SubscriptionURL(string(s.descriptor.Source))
	if err != nil {
		return fmt.Errorf("subscribe: resolve url: %w", err)
	}
	cycleLogger.Debug("subscription cycle starting", "url", url, "source", s.descriptor.Source)

	s.state.set(StatusUpgrading)
	conn, err := s.dialer.Dial(ctx, url)
	if err != nil {
		return err
	}
	s.setConn(conn)
	defer s.closeConn()

	s.state.set(StatusInitializing)
	height := s.descriptor.FromHeight
	if height == FromLatest() {
		h, err := s.fetchLatestHeight(ctx)
		if err != nil {
			return fmt.Errorf("subscribe: fetch latest height: %w", err)
		}
		height = h
	}
	s.buffer.ObserveHeight(uint64(height))

	s.state.set(StatusSettingUp)
	frame, err := BuildFrame(s.descriptor, height)
	if err != nil {
		return fmt.Errorf("subscribe: build frame: %w", err)
	}
	body, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("subscribe: marshal frame: %w", err)
	}
	if err := conn.Write(ctx, body); err != nil {
		return fmt.Errorf("subscribe: write frame: %w", err)
	}

	ack, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: read ack: %w", err)
	}
	if _, kind, err := classify(ack); err != nil {
		return err
	} else if kind == frameServerError {
		var f rawFrame
		_ = json.Unmarshal(ack, &f)
		return fmt.Errorf("subscribe: subscription rejected: %s", f.Message)
	}

	s.state.set(StatusConsuming)
	return s.consume(ctx, conn, cycleLogger)
}

func (s *Subscriber) consume(ctx context.Context, conn Conn, cycleLogger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stopCh:
			return nil
		default:
		}

		if s.buffer.IsFull() {
			s.state.set(StatusWaiting)
			if !s.waitForSpace(ctx) {
				return nil
			}
			s.state.set(StatusConsuming)
		}

		payload, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("subscribe: read frame: %w", err)
		}
		cycleLogger.Debug("received subscription frame", "bytes", len(payload))

		items, height, err := Decode(ctx, s.resolver, s.descriptor.Source, payload)
		if height > 0 {
			s.buffer.ObserveHeight(height)
		}
		if err != nil {
			return fmt.Errorf("subscribe: decode frame: %w", err)
		}
		if items != nil {
			s.buffer.Put(items)
		}
	}
}

// waitForSpace polls until the buffer has room, or ctx/stop fires. The
// state machine spec expresses consuming<->waiting purely as backpressure
// on reading further frames; polling here is the producer-side half of
// that, since Conn has no way to pause the transport itself.
func (s *Subscriber) waitForSpace(ctx context.Context) bool {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if !s.buffer.IsFull() {
			return true
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return false
		case <-s.stopCh:
			return false
		}
	}
}

func (s *Subscriber) fetchLatestHeight(ctx context.Context) (int64, error) {
	req, err := rpcclient.Build("icx_getLastBlock", nil, rpcclient.Options{Identity: s.identity})
	if err != nil {
		return 0, err
	}
	result, err := s.rpc.Send(ctx, req)
	if err != nil {
		return 0, err
	}
	m, ok := result.(map[string]any)
	if !ok {
		return 0, fmt.Errorf("subscribe: last block result has unexpected shape %T", result)
	}
	heightWire, ok := m["height"]
	if !ok {
		return 0, fmt.Errorf("subscribe: last block result missing height")
	}
	height, err := wire.Integer(wire.NonNegInt).Load(heightWire)
	if err != nil {
		return 0, fmt.Errorf("subscribe: parse last block height: %w", err)
	}
	return height.(int64), nil
}
