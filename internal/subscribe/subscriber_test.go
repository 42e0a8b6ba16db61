package subscribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alexdesousa/icon-sub001/internal/identity"
	"github.com/alexdesousa/icon-sub001/internal/rpcclient"
)

type fakeConn struct {
	mu       sync.Mutex
	written  [][]byte
	toRead   [][]byte
	readIdx  int
	closed   bool
	closedCh chan struct{}
	once     sync.Once
}

func newFakeConn(toRead [][]byte) *fakeConn {
	return &fakeConn{toRead: toRead, closedCh: make(chan struct{})}
}

func (c *fakeConn) Write(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if c.readIdx < len(c.toRead) {
		data := c.toRead[c.readIdx]
		c.readIdx++
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closedCh:
		return nil, fmt.Errorf("connection closed")
	}
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.once.Do(func() { close(c.closedCh) })
	return nil
}

type fakeDialer struct {
	conn *fakeConn
	err  error
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (Conn, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.conn, nil
}

func testSubID(t *testing.T) *identity.Identity {
	t.Helper()
	id, err := identity.New(identity.WithNodeURL("https://node.example"))
	if err != nil {
		t.Fatalf("identity.New: %v", err)
	}
	return id
}

func TestSubscriberConsumesNotificationsIntoBuffer(t *testing.T) {
	conn := newFakeConn([][]byte{
		[]byte(`{"code":0}`),
		mustJSON(map[string]any{"height": "0xa", "hash": "0xabc"}),
	})
	dialer := &fakeDialer{conn: conn}
	id := testSubID(t)
	rpc := rpcclient.NewClient(testSubLogger())

	s := New(Descriptor{Source: SourceBlock, MaxBufferSize: 10, FromHeight: 9}, id, rpc, testSubLogger()).
		WithDialer(dialer).
		WithResolver(&fakeResolver{})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(400 * time.Millisecond)
	for s.Buffer().Size() == 0 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for a notification to reach the buffer")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if got := s.Buffer().Size(); got != 1 {
		t.Fatalf("expected one tick item buffered, got %d", got)
	}
	cancel()
	<-done
}

func TestSubscriberStopIsSynchronous(t *testing.T) {
	conn := newFakeConn([][]byte{[]byte(`{"code":0}`)})
	dialer := &fakeDialer{conn: conn}
	id := testSubID(t)
	rpc := rpcclient.NewClient(testSubLogger())

	s := New(Descriptor{Source: SourceBlock, MaxBufferSize: 10, FromHeight: 1}, id, rpc, testSubLogger()).
		WithDialer(dialer).
		WithResolver(&fakeResolver{})

	go s.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	s.Stop()
	if s.Status() != StatusTerminating {
		t.Fatalf("expected status terminating after Stop returns, got %s", s.Status())
	}
}

func TestSubscriberDialFailureTriggersBackoffThenTerminatesOnCancel(t *testing.T) {
	dialer := &fakeDialer{err: fmt.Errorf("connection refused")}
	id := testSubID(t)
	rpc := rpcclient.NewClient(testSubLogger())

	s := New(Descriptor{Source: SourceBlock, MaxBufferSize: 10, FromHeight: 1}, id, rpc, testSubLogger()).WithDialer(dialer)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	<-done

	if s.Status() != StatusTerminating {
		t.Fatalf("expected status terminating after ctx cancellation mid-backoff, got %s", s.Status())
	}
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

func testSubLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
