package rpcclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
)

type fakeCaller struct {
	calls     int
	responses []responseEnvelope
}

func (f *fakeCaller) Call(ctx context.Context, url string, timeoutMs int64, req envelope) (*responseEnvelope, error) {
	resp := f.responses[f.calls]
	f.calls++
	return &resp, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawResult(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func TestClientSendDecodesResult(t *testing.T) {
	caller := &fakeCaller{responses: []responseEnvelope{
		{JSONRPC: "2.0", ID: 1, Result: rawResult(map[string]any{"height": "0x2a"})},
	}}
	c := NewClientWithCaller(testLogger(), caller)

	id := testIdentity(t)
	req, err := Build("icx_getLastBlock", nil, Options{Identity: id})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	result, err := c.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	if m["height"] != "0x2a" {
		t.Fatalf("unexpected height: %v", m["height"])
	}
}

func TestClientSendSurfacesNodeError(t *testing.T) {
	caller := &fakeCaller{responses: []responseEnvelope{
		{JSONRPC: "2.0", ID: 1, Error: &rawError{Code: -32602, Message: "invalid params"}},
	}}
	c := NewClientWithCaller(testLogger(), caller)

	id := testIdentity(t)
	req, err := Build("icx_getBalance", map[string]any{"address": "hx0"}, Options{Identity: id})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, err = c.Send(context.Background(), req)
	if err == nil {
		t.Fatalf("expected node error to surface")
	}
}
