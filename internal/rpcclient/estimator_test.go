package rpcclient

import (
	"context"
	"testing"
	"time"
)

type countingEstimateCaller struct {
	estimateCalls int
}

func (c *countingEstimateCaller) Call(ctx context.Context, url string, timeoutMs int64, req envelope) (*responseEnvelope, error) {
	if req.Method == estimateStepMethod {
		c.estimateCalls++
	}
	return &responseEnvelope{JSONRPC: "2.0", ID: req.ID, Result: rawResult("0x186a0")}, nil
}

func TestEstimateStepLimitCachesByShape(t *testing.T) {
	s, err := TransactionSchema()
	if err != nil {
		t.Fatalf("TransactionSchema: %v", err)
	}
	id := testIdentity(t)
	caller := &countingEstimateCaller{}
	c := NewClientWithCaller(testLogger(), caller)

	makeReq := func(value int64) *Request {
		params := map[string]any{
			"from":      "hx2e243ad926ac48d15156756fce28314357d49d83",
			"to":        "hxdd3ead969f0dfb0b72265ca584092a3fb25d27e0",
			"nid":       int64(1),
			"version":   int64(3),
			"timestamp": time.Now(),
			"value":     value,
			"dataType":  "call",
			"data":      map[string]any{"method": "transfer"},
		}
		req, err := Build("icx_sendTransaction", params, Options{Identity: id, Schema: s})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return req
	}

	req1 := makeReq(1)
	if err := c.EstimateStepLimit(context.Background(), req1); err != nil {
		t.Fatalf("EstimateStepLimit 1: %v", err)
	}
	req2 := makeReq(2)
	if err := c.EstimateStepLimit(context.Background(), req2); err != nil {
		t.Fatalf("EstimateStepLimit 2: %v", err)
	}

	if caller.estimateCalls != 1 {
		t.Fatalf("expected exactly one estimate RPC across two shape-identical calls, got %d", caller.estimateCalls)
	}
	if req1.Params["stepLimit"] != req2.Params["stepLimit"] {
		t.Fatalf("expected both requests to receive the cached step limit")
	}
}

func TestEstimateStepLimitNeverCachesDeploy(t *testing.T) {
	s, err := TransactionSchema()
	if err != nil {
		t.Fatalf("TransactionSchema: %v", err)
	}
	id := testIdentity(t)
	caller := &countingEstimateCaller{}
	c := NewClientWithCaller(testLogger(), caller)

	makeReq := func() *Request {
		params := map[string]any{
			"from":      "hx2e243ad926ac48d15156756fce28314357d49d83",
			"to":        "cx0000000000000000000000000000000000000001",
			"nid":       int64(1),
			"version":   int64(3),
			"timestamp": time.Now(),
			"dataType":  "deploy",
			"data":      map[string]any{"content": "0xdeadbeef"},
		}
		req, err := Build("icx_sendTransaction", params, Options{Identity: id, Schema: s})
		if err != nil {
			t.Fatalf("Build: %v", err)
		}
		return req
	}

	if err := c.EstimateStepLimit(context.Background(), makeReq()); err != nil {
		t.Fatalf("EstimateStepLimit 1: %v", err)
	}
	if err := c.EstimateStepLimit(context.Background(), makeReq()); err != nil {
		t.Fatalf("EstimateStepLimit 2: %v", err)
	}

	if caller.estimateCalls != 2 {
		t.Fatalf("expected deploy transactions to never share a cached estimate, got %d calls", caller.estimateCalls)
	}
}

func TestEstimateStepLimitSkipsWhenAlreadySet(t *testing.T) {
	s, err := TransactionSchema()
	if err != nil {
		t.Fatalf("TransactionSchema: %v", err)
	}
	id := testIdentity(t)
	caller := &countingEstimateCaller{}
	c := NewClientWithCaller(testLogger(), caller)

	req, err := Build("icx_sendTransaction", map[string]any{
		"from":      "hx2e243ad926ac48d15156756fce28314357d49d83",
		"nid":       int64(1),
		"version":   int64(3),
		"timestamp": time.Now(),
		"stepLimit": int64(50000),
	}, Options{Identity: id, Schema: s})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if err := c.EstimateStepLimit(context.Background(), req); err != nil {
		t.Fatalf("EstimateStepLimit: %v", err)
	}
	if caller.estimateCalls != 0 {
		t.Fatalf("expected no estimate RPC when stepLimit is already set")
	}
	if req.Params["stepLimit"] != int64(50000) {
		t.Fatalf("expected existing stepLimit to be preserved")
	}
}
