package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alexdesousa/icon-sub001/internal/iconerr"
)

// envelope is the wire shape of a JSON-RPC request to the node.
type envelope struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      int64          `json:"id"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params,omitempty"`
}

// responseEnvelope is the wire shape of the node's JSON-RPC reply.
type responseEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rawError       `json:"error,omitempty"`
}

type rawError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RPCCaller abstracts the HTTP transport so tests can inject a fake
// instead of dialing the network, the same seam the teacher uses for its
// own proxy's RPCCaller interface.
type RPCCaller interface {
	Call(ctx context.Context, url string, timeoutMs int64, req envelope) (*responseEnvelope, error)
}

// Client sends built requests to the node and decodes their JSON-RPC
// result or error.
type Client struct {
	caller RPCCaller
	logger *slog.Logger
}

// NewClient creates a Client backed by the default HTTP transport.
func NewClient(logger *slog.Logger) *Client {
	return &Client{
		caller: &httpCaller{client: &http.Client{Timeout: 30 * time.Second}},
		logger: logger.With("component", "rpcclient"),
	}
}

// NewClientWithCaller creates a Client backed by a custom RPCCaller, for
// tests.
func NewClientWithCaller(logger *slog.Logger, caller RPCCaller) *Client {
	return &Client{caller: caller, logger: logger.With("component", "rpcclient")}
}

// Send POSTs req's JSON-RPC envelope and returns the decoded result, or a
// node-reported *iconerr.Error when the response carries one. Transport
// and decode failures surface as a synthesized system_error.
func (c *Client) Send(ctx context.Context, req *Request) (any, error) {
	params := req.Params
	if req.Options.Schema != nil {
		dumped, err := dumpParams(req)
		if err != nil {
			return nil, errInvalidParams(fmt.Sprintf("rpcclient: dump params: %v", err))
		}
		params = dumped
	}

	env := envelope{
		JSONRPC: "2.0",
		ID:      req.ID,
		Method:  req.Method,
		Params:  params,
	}
	if len(env.Params) == 0 {
		env.Params = nil
	}

	c.logger.Debug("rpc call", "method", req.Method, "id", req.ID)

	resp, err := c.caller.Call(ctx, req.Options.URL, req.Options.TimeoutMs, env)
	if err != nil {
		c.logger.Error("rpc call failed", "method", req.Method, "error", err)
		return nil, errSystem(fmt.Sprintf("rpc call failed: %v", err))
	}

	if resp.Error != nil {
		c.logger.Warn("rpc returned error", "method", req.Method, "code", resp.Error.Code, "message", resp.Error.Message)
		return nil, iconerr.New(resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, errSystem(fmt.Sprintf("decode result: %v", err))
		}
	}
	return result, nil
}

// httpCaller is the default RPCCaller: a plain HTTP POST of the JSON
// envelope, mirroring the teacher's own httpCaller in internal/clawchain.
type httpCaller struct {
	client *http.Client
}

func (h *httpCaller) Call(ctx context.Context, url string, timeoutMs int64, req envelope) (*responseEnvelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if timeoutMs > 0 {
		httpReq.Header.Set("Icon-Options", strconv.FormatInt(timeoutMs, 10))
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http call: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp responseEnvelope
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &resp, nil
}
