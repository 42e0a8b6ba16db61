package rpcclient

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const estimateStepMethod = "debug_estimateStep"

var (
	stepCacheMu sync.Mutex
	stepCache   *lru.Cache[string, int64]
)

func init() {
	c, err := lru.New[string, int64](4096)
	if err != nil {
		panic(err)
	}
	stepCache = c
}

// EstimateStepLimit fills req.Params["stepLimit"] when it is absent,
// memoizing the estimate by the call's shape (never its values) in a
// process-global cache. deploy and message dataTypes are never cached
// because their contents vary per call.
func (c *Client) EstimateStepLimit(ctx context.Context, req *Request) error {
	if _, present := req.Params["stepLimit"]; present {
		return nil
	}

	dataType, _ := req.Params["dataType"].(string)
	cacheable := dataType != "deploy" && dataType != "message"

	key := shapeKey(req)
	if cacheable {
		stepCacheMu.Lock()
		if limit, ok := stepCache.Get(key); ok {
			stepCacheMu.Unlock()
			req.Params["stepLimit"] = limit
			return nil
		}
		stepCacheMu.Unlock()
	}

	limit, err := c.callEstimateStep(ctx, req)
	if err != nil {
		return errSystem("cannot estimate stepLimit")
	}

	if cacheable {
		stepCacheMu.Lock()
		stepCache.Add(key, limit)
		stepCacheMu.Unlock()
	}
	req.Params["stepLimit"] = limit
	return nil
}

func (c *Client) callEstimateStep(ctx context.Context, req *Request) (int64, error) {
	params := make(map[string]any, len(req.Params))
	for k, v := range req.Params {
		if k == "stepLimit" || k == "signature" {
			continue
		}
		params[k] = v
	}

	estimateReq := &Request{
		ID:      nextID(),
		Method:  estimateStepMethod,
		Params:  params,
		Options: req.Options,
	}

	result, err := c.Send(ctx, estimateReq)
	if err != nil {
		return 0, err
	}
	s, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("rpcclient: unexpected estimate result shape %T", result)
	}
	var n int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(s, "0x"), "%x", &n); err != nil {
		return 0, fmt.Errorf("rpcclient: malformed step estimate %q: %w", s, err)
	}
	return n, nil
}

// shapeKey derives the step-limit cache key from the call's shape:
// schema fingerprint, method, from, to (if present), dataType, the call
// data's method (if dataType is "call"), and the sorted set of param keys.
// Values beyond these never affect the key.
func shapeKey(req *Request) string {
	var b strings.Builder

	if req.Options.Schema != nil {
		b.WriteString(req.Options.Schema.Fingerprint())
	}
	b.WriteString("|")
	b.WriteString(req.Method)
	b.WriteString("|from=")
	b.WriteString(fmt.Sprint(req.Params["from"]))
	if to, ok := req.Params["to"]; ok {
		b.WriteString("|to=")
		b.WriteString(fmt.Sprint(to))
	}
	dataType, _ := req.Params["dataType"].(string)
	b.WriteString("|dataType=")
	b.WriteString(dataType)

	if dataType == "call" {
		if data, ok := req.Params["data"].(map[string]any); ok {
			b.WriteString("|data.method=")
			b.WriteString(fmt.Sprint(data["method"]))
		}
	}

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteString("|keys=")
	b.WriteString(strings.Join(keys, ","))

	return b.String()
}
