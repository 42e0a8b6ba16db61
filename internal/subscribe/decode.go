package subscribe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexdesousa/icon-sub001/internal/iconerr"
	"github.com/alexdesousa/icon-sub001/internal/identity"
	"github.com/alexdesousa/icon-sub001/internal/rpcclient"
	"github.com/alexdesousa/icon-sub001/internal/stream"
	"github.com/alexdesousa/icon-sub001/internal/wire"
	"golang.org/x/sync/errgroup"
)

// Tick is the per-notification marker emitted before any event logs it
// carries, giving consumers a height/hash anchor for the batch that
// follows it.
type Tick struct {
	Height uint64
	Hash   string
}

// frameKind classifies a raw server frame.
type frameKind int

const (
	frameAck frameKind = iota
	frameServerError
	frameNotification
)

type rawFrame struct {
	Code    *int            `json:"code"`
	Message string          `json:"message"`
	Height  string          `json:"height"`
	Hash    string          `json:"hash"`
	Index   string          `json:"index"`
	Indexes [][]string      `json:"indexes"`
	Events  json.RawMessage `json:"events"`
}

// parseHexHeight loads a "0x"-prefixed hex height/index field the way every
// other wire integer is loaded.
func parseHexHeight(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := wire.Integer(wire.NonNegInt).Load(s)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// parseHexInts loads a list of hex-prefixed index strings into ints.
func parseHexInts(raw []string) ([]int, error) {
	out := make([]int, 0, len(raw))
	for _, s := range raw {
		v, err := parseHexHeight(s)
		if err != nil {
			return nil, err
		}
		out = append(out, int(v))
	}
	return out, nil
}

// txRef names one transaction a block-source notification references,
// together with the filter positions it asks the decoder to keep.
type txRef struct {
	txIndex   int
	filterIdx []int
}

// blockRefs flattens rawFrame.Indexes and the parallel "events" field into
// one ordered list of (tx_index, filter_indices) pairs. "indexes" is a list
// of per-transaction index lists (each naming one transaction); "events"
// carries one extra nesting level, a list of filter-index lists parallel to
// "indexes", so events[i][j] is the filter list for indexes[i][j].
func (f rawFrame) blockRefs() ([]txRef, error) {
	var events [][][]string
	if len(f.Events) > 0 {
		if err := json.Unmarshal(f.Events, &events); err != nil {
			return nil, err
		}
	}

	var refs []txRef
	for i, group := range f.Indexes {
		for j, idxHex := range group {
			txIndex, err := parseHexHeight(idxHex)
			if err != nil {
				return nil, fmt.Errorf("parse tx index: %w", err)
			}
			var filterHex []string
			if i < len(events) && j < len(events[i]) {
				filterHex = events[i][j]
			}
			filterIdx, err := parseHexInts(filterHex)
			if err != nil {
				return nil, fmt.Errorf("parse filter index: %w", err)
			}
			refs = append(refs, txRef{txIndex: int(txIndex), filterIdx: filterIdx})
		}
	}
	return refs, nil
}

// eventSourceFilterIdx parses the event-source "events" field: a flat list
// of hex-prefixed filter indices for the single transaction the
// notification names.
func (f rawFrame) eventSourceFilterIdx() ([]int, error) {
	if len(f.Events) == 0 {
		return nil, nil
	}
	var raw []string
	if err := json.Unmarshal(f.Events, &raw); err != nil {
		return nil, err
	}
	return parseHexInts(raw)
}

func classify(payload []byte) (rawFrame, frameKind, error) {
	var f rawFrame
	if err := json.Unmarshal(payload, &f); err != nil {
		return rawFrame{}, 0, fmt.Errorf("subscribe: decode frame: %w", err)
	}

	if f.Code != nil {
		if *f.Code == 0 {
			return f, frameAck, nil
		}
		return f, frameServerError, nil
	}
	return f, frameNotification, nil
}

// Resolver fetches the data a notification references: the block at a
// given height and a transaction's result, the two RPC calls needed to
// turn a bare (height, index) reference into event logs.
type Resolver interface {
	BlockByHeight(ctx context.Context, height uint64) (map[string]any, error)
	TransactionResult(ctx context.Context, txHash string) (map[string]any, error)
}

// ClientResolver adapts an *rpcclient.Client to Resolver.
type ClientResolver struct {
	Client   *rpcclient.Client
	Identity *identity.Identity
}

func (r *ClientResolver) BlockByHeight(ctx context.Context, height uint64) (map[string]any, error) {
	heightHex, err := wire.Integer(wire.NonNegInt).Dump(int64(height))
	if err != nil {
		return nil, fmt.Errorf("subscribe: dump block height: %w", err)
	}
	req, err := rpcclient.Build("icx_getBlockByHeight", map[string]any{"height": heightHex}, rpcclient.Options{Identity: r.Identity})
	if err != nil {
		return nil, err
	}
	result, err := r.Client.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	m, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("subscribe: block result has unexpected shape %T", result)
	}
	return m, nil
}

func (r *ClientResolver) TransactionResult(ctx context.Context, txHash string) (map[string]any, error) {
	req, err := rpcclient.Build("icx_getTransactionResult", map[string]any{"txHash": txHash}, rpcclient.Options{Identity: r.Identity})
	if err != nil {
		return nil, err
	}
	result, err := r.Client.Send(ctx, req)
	if err != nil {
		return nil, err
	}
	m, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("subscribe: transaction result has unexpected shape %T", result)
	}
	return m, nil
}

// Decode turns one raw server frame into buffer items: empty+nil+nil for an
// ack, a non-nil error for a server error frame, or a populated item slice
// for a notification. The returned height, when nonzero, is reported even
// when decoding otherwise fails, so the caller can still advance the
// buffer's watermark.
func Decode(ctx context.Context, resolver Resolver, source Source, payload []byte) ([]stream.Item, uint64, error) {
	f, kind, err := classify(payload)
	if err != nil {
		return nil, 0, err
	}

	switch kind {
	case frameAck:
		return nil, 0, nil
	case frameServerError:
		return nil, 0, iconerr.New(*f.Code, f.Message, nil)
	}

	height, err := parseHexHeight(f.Height)
	if err != nil {
		return nil, 0, fmt.Errorf("subscribe: parse notification height: %w", err)
	}

	switch source {
	case SourceBlock:
		return decodeBlockNotification(ctx, resolver, uint64(height), f)
	case SourceEvent:
		return decodeEventNotification(ctx, resolver, uint64(height), f)
	default:
		return nil, uint64(height), fmt.Errorf("subscribe: unknown source %q", source)
	}
}

func decodeBlockNotification(ctx context.Context, resolver Resolver, height uint64, f rawFrame) ([]stream.Item, uint64, error) {
	hash := f.Hash
	tick := stream.Item{
		Key:     stream.Key{Height: height, Hash: hash, Index: -1, Position: -1},
		Payload: Tick{Height: height, Hash: hash},
	}
	items := []stream.Item{tick}

	if len(f.Indexes) == 0 {
		return items, height, nil
	}

	refs, err := f.blockRefs()
	if err != nil {
		return items, height, fmt.Errorf("subscribe: parse notification indexes: %w", err)
	}

	block, err := resolver.BlockByHeight(ctx, height-1)
	if err != nil {
		return items, height, fmt.Errorf("subscribe: fetch block %d: %w", height-1, err)
	}
	txList, _ := block["confirmed_transaction_list"].([]any)

	type resolved struct {
		txIndex int
		logs    []any
		err     error
	}
	results := make([]resolved, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		i, ref := i, ref
		results[i].txIndex = ref.txIndex
		g.Go(func() error {
			if ref.txIndex < 0 || ref.txIndex >= len(txList) {
				results[i].err = iconerr.ServerError(fmt.Sprintf("cannot find transaction index %d on block with height %d", ref.txIndex, height-1))
				return nil
			}
			tx, _ := txList[ref.txIndex].(map[string]any)
			txHash, _ := tx["txHash"].(string)
			result, err := resolver.TransactionResult(gctx, txHash)
			if err != nil {
				results[i].err = err
				return nil
			}
			logs, _ := result["eventLogs"].([]any)
			results[i].logs = filterEventLogs(logs, ref.filterIdx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return items, height, err
	}

	for _, r := range results {
		if r.err != nil {
			return items, height, r.err
		}
		for pos, log := range r.logs {
			items = append(items, stream.Item{
				Key:     stream.Key{Height: height, Hash: hash, Index: r.txIndex, Position: pos},
				Payload: log,
			})
		}
	}
	return items, height, nil
}

func decodeEventNotification(ctx context.Context, resolver Resolver, height uint64, f rawFrame) ([]stream.Item, uint64, error) {
	hash := f.Hash
	index, err := parseHexHeight(f.Index)
	if err != nil {
		return nil, height, fmt.Errorf("subscribe: parse notification index: %w", err)
	}
	tick := stream.Item{
		Key:     stream.Key{Height: height, Hash: hash, Index: -1, Position: -1},
		Payload: Tick{Height: height, Hash: hash},
	}
	items := []stream.Item{tick}

	filterIdx, err := f.eventSourceFilterIdx()
	if err != nil {
		return items, height, fmt.Errorf("subscribe: parse notification events: %w", err)
	}
	if filterIdx == nil {
		return items, height, nil
	}

	block, err := resolver.BlockByHeight(ctx, height-1)
	if err != nil {
		return items, height, fmt.Errorf("subscribe: fetch block %d: %w", height-1, err)
	}
	txList, _ := block["confirmed_transaction_list"].([]any)
	if int(index) < 0 || int(index) >= len(txList) {
		return items, height, iconerr.ServerError(fmt.Sprintf("cannot find transaction index %d on block with height %d", index, height-1))
	}
	tx, _ := txList[int(index)].(map[string]any)
	txHash, _ := tx["txHash"].(string)

	result, err := resolver.TransactionResult(ctx, txHash)
	if err != nil {
		return items, height, err
	}
	logs, _ := result["eventLogs"].([]any)
	filtered := filterEventLogs(logs, filterIdx)

	for pos, log := range filtered {
		items = append(items, stream.Item{
			Key:     stream.Key{Height: height, Hash: hash, Index: int(index), Position: pos},
			Payload: log,
		})
	}
	return items, height, nil
}

// filterEventLogs keeps the 0-based positions listed in filterIdx, in the
// order they're listed.
func filterEventLogs(logs []any, filterIdx []int) []any {
	if filterIdx == nil {
		return nil
	}
	out := make([]any, 0, len(filterIdx))
	for _, pos := range filterIdx {
		if pos < 0 || pos >= len(logs) {
			continue
		}
		out = append(out, logs[pos])
	}
	return out
}
