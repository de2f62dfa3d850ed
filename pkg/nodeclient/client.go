// Package nodeclient calls the node's JSON-RPC API using the connection
// derived from the current settings.
package nodeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"nodedesk/pkg/connection"
	"nodedesk/pkg/request"
	"nodedesk/pkg/tracker"
)

// RPCError is an error reported by the node in the response body.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     uint64 `json:"id"`
	Key    string `json:"key"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Client sends RPC calls to whichever node the settings currently point at.
type Client struct {
	http    *request.Client
	resolve func() connection.Config
	nextID  atomic.Uint64
	log     *slog.Logger
	stats   *tracker.Tracker
}

// New creates a Client. resolve is called on every request so settings
// changes take effect without rebuilding the client.
func New(resolve func() connection.Config, httpClient *request.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = request.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: httpClient, resolve: resolve, log: logger, stats: tracker.New()}
}

// Stats returns the per-method call counters.
func (c *Client) Stats() map[string]tracker.MethodStats {
	return c.stats.Snapshot()
}

// Call invokes method with params and decodes the result into out, which may
// be nil.
func (c *Client) Call(ctx context.Context, method string, out any, params ...any) error {
	cfg := c.resolve()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("node connection: %w", err)
	}
	if params == nil {
		params = []any{}
	}

	body, err := json.Marshal(rpcRequest{
		Method: method,
		Params: params,
		ID:     c.nextID.Add(1),
		Key:    cfg.APIKey,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	start := time.Now()
	raw, err := c.http.Post(ctx, cfg.BaseURL, body, map[string]string{"Content-Type": "application/json"})
	if err != nil {
		c.stats.TrackFailure(method)
		return fmt.Errorf("%s: %w", method, err)
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.stats.TrackFailure(method)
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if resp.Error != nil {
		c.stats.TrackRPCError(method)
		c.log.Debug("Node: rpc error", "method", method, "code", resp.Error.Code, "message", resp.Error.Message)
		return resp.Error
	}
	c.stats.TrackSuccess(method, time.Since(start))
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// BaseURL returns the endpoint the next call would use.
func (c *Client) BaseURL() string {
	return c.resolve().BaseURL
}
