// Package ledger performs read-only view calls against a NEAR JSON-RPC node.
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	DefaultRPCURL  = "https://rpc.mainnet.near.org"
	DefaultTimeout = 30 * time.Second
)

// ErrEmptyResult is returned when a view call succeeds without a payload.
var ErrEmptyResult = errors.New("empty view call result")

// Client is a NEAR JSON-RPC client. It does not retry; callers wrap calls in
// their own retry policy.
type Client struct {
	endpoint  string
	http      *http.Client
	requestID atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a client for the RPC endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultRPCURL
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the RPC URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Name    string          `json:"name,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type callFunctionParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

// callFunctionResult carries the view result as a JSON array of byte values.
type callFunctionResult struct {
	RawResult   []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
	Error       string   `json:"error,omitempty"`
}

// CallFunction runs a view method of contractID at final finality. args is
// JSON-encoded; the returned bytes are decoded as JSON into result.
func (c *Client) CallFunction(ctx context.Context, contractID, method string, args any, result any) error {
	rawArgs := []byte("{}")
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("marshal %s args: %w", method, err)
		}
		rawArgs = encoded
	}

	var out callFunctionResult
	params := callFunctionParams{
		RequestType: "call_function",
		Finality:    "final",
		AccountID:   contractID,
		MethodName:  method,
		ArgsBase64:  base64.StdEncoding.EncodeToString(rawArgs),
	}
	if err := c.call(ctx, "query", params, &out); err != nil {
		return fmt.Errorf("%s.%s: %w", contractID, method, err)
	}
	if out.Error != "" {
		return fmt.Errorf("%s.%s: %s", contractID, method, out.Error)
	}
	if len(out.RawResult) == 0 {
		return fmt.Errorf("%s.%s: %w", contractID, method, ErrEmptyResult)
	}

	payload := make([]byte, len(out.RawResult))
	for i, b := range out.RawResult {
		if b < 0 || b > 255 {
			return fmt.Errorf("%s.%s: result byte %d out of range", contractID, method, b)
		}
		payload[i] = byte(b)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("decode %s.%s result: %w", contractID, method, err)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 256))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
