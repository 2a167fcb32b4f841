package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"burrowfeed/internal/model"
)

type queryParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

func toByteArray(v any) []int {
	data, _ := json.Marshal(v)
	out := make([]int, len(data))
	for i, b := range data {
		out[i] = int(b)
	}
	return out
}

// newNode serves view calls through handle, which gets the method name and
// decoded args and returns the JSON value to encode as the result bytes.
func newNode(t *testing.T, handle func(method string, args map[string]any) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64      `json:"id"`
			Method string      `json:"method"`
			Params queryParams `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if req.Method != "query" || req.Params.RequestType != "call_function" || req.Params.Finality != "final" {
			t.Errorf("unexpected request: %+v", req)
		}
		rawArgs, err := base64.StdEncoding.DecodeString(req.Params.ArgsBase64)
		if err != nil {
			t.Errorf("decode args: %v", err)
			return
		}
		var args map[string]any
		_ = json.Unmarshal(rawArgs, &args)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]any{
				"result":       toByteArray(handle(req.Params.MethodName, args)),
				"logs":         []string{},
				"block_height": 1,
				"block_hash":   "h",
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExchangeNumberOfPools(t *testing.T) {
	srv := newNode(t, func(method string, args map[string]any) any {
		if method != "get_number_of_pools" {
			t.Errorf("unexpected method %s", method)
		}
		return 3712
	})

	ex := NewExchange(NewClient(srv.URL), "")
	n, err := ex.NumberOfPools(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3712 {
		t.Fatalf("expected 3712 pools, got %d", n)
	}
}

func TestExchangeGetPools(t *testing.T) {
	want := []model.PoolRecord{{
		PoolKind:          model.PoolKindSimple,
		TokenAccountIDs:   []string{"wrap.near", "usn"},
		Amounts:           []string{"1000", "2000"},
		TotalFee:          30,
		SharesTotalSupply: "10",
	}}
	srv := newNode(t, func(method string, args map[string]any) any {
		if method != "get_pools" {
			t.Errorf("unexpected method %s", method)
		}
		if args["from_index"] != float64(250) || args["limit"] != float64(250) {
			t.Errorf("unexpected args %v", args)
		}
		return want
	})

	ex := NewExchange(NewClient(srv.URL), "v2.ref-finance.near")
	got, err := ex.GetPools(context.Background(), 250, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("pools mismatch: %+v != %+v", got, want)
	}
}

func TestClientRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"Server error","name":"HANDLER_ERROR"}}`))
	}))
	defer srv.Close()

	err := NewClient(srv.URL).CallFunction(context.Background(), "x.near", "view", nil, nil)
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != -32000 {
		t.Fatalf("unexpected code %d", rpcErr.Code)
	}
}

func TestClientQueryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"error":"wasm execution failed","logs":[]}}`))
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).CallFunction(context.Background(), "x.near", "view", nil, nil); err == nil {
		t.Fatalf("expected error for failed view call")
	}
}

func TestClientHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).CallFunction(context.Background(), "x.near", "view", nil, nil); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestClientEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":{"result":[],"logs":[]}}`))
	}))
	defer srv.Close()

	var out any
	err := NewClient(srv.URL).CallFunction(context.Background(), "x.near", "view", nil, &out)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
}

func TestNewClientEndpoint(t *testing.T) {
	if got := NewClient("").Endpoint(); got != DefaultRPCURL {
		t.Fatalf("expected default endpoint, got %q", got)
	}
	if got := NewClient("http://localhost:3030").Endpoint(); got != "http://localhost:3030" {
		t.Fatalf("unexpected endpoint %q", got)
	}
}
