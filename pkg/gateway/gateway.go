package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/koiX69420/scanner-sub000/pkg/config"
)

// Gateway is the single egress point to the ledger-data provider. Every
// failure (transport, non-2xx status, malformed body) is downgraded to a
// nil payload; callers decide whether that is fatal to their sub-task.
// It never retries.
type Gateway struct {
	cfg    *config.Config
	client *http.Client

	keyCursor atomic.Uint64
	calls     atomic.Int64
}

func New(cfg *config.Config) *Gateway {
	return &Gateway{cfg: cfg, client: &http.Client{Timeout: 30 * time.Second}}
}

// nextKey rotates API keys round-robin. The cursor is a pure counter; key
// selection is independent of request identity or concurrency level.
func (g *Gateway) nextKey() string {
	if len(g.cfg.APIKeys) == 0 {
		return ""
	}
	n := g.keyCursor.Add(1) - 1
	return g.cfg.APIKeys[n%uint64(len(g.cfg.APIKeys))]
}

// TakeCallCount returns the number of calls issued since the last read and
// resets the counter. Used for budget bookkeeping.
func (g *Gateway) TakeCallCount() int64 {
	return g.calls.Swap(0)
}

// Call performs a GET against the REST data API with a rotating key header.
// Returns nil on any failure.
func (g *Gateway) Call(ctx context.Context, path string, params url.Values) json.RawMessage {
	g.calls.Add(1)

	u := strings.TrimRight(g.cfg.DataAPIURL, "/") + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("bad request")
		return nil
	}
	req.Header.Set("x-api-key", g.nextKey())

	body := g.do(req, path)
	if body == nil {
		return nil
	}

	// Data API envelope: {success: bool, data: ...}. A false success or a
	// missing data field is a shape failure, not an exception.
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &env); err != nil || !env.Success || env.Data == nil {
		log.Warn().Str("path", path).Msg("data API envelope missing or unsuccessful")
		return nil
	}
	return env.Data
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      int           `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RPC performs a JSON-RPC POST and unwraps the result field.
// Returns nil on any failure.
func (g *Gateway) RPC(ctx context.Context, method string, params []interface{}) json.RawMessage {
	g.calls.Add(1)

	reqBody, _ := json.Marshal(rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1})
	req, err := http.NewRequestWithContext(ctx, "POST", g.cfg.RPCURL, bytes.NewReader(reqBody))
	if err != nil {
		log.Warn().Err(err).Str("method", method).Msg("bad rpc request")
		return nil
	}
	req.Header.Set("Content-Type", "application/json")

	body := g.do(req, method)
	if body == nil {
		return nil
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Warn().Err(err).Str("method", method).Msg("rpc unmarshal failed")
		return nil
	}
	if resp.Error != nil {
		log.Warn().Int("code", resp.Error.Code).Str("msg", resp.Error.Message).Str("method", method).Msg("rpc error")
		return nil
	}
	return resp.Result
}

func (g *Gateway) do(req *http.Request, what string) []byte {
	resp, err := g.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("call", what).Msg("provider unreachable")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Str("call", what).Msg("provider returned non-2xx")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB max
	if err != nil {
		log.Warn().Err(err).Str("call", what).Msg("body read failed")
		return nil
	}
	return body
}
