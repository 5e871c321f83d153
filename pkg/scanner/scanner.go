package scanner

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/koiX69420/scanner-sub000/pkg/config"
)

// provider is the slice of the API gateway the scanner needs. Both methods
// return nil on soft failure; the scanner degrades to empty/default values
// instead of propagating errors.
type provider interface {
	Call(ctx context.Context, path string, params url.Values) json.RawMessage
	RPC(ctx context.Context, method string, params []interface{}) json.RawMessage
}

// Scanner fetches holders and transfer history through the gateway and turns
// them into clusters of commonly-funded wallets.
type Scanner struct {
	cfg *config.Config
	api provider
}

func New(cfg *config.Config, api provider) *Scanner {
	return &Scanner{cfg: cfg, api: api}
}

func abbrev(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
