package scanner

import (
	"time"

	"github.com/koiX69420/scanner-sub000/pkg/config"
)

// Holder is one top-N token holder with its swap activity merged in.
// Immutable once computed for a given analysis snapshot.
type Holder struct {
	Address    string     `json:"address"`
	RawAmount  uint64     `json:"raw_amount"`
	Decimals   uint8      `json:"decimals"`
	HoldingPct float64    `json:"holding_pct"`
	Buys       int        `json:"buys"`
	Sells      int        `json:"sells"`
	BoughtPct  float64    `json:"bought_pct"`
	SoldPct    float64    `json:"sold_pct"`
	TxCount    int        `json:"tx_count"`
	LastSell   *time.Time `json:"last_sell,omitempty"`
}

// Tokens is the holder balance in whole-token units.
func (h Holder) Tokens() float64 {
	return scaleDown(h.RawAmount, h.Decimals)
}

// Transfer is one inbound native-currency transfer into a holder wallet.
// Used only to build the funding graph, never persisted.
type Transfer struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Lamports uint64    `json:"lamports"`
	Time     time.Time `json:"time"`
}

// Cluster groups holders attributed to one funding source.
// Derived per run; recipients are a partition, no holder appears in two
// clusters (see resolve in funding.go).
type Cluster struct {
	Funder     string   `json:"funder"`
	Recipients []string `json:"recipients"`
	TotalPct   float64  `json:"total_pct"`
}

// Supply carries the token supply in whole-token units. Fallback marks the
// conservative default used when the provider fetch failed, so tests and
// callers can tell real data from the fail-safe.
type Supply struct {
	Tokens   float64 `json:"tokens"`
	Fallback bool    `json:"fallback"`
}

// DefaultSupplyTokens guards percentage math against a failed supply fetch.
const DefaultSupplyTokens = 1e9

// Summary is a single-pass aggregate over the top-N holders.
type Summary struct {
	Holders         int     `json:"holders"`
	Suspicious      int     `json:"suspicious"`
	SoldAny         int     `json:"sold_any"`
	ZeroBuys        int     `json:"zero_buys"`
	Bundled         int     `json:"bundled"`
	BundledFresh    int     `json:"bundled_fresh"`
	FreshNotBundled int     `json:"fresh_not_bundled"`
	TopHoldingPct   float64 `json:"top_holding_pct"`
	BundledPct      float64 `json:"bundled_pct"`
}

// Report is the result of one analysis run, cached under (mint, mode).
type Report struct {
	Mint      string      `json:"mint"`
	Mode      config.Mode `json:"mode"`
	Holders   []Holder    `json:"holders"`
	Clusters  []Cluster   `json:"clusters"`
	Summary   Summary     `json:"summary"`
	Supply    Supply      `json:"supply"`
	CallsUsed int64       `json:"calls_used"`
	CreatedAt time.Time   `json:"created_at"`
}

func scaleDown(raw uint64, decimals uint8) float64 {
	v := float64(raw)
	for i := uint8(0); i < decimals; i++ {
		v /= 10
	}
	return v
}
