package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koiX69420/scanner-sub000/pkg/budget"
	"github.com/koiX69420/scanner-sub000/pkg/cache"
	"github.com/koiX69420/scanner-sub000/pkg/config"
	"github.com/koiX69420/scanner-sub000/pkg/queue"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

const mint = "So11111111111111111111111111111111111111112"

// fakeAPI plays both provider roles: the scanner's data source and the
// gateway's reset-on-read call counter.
type fakeAPI struct {
	supply    json.RawMessage
	pages     map[int]json.RawMessage
	trades    map[string]json.RawMessage
	transfers map[string]json.RawMessage

	calls atomic.Int64
}

func (f *fakeAPI) Call(_ context.Context, path string, params url.Values) json.RawMessage {
	f.calls.Add(1)
	parts := strings.Split(path, "/")
	switch {
	case strings.HasSuffix(path, "/holders"):
		return f.pages[atoi(params.Get("page"))]
	case strings.HasSuffix(path, "/trades"):
		return f.trades[parts[2]]
	case strings.HasSuffix(path, "/transfers"):
		return f.transfers[parts[2]]
	}
	return nil
}

func (f *fakeAPI) RPC(_ context.Context, method string, _ []interface{}) json.RawMessage {
	f.calls.Add(1)
	if method == "getTokenSupply" {
		return f.supply
	}
	return nil
}

func (f *fakeAPI) TakeCallCount() int64 { return f.calls.Swap(0) }

func atoi(s string) int {
	n := 0
	fmt.Sscanf(s, "%d", &n)
	return n
}

func testConfig() *config.Config {
	return &config.Config{
		QuickMaxHolders:    3,
		DeepMaxHolders:     5,
		HolderPageSize:     3,
		BatchSize:          2,
		MinFundingLamports: 1_000,
		FreshTxThreshold:   10,
		MinClusterSize:     2,
		BudgetMaxPerMinute: 1_000,
		CostBase:           1,
		CostPerHolder:      1,
		QueuePollInterval:  time.Millisecond,
		UserCooldown:       5 * time.Second,
		CacheTTL:           time.Minute,
		ExcludedFunders:    map[string]string{},
		ClusterIgnore:      map[string]bool{},
		BondingCurve:       "CURVE",
	}
}

// threeHolderAPI: X funds A and B, Y funds C once. Supply 1000 tokens, each
// holder owns 100.
func threeHolderAPI() *fakeAPI {
	trades := json.RawMessage(`{"buys":5,"sells":1,"bought":100,"sold":10,"txCount":40}`)
	return &fakeAPI{
		supply: json.RawMessage(`{"value":{"amount":"1000000000","decimals":6}}`),
		pages: map[int]json.RawMessage{
			1: json.RawMessage(`{"accounts":[
				{"wallet":"A","amount":100000000,"decimals":6},
				{"wallet":"B","amount":100000000,"decimals":6},
				{"wallet":"C","amount":100000000,"decimals":6}]}`),
		},
		trades: map[string]json.RawMessage{"A": trades, "B": trades, "C": trades},
		transfers: map[string]json.RawMessage{
			"A": json.RawMessage(`{"transfers":[{"from":"X","to":"A","lamports":50000,"time":1700000000}]}`),
			"B": json.RawMessage(`{"transfers":[{"from":"X","to":"B","lamports":50000,"time":1700000001}]}`),
			"C": json.RawMessage(`{"transfers":[{"from":"Y","to":"C","lamports":50000,"time":1700000002}]}`),
		},
	}
}

func newService(t *testing.T, cfg *config.Config, api *fakeAPI) (*Service, *budget.Bucket) {
	t.Helper()
	bucket := budget.New(cfg.BudgetMaxPerMinute)
	q := queue.New(bucket, cfg.QueuePollInterval, cfg.UserCooldown)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go q.Run(ctx)
	sc := scanner.New(cfg, api)
	return New(cfg, sc, api, cache.New(cfg.CacheTTL), q, bucket), bucket
}

func TestAnalyzeEndToEnd(t *testing.T) {
	svc, _ := newService(t, testConfig(), threeHolderAPI())

	res, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "u1")
	require.NoError(t, err)
	require.False(t, res.Cached)

	r := res.Report
	require.Len(t, r.Holders, 3)
	require.Len(t, r.Clusters, 1, "Y funded only one wallet and forms no cluster")
	assert.Equal(t, "X", r.Clusters[0].Funder)
	assert.ElementsMatch(t, []string{"A", "B"}, r.Clusters[0].Recipients)
	assert.InDelta(t, 20.0, r.Clusters[0].TotalPct, 1e-9)
	assert.False(t, r.Supply.Fallback)
	assert.Greater(t, r.CallsUsed, int64(0))
}

func TestAnalyzeSupplyFailureUsesDefault(t *testing.T) {
	api := threeHolderAPI()
	api.supply = nil
	svc, _ := newService(t, testConfig(), api)

	res, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "u1")
	require.NoError(t, err)

	assert.True(t, res.Report.Supply.Fallback)
	for _, h := range res.Report.Holders {
		assert.False(t, h.HoldingPct != h.HoldingPct, "holding pct must not be NaN")
		assert.InDelta(t, 100.0/scanner.DefaultSupplyTokens*100, h.HoldingPct, 1e-12)
	}
}

func TestAnalyzeAllFreshHoldersFlagged(t *testing.T) {
	api := threeHolderAPI()
	fresh := json.RawMessage(`{"buys":5,"sells":1,"bought":100,"sold":10,"txCount":5}`)
	api.trades = map[string]json.RawMessage{"A": fresh, "B": fresh, "C": fresh}
	svc, _ := newService(t, testConfig(), api)

	res, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Report.Summary.Suspicious, "txCount below threshold flags every holder")
}

func TestAnalyzeCacheHit(t *testing.T) {
	svc, _ := newService(t, testConfig(), threeHolderAPI())

	first, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "")
	require.NoError(t, err)
	second, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "")
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Same(t, first.Report, second.Report, "a hit within TTL returns the identical report")

	// Distinct mode misses the cache.
	third, err := svc.Analyze(context.Background(), mint, config.ModeDeep, "")
	require.NoError(t, err)
	assert.False(t, third.Cached)
}

func TestAnalyzeCacheExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.CacheTTL = 20 * time.Millisecond
	svc, _ := newService(t, cfg, threeHolderAPI())

	first, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)
	second, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "")
	require.NoError(t, err)

	assert.False(t, second.Cached)
	assert.NotEqual(t, first.Report.CreatedAt, second.Report.CreatedAt)
}

func TestAnalyzeCooldown(t *testing.T) {
	svc, _ := newService(t, testConfig(), threeHolderAPI())

	_, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "alice")
	require.NoError(t, err)
	// Same caller, different token: cooldown throttles regardless of cache.
	_, err = svc.Analyze(context.Background(), "11111111111111111111111111111111", config.ModeQuick, "alice")
	assert.ErrorIs(t, err, queue.ErrCooldown)
}

func TestAnalyzeCreditsUnusedBudget(t *testing.T) {
	cfg := testConfig()
	cfg.CostBase = 50 // deliberately pessimistic estimate
	svc, bucket := newService(t, cfg, threeHolderAPI())

	res, err := svc.Analyze(context.Background(), mint, config.ModeQuick, "")
	require.NoError(t, err)

	// Only the calls actually issued stay debited.
	assert.InDelta(t, cfg.BudgetMaxPerMinute-float64(res.Report.CallsUsed), bucket.Available(), 1.0)
}

func TestAnalyzeRejectsInvalidMint(t *testing.T) {
	svc, _ := newService(t, testConfig(), threeHolderAPI())
	_, err := svc.Analyze(context.Background(), "not-a-mint", config.ModeQuick, "")
	assert.Error(t, err)
}
