package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/koiX69420/scanner-sub000/pkg/budget"
	"github.com/koiX69420/scanner-sub000/pkg/cache"
	"github.com/koiX69420/scanner-sub000/pkg/config"
	"github.com/koiX69420/scanner-sub000/pkg/queue"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

// counter is the gateway's reset-on-read call counter, used to credit back
// the unused part of the pessimistic admission estimate.
type counter interface {
	TakeCallCount() int64
}

// Service wraps the analysis pipeline with caching and rate admission.
// Per request: cache check → FIFO queue → budget debit → fetch/cluster/score
// → cache fill. Data problems degrade to a partial report; only invalid
// input, cooldown and cancellation surface as errors.
type Service struct {
	cfg    *config.Config
	sc     *scanner.Scanner
	calls  counter
	cache  *cache.Cache
	queue  *queue.Queue
	bucket *budget.Bucket
}

func New(cfg *config.Config, sc *scanner.Scanner, calls counter, c *cache.Cache, q *queue.Queue, b *budget.Bucket) *Service {
	return &Service{cfg: cfg, sc: sc, calls: calls, cache: c, queue: q, bucket: b}
}

// Result carries the report plus how it was obtained.
type Result struct {
	Report *scanner.Report
	Cached bool
	Waited time.Duration
}

// Analyze runs (or short-circuits) a full holder-concentration analysis for
// one token. userID drives the per-caller cooldown; empty disables it.
func (s *Service) Analyze(ctx context.Context, mint string, mode config.Mode, userID string) (*Result, error) {
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return nil, fmt.Errorf("invalid token address %q: %w", mint, err)
	}

	key := cache.Key(mint, mode)
	if report, ok := s.cache.Get(key); ok {
		log.Info().Str("mint", abbrev(mint)).Str("mode", string(mode)).Msg("cache hit")
		return &Result{Report: report, Cached: true}, nil
	}

	cost := s.cfg.EstimatedCost(mode)
	ticket, err := s.queue.Enqueue(userID, cost)
	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ticket.Admitted():
	}
	waited := time.Since(ticket.EnqueuedAt)

	s.calls.TakeCallCount() // drop calls counted before this run
	report := s.run(ctx, mint, mode)
	report.CallsUsed = s.calls.TakeCallCount()

	// The admission debit is pessimistic; return what the run did not use.
	if unused := cost - float64(report.CallsUsed); unused > 0 {
		s.bucket.Credit(unused)
	}

	s.cache.Put(key, report)
	log.Info().
		Str("mint", abbrev(mint)).
		Str("mode", string(mode)).
		Int("holders", len(report.Holders)).
		Int("clusters", len(report.Clusters)).
		Int64("calls", report.CallsUsed).
		Dur("waited", waited).
		Msg("analysis complete")
	return &Result{Report: report, Waited: waited}, nil
}

// run executes the pipeline once admission has been granted. Sub-fetch
// failures degrade to defaults; the worst case is an empty report.
func (s *Service) run(ctx context.Context, mint string, mode config.Mode) *scanner.Report {
	supply := s.sc.TokenSupply(ctx, mint)
	if supply.Fallback {
		log.Warn().Str("mint", abbrev(mint)).Msg("supply unavailable, using default")
	}

	holders := s.sc.TopHolders(ctx, mint, s.cfg.MaxHolders(mode), s.cfg.HolderPageSize)
	scanner.ApplySupply(holders, supply)
	holders = s.sc.EnrichActivity(ctx, holders, mint, supply)

	graph := s.sc.FundingGraph(ctx, holders)
	clusters := s.sc.Clusters(holders, graph)
	summary := s.sc.Summarize(holders, clusters)

	return &scanner.Report{
		Mint:      mint,
		Mode:      mode,
		Holders:   holders,
		Clusters:  clusters,
		Summary:   summary,
		Supply:    supply,
		CreatedAt: time.Now().UTC(),
	}
}

func abbrev(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
