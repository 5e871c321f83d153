package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// FundingGraph attributes each holder to the wallet that funded it with
// native currency. Holders are processed in fixed-size batches; transfers
// within a batch are fetched concurrently, batches run sequentially to bound
// peak concurrency against the provider.
//
// The resolved graph is a partition: each recipient maps to at most one
// funder. When several senders funded the same holder, the sender with the
// most observed transfers wins; ties go to the first-seen sender.
func (s *Scanner) FundingGraph(ctx context.Context, holders []Holder) map[string][]string {
	transfers := make([][]Transfer, len(holders))

	batch := s.cfg.BatchSize
	for start := 0; start < len(holders); start += batch {
		end := start + batch
		if end > len(holders) {
			end = len(holders)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				transfers[i] = s.inboundTransfers(gctx, holders[i].Address)
				return nil
			})
		}
		_ = g.Wait()
	}

	return s.resolve(holders, transfers)
}

// inboundTransfers fetches native-currency transfers into a wallet.
// A failed fetch yields no transfers; the holder simply stays unclustered.
func (s *Scanner) inboundTransfers(ctx context.Context, wallet string) []Transfer {
	params := url.Values{}
	params.Set("direction", "in")

	data := s.api.Call(ctx, fmt.Sprintf("/wallets/%s/transfers", wallet), params)
	if data == nil {
		return nil
	}

	var payload struct {
		Transfers []struct {
			From     string `json:"from"`
			To       string `json:"to"`
			Lamports uint64 `json:"lamports"`
			Time     int64  `json:"time"`
		} `json:"transfers"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Err(err).Str("wallet", abbrev(wallet)).Msg("transfer payload malformed")
		return nil
	}

	out := make([]Transfer, 0, len(payload.Transfers))
	for _, t := range payload.Transfers {
		out = append(out, Transfer{From: t.From, To: t.To, Lamports: t.Lamports, Time: time.Unix(t.Time, 0).UTC()})
	}
	return out
}

// funderTally counts transfers from one candidate sender to one recipient.
// seq is a global first-seen counter used to break count ties.
type funderTally struct {
	count int
	seq   int
}

func (s *Scanner) resolve(holders []Holder, transfers [][]Transfer) map[string][]string {
	// Candidate edges: recipient -> sender -> tally.
	candidates := make(map[string]map[string]*funderTally)
	seq := 0

	for i, h := range holders {
		for _, t := range transfers[i] {
			if t.To != h.Address || t.Lamports < s.cfg.MinFundingLamports {
				continue
			}
			if label, excluded := s.cfg.ExcludedFunders[t.From]; excluded {
				log.Debug().Str("sender", abbrev(t.From)).Str("label", label).Msg("excluded funder skipped")
				continue
			}
			byS := candidates[h.Address]
			if byS == nil {
				byS = make(map[string]*funderTally)
				candidates[h.Address] = byS
			}
			tally := byS[t.From]
			if tally == nil {
				tally = &funderTally{seq: seq}
				seq++
				byS[t.From] = tally
			}
			tally.count++
		}
	}

	// Tie-break: each recipient keeps only the edge from its dominant funder.
	graph := make(map[string][]string)
	for _, h := range holders {
		byS := candidates[h.Address]
		if len(byS) == 0 {
			continue // no qualifying inbound transfer, not an error
		}

		senders := make([]string, 0, len(byS))
		for sender := range byS {
			senders = append(senders, sender)
		}
		sort.Slice(senders, func(a, b int) bool {
			ta, tb := byS[senders[a]], byS[senders[b]]
			if ta.count != tb.count {
				return ta.count > tb.count
			}
			return ta.seq < tb.seq
		})

		winner := senders[0]
		graph[winner] = append(graph[winner], h.Address)
	}

	log.Debug().Int("funders", len(graph)).Int("holders", len(holders)).Msg("funding graph resolved")
	return graph
}
