package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// TopHolders fetches up to maxHolders token holders, page by page, with all
// pages requested concurrently. Rank order from the provider is preserved.
// The bonding-curve account is not a real holder and is dropped.
func (s *Scanner) TopHolders(ctx context.Context, mint string, maxHolders, pageSize int) []Holder {
	pages := (maxHolders + pageSize - 1) / pageSize
	results := make([][]Holder, pages)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < pages; i++ {
		i := i
		g.Go(func() error {
			results[i] = s.holderPage(gctx, mint, i+1, pageSize)
			return nil
		})
	}
	_ = g.Wait()

	var holders []Holder
	for _, page := range results {
		for _, h := range page {
			if h.Address == s.cfg.BondingCurve {
				continue
			}
			holders = append(holders, h)
		}
	}
	if len(holders) > maxHolders {
		holders = holders[:maxHolders]
	}

	log.Debug().Str("mint", abbrev(mint)).Int("holders", len(holders)).Int("pages", pages).Msg("fetched top holders")
	return holders
}

func (s *Scanner) holderPage(ctx context.Context, mint string, page, limit int) []Holder {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	data := s.api.Call(ctx, fmt.Sprintf("/tokens/%s/holders", mint), params)
	if data == nil {
		return nil
	}

	var payload struct {
		Accounts []struct {
			Wallet   string `json:"wallet"`
			Amount   uint64 `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warn().Err(err).Int("page", page).Msg("holder page malformed")
		return nil
	}

	holders := make([]Holder, 0, len(payload.Accounts))
	for _, a := range payload.Accounts {
		holders = append(holders, Holder{Address: a.Wallet, RawAmount: a.Amount, Decimals: a.Decimals})
	}
	return holders
}

// TokenSupply fetches the token supply. On any failure it returns the
// conservative default so percentage math downstream never divides by zero;
// the Fallback flag tells callers apart from real data.
func (s *Scanner) TokenSupply(ctx context.Context, mint string) Supply {
	result := s.api.RPC(ctx, "getTokenSupply", []interface{}{mint})
	if result == nil {
		return Supply{Tokens: DefaultSupplyTokens, Fallback: true}
	}

	var payload struct {
		Value struct {
			Amount   string `json:"amount"`
			Decimals uint8  `json:"decimals"`
		} `json:"value"`
	}
	if err := json.Unmarshal(result, &payload); err != nil || payload.Value.Amount == "" {
		log.Warn().Str("mint", abbrev(mint)).Msg("supply response malformed, using default")
		return Supply{Tokens: DefaultSupplyTokens, Fallback: true}
	}

	raw, err := strconv.ParseUint(payload.Value.Amount, 10, 64)
	if err != nil || raw == 0 {
		return Supply{Tokens: DefaultSupplyTokens, Fallback: true}
	}
	return Supply{Tokens: scaleDown(raw, payload.Value.Decimals)}
}

// ApplySupply recomputes holding percentages against the given supply.
// Must be called again whenever supply is refreshed.
func ApplySupply(holders []Holder, supply Supply) {
	for i := range holders {
		holders[i].HoldingPct = holders[i].Tokens() / supply.Tokens * 100
	}
}

// EnrichActivity merges per-holder swap activity (buys, sells, bought/sold
// percentages, tx count) into the holder slice. Fetches run with bounded
// concurrency; a holder whose fetch fails keeps all-zero counters rather
// than being dropped. Order is preserved.
func (s *Scanner) EnrichActivity(ctx context.Context, holders []Holder, mint string, supply Supply) []Holder {
	out := make([]Holder, len(holders))
	copy(out, holders)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchSize)
	for i := range out {
		i := i
		g.Go(func() error {
			s.mergeActivity(gctx, &out[i], mint, supply)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (s *Scanner) mergeActivity(ctx context.Context, h *Holder, mint string, supply Supply) {
	params := url.Values{}
	params.Set("token", mint)

	data := s.api.Call(ctx, fmt.Sprintf("/wallets/%s/trades", h.Address), params)
	if data == nil {
		log.Debug().Str("wallet", abbrev(h.Address)).Msg("activity fetch failed, keeping zero counters")
		return
	}

	var payload struct {
		Buys     int     `json:"buys"`
		Sells    int     `json:"sells"`
		Bought   float64 `json:"bought"`
		Sold     float64 `json:"sold"`
		TxCount  int     `json:"txCount"`
		LastSell int64   `json:"lastSell"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Debug().Err(err).Str("wallet", abbrev(h.Address)).Msg("activity payload malformed")
		return
	}

	h.Buys = payload.Buys
	h.Sells = payload.Sells
	h.TxCount = payload.TxCount
	h.BoughtPct = payload.Bought / supply.Tokens * 100
	h.SoldPct = payload.Sold / supply.Tokens * 100
	if payload.LastSell > 0 {
		t := time.Unix(payload.LastSell, 0).UTC()
		h.LastSell = &t
	}
}
