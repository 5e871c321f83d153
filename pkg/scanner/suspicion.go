package scanner

// Suspicious flags a holder when any one heuristic matches:
// it belongs to a funding cluster, it has a low lifetime tx count (fresh
// wallet), it holds tokens it never bought, it sold more than it bought, or
// its bought amount diverges from its holding with no sells to explain it.
// Pure function, evaluated independently per holder.
func (s *Scanner) Suspicious(h Holder, clusters []Cluster) bool {
	if inAnyCluster(h.Address, clusters) {
		return true
	}
	if h.TxCount < s.cfg.FreshTxThreshold {
		return true
	}
	if h.Buys == 0 && h.HoldingPct > 0 {
		return true
	}
	if h.SoldPct > h.BoughtPct {
		return true
	}
	if h.BoughtPct != h.HoldingPct && h.Sells == 0 {
		return true
	}
	return false
}

func inAnyCluster(addr string, clusters []Cluster) bool {
	for _, c := range clusters {
		for _, r := range c.Recipients {
			if r == addr {
				return true
			}
		}
	}
	return false
}

// Summarize derives the aggregate counters in a single pass over the top-N
// holder slice plus cluster membership lookup.
func (s *Scanner) Summarize(holders []Holder, clusters []Cluster) Summary {
	bundled := make(map[string]bool)
	bundledPct := 0.0
	for _, c := range clusters {
		bundledPct += c.TotalPct
		for _, r := range c.Recipients {
			bundled[r] = true
		}
	}

	sum := Summary{Holders: len(holders), BundledPct: bundledPct}
	for _, h := range holders {
		sum.TopHoldingPct += h.HoldingPct
		fresh := h.TxCount < s.cfg.FreshTxThreshold
		switch {
		case bundled[h.Address] && fresh:
			sum.Bundled++
			sum.BundledFresh++
		case bundled[h.Address]:
			sum.Bundled++
		case fresh:
			sum.FreshNotBundled++
		}
		if h.Sells > 0 {
			sum.SoldAny++
		}
		if h.Buys == 0 {
			sum.ZeroBuys++
		}
		if s.Suspicious(h, clusters) {
			sum.Suspicious++
		}
	}
	return sum
}
