package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/koiX69420/scanner-sub000/pkg/analyzer"
	"github.com/koiX69420/scanner-sub000/pkg/scanner"
)

// Render writes a human-readable view of an analysis result. Percentages are
// formatted to two decimals here and nowhere else; the core keeps full
// precision. freshThreshold only affects the flag column, not scoring.
func Render(w io.Writer, res *analyzer.Result, freshThreshold int) {
	r := res.Report

	title := color.New(color.Bold).SprintFunc()
	warn := color.New(color.FgRed, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	origin := "fresh"
	if res.Cached {
		origin = "cached"
	}
	fmt.Fprintf(w, "\n%s %s  %s\n", title("Token"), r.Mint, dim(fmt.Sprintf("(mode=%s, %s)", r.Mode, origin)))
	if r.Supply.Fallback {
		fmt.Fprintf(w, "%s\n", warn("supply unavailable, percentages computed against default supply"))
	}

	sum := r.Summary
	fmt.Fprintf(w, "top %d holders own %s · %d bundled (%s) · %d fresh unbundled · %d suspicious\n",
		sum.Holders, pct(sum.TopHoldingPct), sum.Bundled, pct(sum.BundledPct), sum.FreshNotBundled, sum.Suspicious)

	if len(r.Clusters) > 0 {
		fmt.Fprintf(w, "\n%s\n", title("Funding clusters"))
		ct := tablewriter.NewWriter(w)
		ct.SetHeader([]string{"#", "Funder", "Wallets", "Combined %"})
		for i, c := range r.Clusters {
			ct.Append([]string{
				fmt.Sprintf("%d", i+1),
				short(c.Funder),
				fmt.Sprintf("%d", len(c.Recipients)),
				pct(c.TotalPct),
			})
		}
		ct.Render()
	}

	fmt.Fprintf(w, "\n%s\n", title("Holders"))
	ht := tablewriter.NewWriter(w)
	ht.SetHeader([]string{"Holder", "Holding %", "Bought %", "Sold %", "Buys", "Sells", "Txs", "Flags"})
	for _, h := range r.Holders {
		ht.Append([]string{
			short(h.Address),
			pct(h.HoldingPct),
			pct(h.BoughtPct),
			pct(h.SoldPct),
			fmt.Sprintf("%d", h.Buys),
			fmt.Sprintf("%d", h.Sells),
			fmt.Sprintf("%d", h.TxCount),
			flags(h, r.Clusters, freshThreshold),
		})
	}
	ht.Render()
}

func flags(h scanner.Holder, clusters []scanner.Cluster, freshThreshold int) string {
	out := ""
	for _, c := range clusters {
		for _, rcp := range c.Recipients {
			if rcp == h.Address {
				out += "bundled "
			}
		}
	}
	if h.TxCount < freshThreshold {
		out += "fresh"
	}
	return out
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func short(addr string) string {
	if len(addr) > 12 {
		return addr[:6] + "..." + addr[len(addr)-4:]
	}
	return addr
}
