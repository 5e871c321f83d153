package scanner

import (
	"sort"

	"github.com/rs/zerolog/log"
)

// Clusters turns the resolved funding graph into ranked clusters. Groups
// below the minimum size, ignored funders and zero-weight groups are
// dropped. The result is sorted descending by combined holding percentage;
// downstream rendering assumes clusters[0] is the largest.
func (s *Scanner) Clusters(holders []Holder, graph map[string][]string) []Cluster {
	pctByAddr := make(map[string]float64, len(holders))
	for _, h := range holders {
		pctByAddr[h.Address] = h.HoldingPct
	}

	funders := make([]string, 0, len(graph))
	for f := range graph {
		funders = append(funders, f)
	}
	sort.Strings(funders)

	var clusters []Cluster
	for _, funder := range funders {
		recipients := graph[funder]
		if len(recipients) < s.cfg.MinClusterSize {
			continue
		}
		if s.cfg.ClusterIgnore[funder] {
			log.Debug().Str("funder", abbrev(funder)).Msg("ignored funder dropped")
			continue
		}

		total := 0.0
		for _, r := range recipients {
			total += pctByAddr[r] // absent holders contribute nothing
		}
		if total <= 0 {
			continue
		}

		clusters = append(clusters, Cluster{Funder: funder, Recipients: recipients, TotalPct: total})
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		return clusters[i].TotalPct > clusters[j].TotalPct
	})
	return clusters
}
