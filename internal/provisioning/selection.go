package provisioning

import (
	"context"
	"fmt"
	"math"
)

// DefaultCapacityThreshold is the usage count at which a region is full.
const DefaultCapacityThreshold = 5

// UsageFunc reports how many capacity-limited resources a candidate holds.
type UsageFunc func(ctx context.Context, candidate string) (int, error)

// FirstBelowThreshold returns the first candidate, in input order, whose
// usage is strictly below threshold. A threshold of zero or less means
// DefaultCapacityThreshold. Candidates after the selected one are never
// queried.
func FirstBelowThreshold(ctx context.Context, candidates []string, usage UsageFunc, threshold int) (string, error) {
	if threshold <= 0 {
		threshold = DefaultCapacityThreshold
	}

	for _, candidate := range candidates {
		count, err := usage(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to query usage of %s: %w", candidate, err)
		}
		if count < threshold {
			return candidate, nil
		}
	}

	return "", &NoCapacityError{Candidates: candidates, Threshold: threshold}
}

// NetworkStat is the address availability of a candidate network.
type NetworkStat struct {
	ID       string
	Name     string
	TotalIPs int64
	UsedIPs  int64
}

// Ratio is total/used. A network without used addresses has infinite
// headroom; a network without any addresses has none.
func (s NetworkStat) Ratio() float64 {
	if s.TotalIPs <= 0 {
		return 0
	}
	if s.UsedIPs <= 0 {
		return math.Inf(1)
	}
	return float64(s.TotalIPs) / float64(s.UsedIPs)
}

// BestNetwork returns the network with the strictly highest ratio. Equal
// ratios keep the earlier candidate. Networks without addresses are never
// selected.
func BestNetwork(stats []NetworkStat) (NetworkStat, error) {
	best := -1
	for i, stat := range stats {
		if stat.Ratio() <= 0 {
			continue
		}
		if best < 0 || stat.Ratio() > stats[best].Ratio() {
			best = i
		}
	}

	if best < 0 {
		names := make([]string, 0, len(stats))
		for _, stat := range stats {
			names = append(names, stat.Name)
		}
		return NetworkStat{}, &NoSuitableNetworkError{Candidates: names}
	}
	return stats[best], nil
}
