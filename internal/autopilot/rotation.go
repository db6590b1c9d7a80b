package autopilot

import (
	"sort"

	"autoreel/internal/domain"
)

// NextProduct picks the next rotation-pool candidate. Order: never-used
// first (null lastUsedAt), then oldest lastUsedAt, then lowest useCount,
// then earliest createdAt as a stable tie-break. Every active product is
// therefore shown once before any is shown twice, without a persisted
// cursor. Inactive products are never candidates.
func NextProduct(products []domain.Product) *domain.Product {
	candidates := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.IsActive {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.LastUsedAt == nil && b.LastUsedAt != nil:
			return true
		case a.LastUsedAt != nil && b.LastUsedAt == nil:
			return false
		case a.LastUsedAt != nil && b.LastUsedAt != nil && !a.LastUsedAt.Equal(*b.LastUsedAt):
			return a.LastUsedAt.Before(*b.LastUsedAt)
		}
		if a.UseCount != b.UseCount {
			return a.UseCount < b.UseCount
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	next := candidates[0]
	return &next
}

// PoolStats is the aggregate view of a store's rotation pool.
type PoolStats struct {
	Active      int `json:"active"`
	Used        int `json:"used"`
	NeverUsed   int `json:"never_used"`
	MinUseCount int `json:"min_use_count"`
}

// StatsOf computes pool stats over the given products. Inactive products are
// excluded.
func StatsOf(products []domain.Product) PoolStats {
	var stats PoolStats
	first := true
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		stats.Active++
		if p.UseCount == 0 {
			stats.NeverUsed++
		} else {
			stats.Used++
		}
		if first || p.UseCount < stats.MinUseCount {
			stats.MinUseCount = p.UseCount
			first = false
		}
	}
	return stats
}

// CompletesCycle reports whether marking the selected product used raises the
// pool's minimum use count, i.e. the full rotation has been exhausted once
// more. True when the selection is the only active product still sitting at
// the current minimum.
func CompletesCycle(products []domain.Product, selectedID string) bool {
	stats := StatsOf(products)
	if stats.Active == 0 {
		return false
	}
	atMin := 0
	selectedAtMin := false
	for _, p := range products {
		if !p.IsActive || p.UseCount != stats.MinUseCount {
			continue
		}
		atMin++
		if p.ID == selectedID {
			selectedAtMin = true
		}
	}
	return selectedAtMin && atMin == 1
}
