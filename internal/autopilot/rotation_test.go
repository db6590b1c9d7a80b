package autopilot

import (
	"testing"
	"time"

	"autoreel/internal/domain"
)

func poolProduct(id string, createdOffset time.Duration, useCount int, lastUsed *time.Time) domain.Product {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return domain.Product{
		ID:         id,
		StoreID:    "store-1",
		Title:      "Product " + id,
		Images:     []string{"a.jpg", "b.jpg"},
		IsActive:   true,
		UseCount:   useCount,
		LastUsedAt: lastUsed,
		CreatedAt:  base.Add(createdOffset),
	}
}

func TestNextProductFreshPoolFollowsCreationOrder(t *testing.T) {
	pool := []domain.Product{
		poolProduct("c", 2*time.Hour, 0, nil),
		poolProduct("a", 0, 0, nil),
		poolProduct("b", time.Hour, 0, nil),
	}

	// Simulate three consecutive selections, marking each used in memory.
	var order []string
	for i := 0; i < 3; i++ {
		next := NextProduct(pool)
		if next == nil {
			t.Fatalf("selection %d: no product", i)
		}
		order = append(order, next.ID)
		for j := range pool {
			if pool[j].ID == next.ID {
				used := time.Date(2026, 3, 2, i, 0, 0, 0, time.UTC)
				pool[j].UseCount++
				pool[j].LastUsedAt = &used
			}
		}
	}

	want := []string{"a", "b", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("selection order = %v, want %v", order, want)
		}
	}
}

func TestNextProductNeverRepeatsBeforeFullCycle(t *testing.T) {
	pool := []domain.Product{
		poolProduct("a", 0, 0, nil),
		poolProduct("b", time.Hour, 0, nil),
		poolProduct("c", 2*time.Hour, 0, nil),
	}

	seen := map[string]int{}
	for i := 0; i < 6; i++ {
		next := NextProduct(pool)
		if next == nil {
			t.Fatalf("selection %d: no product", i)
		}
		seen[next.ID]++
		for _, count := range seen {
			if count > (i/len(pool))+1 {
				t.Fatalf("product selected twice before pool exhausted: %v", seen)
			}
		}
		for j := range pool {
			if pool[j].ID == next.ID {
				used := time.Date(2026, 3, 2, i, 0, 0, 0, time.UTC)
				pool[j].UseCount++
				pool[j].LastUsedAt = &used
			}
		}
	}
	for id, count := range seen {
		if count != 2 {
			t.Fatalf("product %s selected %d times over two cycles, want 2", id, count)
		}
	}
}

func TestNextProductPrefersNeverUsed(t *testing.T) {
	used := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	pool := []domain.Product{
		poolProduct("veteran", 0, 5, &used),
		poolProduct("fresh", 48*time.Hour, 0, nil),
	}
	next := NextProduct(pool)
	if next == nil || next.ID != "fresh" {
		t.Fatalf("NextProduct = %v, want fresh", next)
	}
}

func TestNextProductSkipsInactive(t *testing.T) {
	inactive := poolProduct("off", 0, 0, nil)
	inactive.IsActive = false
	pool := []domain.Product{
		inactive,
		poolProduct("on", time.Hour, 3, nil),
	}
	next := NextProduct(pool)
	if next == nil || next.ID != "on" {
		t.Fatalf("NextProduct = %v, want on", next)
	}

	if NextProduct([]domain.Product{inactive}) != nil {
		t.Fatalf("all-inactive pool should select nothing")
	}
	if NextProduct(nil) != nil {
		t.Fatalf("empty pool should select nothing")
	}
}

func TestStatsOf(t *testing.T) {
	used := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	inactive := poolProduct("off", 0, 9, &used)
	inactive.IsActive = false
	pool := []domain.Product{
		poolProduct("a", 0, 0, nil),
		poolProduct("b", time.Hour, 2, &used),
		poolProduct("c", 2*time.Hour, 1, &used),
		inactive,
	}

	stats := StatsOf(pool)
	if stats.Active != 3 {
		t.Fatalf("Active = %d, want 3", stats.Active)
	}
	if stats.NeverUsed != 1 || stats.Used != 2 {
		t.Fatalf("NeverUsed/Used = %d/%d, want 1/2", stats.NeverUsed, stats.Used)
	}
	if stats.MinUseCount != 0 {
		t.Fatalf("MinUseCount = %d, want 0", stats.MinUseCount)
	}
}

func TestCompletesCycle(t *testing.T) {
	used := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		pool     []domain.Product
		selected string
		want     bool
	}{
		{
			name: "last at minimum completes the cycle",
			pool: []domain.Product{
				poolProduct("a", 0, 1, &used),
				poolProduct("b", time.Hour, 1, &used),
				poolProduct("c", 2*time.Hour, 0, nil),
			},
			selected: "c",
			want:     true,
		},
		{
			name: "others still at minimum",
			pool: []domain.Product{
				poolProduct("a", 0, 0, nil),
				poolProduct("b", time.Hour, 0, nil),
			},
			selected: "a",
			want:     false,
		},
		{
			name: "selected not at minimum",
			pool: []domain.Product{
				poolProduct("a", 0, 2, &used),
				poolProduct("b", time.Hour, 0, nil),
			},
			selected: "a",
			want:     false,
		},
		{
			name:     "empty pool",
			pool:     nil,
			selected: "a",
			want:     false,
		},
	}
	for _, tt := range tests {
		if got := CompletesCycle(tt.pool, tt.selected); got != tt.want {
			t.Fatalf("%s: CompletesCycle = %v, want %v", tt.name, got, tt.want)
		}
	}
}
