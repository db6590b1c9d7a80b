package domain

import "time"

// MinProductImages is the minimum number of product images required before a
// product is eligible for generation. Products below the threshold are
// deactivated at selection time rather than silently skipped forever.
const MinProductImages = 2

// Product is a rotation-pool entry: one candidate subject for autopilot
// generation.
type Product struct {
	ID      string
	StoreID string
	Title   string
	Images  []string
	Price   string

	IsActive   bool
	UseCount   int
	LastUsedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eligible reports whether the product may be used for a generation attempt.
func (p *Product) Eligible() bool {
	return p.IsActive && len(p.Images) >= MinProductImages
}
