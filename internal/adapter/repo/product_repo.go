package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"autoreel/internal/domain"
)

// ProductRepositoryPG implements domain.ProductRepository.
type ProductRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProductRepository creates a product repository backed by PostgreSQL.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepositoryPG {
	return &ProductRepositoryPG{pool: pool}
}

// ListActive returns the rotation pool for a store. Selection ordering
// happens in memory (autopilot.NextProduct); the repository only filters.
func (r *ProductRepositoryPG) ListActive(ctx context.Context, storeID string) ([]domain.Product, error) {
	query := `
SELECT id, store_id, title, images, price, is_active, use_count, last_used_at, created_at, updated_at
FROM products
WHERE store_id = $1 AND is_active = true
ORDER BY created_at ASC;
`
	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.StoreID,
			&p.Title,
			&p.Images,
			&p.Price,
			&p.IsActive,
			&p.UseCount,
			&p.LastUsedAt,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// MarkUsed records a successful generation attempt against the product.
func (r *ProductRepositoryPG) MarkUsed(ctx context.Context, productID string, usedAt time.Time) error {
	query := `
UPDATE products
SET use_count = use_count + 1,
    last_used_at = $2,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, productID, usedAt)
	return err
}

// Deactivate removes a product from rotation until an operator re-enables it.
func (r *ProductRepositoryPG) Deactivate(ctx context.Context, productID string) error {
	query := `
UPDATE products
SET is_active = false,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, productID)
	return err
}

var _ domain.ProductRepository = (*ProductRepositoryPG)(nil)
