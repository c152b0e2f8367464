package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/fitvibe/pkg/database"
)

// PurchaseRepository implements repository.PurchaseRepository using PostgreSQL.
type PurchaseRepository struct {
	pool database.DBTX
}

// NewPurchaseRepository creates a new PostgreSQL-backed purchase repository.
func NewPurchaseRepository(pool database.DBTX) *PurchaseRepository {
	return &PurchaseRepository{pool: pool}
}

// Record stores a purchase and flags the buyer's review of the product, if
// any, as verified. Both writes share one transaction.
func (r *PurchaseRepository) Record(ctx context.Context, userID, productID, orderID string, at time.Time) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchases (user_id, product_id, order_id, purchased_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`,
			userID, productID, orderID, at,
		)
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE reviews SET verified = TRUE
			WHERE author_id = $1 AND product_id = $2 AND NOT verified`,
			userID, productID,
		)
		if err != nil {
			return fmt.Errorf("mark review verified: %w", err)
		}
		return nil
	})
}

// HasPurchased reports whether userID bought productID.
func (r *PurchaseRepository) HasPurchased(ctx context.Context, userID, productID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM purchases WHERE user_id = $1 AND product_id = $2)`,
		userID, productID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check purchase: %w", err)
	}
	return ok, nil
}
