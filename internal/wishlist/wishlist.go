package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotInWishlist    = errors.New("product is not in the wishlist")
	ErrUnknownReference = errors.New("unknown product or user")
)

type Repo struct{ DB *pgxpool.Pool }

// Add is idempotent.
func (r *Repo) Add(ctx context.Context, userID, productID int64) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO wishlist_items (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, userID, productID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w (%s)", ErrUnknownReference, postgres.ConstraintName(err))
		}
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (r *Repo) Remove(ctx context.Context, userID, productID int64) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM wishlist_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotInWishlist
	}
	return nil
}

// List returns the wished products, most recently added first.
func (r *Repo) List(ctx context.Context, userID int64) ([]catalog.Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.name, p.author, p.description, p.category, p.price::text, p.stock, p.image, p.created_at, p.updated_at
		FROM wishlist_items w JOIN products p ON p.id = w.product_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC, p.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	out := []catalog.Product{}
	for rows.Next() {
		var p catalog.Product
		var price string
		if err := rows.Scan(&p.ID, &p.Name, &p.Author, &p.Description, &p.Category, &price, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan wishlist product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
