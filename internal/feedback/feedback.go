package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
	ErrUnknownReference = errors.New("unknown product or user")
)

type Feedback struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Add(ctx context.Context, f Feedback) (Feedback, error) {
	if f.Rating < 1 || f.Rating > 5 {
		return Feedback{}, ErrInvalidRating
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO feedback (product_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		f.ProductID, f.UserID, f.Rating, f.Comment,
	).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return Feedback{}, fmt.Errorf("%w (%s)", ErrUnknownReference, postgres.ConstraintName(err))
		}
		return Feedback{}, fmt.Errorf("add feedback: %w", err)
	}
	return f, nil
}

// ListByProduct returns newest first.
func (r *Repo) ListByProduct(ctx context.Context, productID int64) ([]Feedback, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, user_id, rating, comment, created_at
		FROM feedback WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`, productID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.ProductID, &f.UserID, &f.Rating, &f.Comment, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
