package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

const productColumns = `
	SELECT id, name, author, description, category, price::text, stock, image, created_at, updated_at
	FROM products`

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, productColumns+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, productColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repo) Stock(ctx context.Context, id int64) (int, error) {
	var stock int
	err := r.DB.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, id).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return stock, nil
}

func (r *Repo) Create(ctx context.Context, in NewProduct) (Product, error) {
	if err := in.Validate(); err != nil {
		return Product{}, err
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `
		INSERT INTO products (name, author, description, category, price, stock, image)
		VALUES ($1, $2, $3, $4, $5::text::numeric, $6, $7)
		RETURNING id, name, author, description, category, price::text, stock, image, created_at, updated_at`,
		in.Name, in.Author, in.Description, in.Category, in.Price.String(), in.Stock, in.Image,
	))
	if err != nil {
		if postgres.IsCheckViolation(err) {
			return Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, postgres.ConstraintName(err))
		}
		return Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

// Update applies an allow-listed partial update. Column names come only from
// ProductPatch, never from the request.
func (r *Repo) Update(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if err := patch.Validate(); err != nil {
		return Product{}, err
	}
	cols, vals := patch.assignments()
	if len(cols) == 0 {
		return Product{}, ErrEmptyPatch
	}

	sets := make([]string, 0, len(cols)+1)
	for i, c := range cols {
		if c == "price" {
			sets = append(sets, fmt.Sprintf("%s = $%d::text::numeric", c, i+2))
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+2))
	}
	sets = append(sets, "updated_at = NOW()")

	args := append([]any{id}, vals...)
	p, err := scanProduct(r.DB.QueryRow(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+` WHERE id = $1
		RETURNING id, name, author, description, category, price::text, stock, image, created_at, updated_at`,
		args...,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrProductNotFound
		}
		if postgres.IsCheckViolation(err) {
			return Product{}, fmt.Errorf("%w: %s", ErrInvalidProduct, postgres.ConstraintName(err))
		}
		return Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Author, &p.Description, &p.Category, &price, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, err
	}
	p.Price = d
	return p, nil
}
