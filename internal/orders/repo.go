package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-bookstore.git/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the Postgres Ledger and IDSource, plus the read side of orders.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) NextOrderID(ctx context.Context) (string, error) {
	var id string
	if err := r.DB.QueryRow(ctx, `SELECT generate_order_id()`).Scan(&id); err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return id, nil
}

func (r *Repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgres.WithTx(ctx, r.DB, fn)
}

// InsertOrder affects zero rows when the customer does not exist.
func (r *Repo) InsertOrder(ctx context.Context, o Order) (int64, error) {
	tag, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO orders (id, customer_id, order_date, subtotal, shipping, total, status)
		SELECT $1, u.id, $3, $4::text::numeric, $5::text::numeric, $6::text::numeric, $7
		FROM users u WHERE u.id = $2`,
		o.ID, o.CustomerID, o.OrderDate, o.Subtotal.String(), o.Shipping.String(), o.Total.String(), string(o.Status),
	)
	if err != nil {
		return 0, constraintErr("insert order", err)
	}
	return tag.RowsAffected(), nil
}

// InsertLine affects zero rows when the product does not exist. An empty
// ProductName snapshots the product's current name.
func (r *Repo) InsertLine(ctx context.Context, l OrderLine) (int64, error) {
	tag, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO order_lines (order_id, line_no, product_id, product_name, quantity)
		SELECT $1, $2, p.id, COALESCE(NULLIF($4::text, ''), p.name), $5
		FROM products p WHERE p.id = $3`,
		l.OrderID, l.LineNo, l.ProductID, l.ProductName, l.Quantity,
	)
	if err != nil {
		return 0, constraintErr("insert order line", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) DecrementStockIfAvailable(ctx context.Context, productID int64, qty int) (int64, error) {
	tag, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2`,
		productID, qty,
	)
	if err != nil {
		return 0, constraintErr("decrement stock", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (Order, error) {
	q := postgres.Conn(ctx, r.DB)
	o, err := scanOrder(q.QueryRow(ctx, orderColumns+` WHERE id = $1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, line_no, product_id, product_name, quantity
		FROM order_lines WHERE order_id = $1 ORDER BY line_no`, orderID)
	if err != nil {
		return Order{}, fmt.Errorf("get order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.OrderID, &l.LineNo, &l.ProductID, &l.ProductName, &l.Quantity); err != nil {
			return Order{}, fmt.Errorf("scan order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, fmt.Errorf("order lines: %w", err)
	}
	return o, nil
}

func (r *Repo) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, orderColumns+` WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) GetOrderStatus(ctx context.Context, orderID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&s)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", err
	}
	return Status(s), nil
}

// UpdateStatus is the administrative status path. The update is guarded by
// the current status so a concurrent change is never overwritten.
func (r *Repo) UpdateStatus(ctx context.Context, orderID string, to Status) (from Status, err error) {
	from, err = r.GetOrderStatus(ctx, orderID)
	if err != nil {
		return "", err
	}
	if !CanTransition(from, to) {
		return from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	tag, err := r.DB.Exec(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, orderID, string(from), string(to))
	if err != nil {
		return from, fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return from, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
	}
	return from, nil
}

const orderColumns = `
	SELECT id, customer_id, order_date, subtotal::text, shipping::text, total::text, status, created_at
	FROM orders`

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                         Order
		status                    string
		subtotal, shipping, total string
	)
	if err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &subtotal, &shipping, &total, &status, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	var err error
	if o.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return Order{}, err
	}
	if o.Shipping, err = decimal.NewFromString(shipping); err != nil {
		return Order{}, err
	}
	if o.Total, err = decimal.NewFromString(total); err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}

// constraintErr marks errors caused by the statement's arguments, not by the
// backend: integrity violations (class 23) and data exceptions (class 22).
func constraintErr(op string, err error) error {
	if postgres.IsForeignKeyViolation(err) || postgres.IsUniqueViolation(err) || postgres.IsCheckViolation(err) {
		return fmt.Errorf("%s: %w (%s)", op, ErrConstraintViolation, postgres.ConstraintName(err))
	}
	if postgres.IsDataException(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
