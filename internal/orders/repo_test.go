package orders

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ariefcatur/go-bookstore.git/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo_PlaceOrder(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := &Repo{DB: pool}
	svc := NewCheckout(repo, repo, nil)

	t.Run("commits header lines and decrements", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "alice")
		product := testutil.InsertProduct(t, ctx, pool, "Dune", "10.00", 5)

		id, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer,
			Items:      []CartItem{{ProductID: product, Quantity: 3}},
			Subtotal:   money("30"),
			Shipping:   money("5"),
			Total:      money("35"),
		})
		require.NoError(t, err)
		assert.Regexp(t, `^ORD\d{16}$`, id)

		assert.Equal(t, 2, testutil.ProductStock(t, ctx, pool, product))
		assert.Equal(t, 1, testutil.CountRows(t, ctx, pool, "orders"))
		assert.Equal(t, 1, testutil.CountRows(t, ctx, pool, "order_lines"))

		o, err := repo.GetOrder(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, customer, o.CustomerID)
		assert.Equal(t, StatusPlaced, o.Status)
		assert.Equal(t, "35.00", o.Total.StringFixed(2))
		require.Len(t, o.Lines, 1)
		assert.Equal(t, "Dune", o.Lines[0].ProductName)
		assert.Equal(t, 3, o.Lines[0].Quantity)
	})

	t.Run("insufficient stock leaves tables untouched", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "bob")
		plenty := testutil.InsertProduct(t, ctx, pool, "Plenty", "1.00", 10)
		scarce := testutil.InsertProduct(t, ctx, pool, "Scarce", "1.00", 2)

		_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer,
			Items: []CartItem{
				{ProductID: plenty, Quantity: 4},
				{ProductID: scarce, Quantity: 3},
			},
			Subtotal: money("7"), Shipping: money("0"), Total: money("7"),
		})
		assert.ErrorIs(t, err, ErrInsufficientStock)

		assert.Equal(t, 10, testutil.ProductStock(t, ctx, pool, plenty))
		assert.Equal(t, 2, testutil.ProductStock(t, ctx, pool, scarce))
		assert.Equal(t, 0, testutil.CountRows(t, ctx, pool, "orders"))
		assert.Equal(t, 0, testutil.CountRows(t, ctx, pool, "order_lines"))
	})

	t.Run("unknown references", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "carol")
		product := testutil.InsertProduct(t, ctx, pool, "Real", "1.00", 10)

		_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer + 100,
			Items:      []CartItem{{ProductID: product, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrInvalidOrder)

		_, err = svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer,
			Items: []CartItem{
				{ProductID: product, Quantity: 1},
				{ProductID: product + 100, Quantity: 1},
			},
		})
		assert.ErrorIs(t, err, ErrInvalidLineItem)

		assert.Equal(t, 10, testutil.ProductStock(t, ctx, pool, product))
		assert.Equal(t, 0, testutil.CountRows(t, ctx, pool, "orders"))
	})

	t.Run("concurrent buyers of the last unit", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "dave")
		product := testutil.InsertProduct(t, ctx, pool, "Last", "1.00", 1)

		const buyers = 6
		var wg sync.WaitGroup
		errs := make(chan error, buyers)
		for i := 0; i < buyers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
					CustomerID: customer,
					Items:      []CartItem{{ProductID: product, Quantity: 1}},
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		var ok, outOfStock int
		for err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrInsufficientStock):
				outOfStock++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, buyers-1, outOfStock)
		assert.Equal(t, 0, testutil.ProductStock(t, ctx, pool, product))
		assert.Equal(t, 1, testutil.CountRows(t, ctx, pool, "orders"))
	})

	t.Run("line name is a snapshot", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "erin")
		product := testutil.InsertProduct(t, ctx, pool, "Old Title", "1.00", 3)

		id, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer,
			Items:      []CartItem{{ProductID: product, Quantity: 1}},
		})
		require.NoError(t, err)

		_, err = pool.Exec(ctx, `UPDATE products SET name = 'New Title' WHERE id = $1`, product)
		require.NoError(t, err)

		o, err := repo.GetOrder(ctx, id)
		require.NoError(t, err)
		require.Len(t, o.Lines, 1)
		assert.Equal(t, "Old Title", o.Lines[0].ProductName)
	})

	t.Run("cancelled context persists nothing", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		customer := testutil.InsertUser(t, ctx, pool, "frank")
		product := testutil.InsertProduct(t, ctx, pool, "Any", "1.00", 3)

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := svc.PlaceOrder(cctx, PlaceOrderInput{
			CustomerID: customer,
			Items:      []CartItem{{ProductID: product, Quantity: 1}},
		})
		assert.ErrorIs(t, err, ErrBackendUnavailable)
		assert.Equal(t, 3, testutil.ProductStock(t, ctx, pool, product))
		assert.Equal(t, 0, testutil.CountRows(t, ctx, pool, "orders"))
	})
}

func TestRepo_StatusAndListing(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := &Repo{DB: pool}
	svc := NewCheckout(repo, repo, nil)
	ctx := context.Background()

	customer := testutil.InsertUser(t, ctx, pool, "grace")
	product := testutil.InsertProduct(t, ctx, pool, "Book", "2.50", 10)

	var ids []string
	for i := 0; i < 2; i++ {
		id, err := svc.PlaceOrder(ctx, PlaceOrderInput{
			CustomerID: customer,
			Items:      []CartItem{{ProductID: product, Quantity: 1}},
			Subtotal:   money("2.50"), Shipping: money("1"), Total: money("3.50"),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	list, err := repo.ListOrdersByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, ids[1], list[0].ID)
	assert.Equal(t, "3.50", list[0].Total.StringFixed(2))

	from, err := repo.UpdateStatus(ctx, ids[0], StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaced, from)

	_, err = repo.UpdateStatus(ctx, ids[0], StatusDelivered)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	status, err := repo.GetOrderStatus(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, status)

	_, err = repo.GetOrder(ctx, "ORD-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
