package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// IDSource hands out order ids that were never used before. Ids taken by
// failed attempts are not returned to the pool.
type IDSource interface {
	NextOrderID(ctx context.Context) (string, error)
}

// Ledger is the transactional store behind a checkout. Every method except
// WithTx must run on the transaction carried by ctx.
type Ledger interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	InsertOrder(ctx context.Context, o Order) (int64, error)
	InsertLine(ctx context.Context, l OrderLine) (int64, error)
	// DecrementStockIfAvailable subtracts qty only while stock >= qty, as one
	// statement. Zero rows means unknown product or not enough stock.
	DecrementStockIfAvailable(ctx context.Context, productID int64, qty int) (int64, error)
}

// AttemptState is the progress of a single PlaceOrder call.
type AttemptState string

const (
	StateStarted          AttemptState = "Started"
	StateIDAssigned       AttemptState = "IdAssigned"
	StateHeaderInserted   AttemptState = "HeaderInserted"
	StateLineInserted     AttemptState = "LineInserted"
	StateStockDecremented AttemptState = "StockDecremented"
	StateCommitted        AttemptState = "Committed"
	StateRolledBack       AttemptState = "RolledBack"
)

type Checkout struct {
	ids      IDSource
	ledger   Ledger
	now      func() time.Time
	log      *zap.Logger
	tracer   trace.Tracer
	attempts metric.Int64Counter
}

func NewCheckout(ids IDSource, ledger Ledger, log *zap.Logger) *Checkout {
	if log == nil {
		log = zap.NewNop()
	}
	attempts, err := otel.Meter("bookstore/orders").Int64Counter("checkout.attempts",
		metric.WithDescription("place_order attempts by outcome"))
	if err != nil {
		log.Warn("checkout counter unavailable", zap.Error(err))
	}
	return &Checkout{
		ids:      ids,
		ledger:   ledger,
		now:      time.Now,
		log:      log,
		tracer:   otel.Tracer("bookstore/orders"),
		attempts: attempts,
	}
}

// PlaceOrder writes the order header, its lines and the stock decrements as
// one unit. On any failure nothing is persisted and a *CheckoutError is
// returned. Calls are not deduplicated: the same cart twice makes two orders.
func (c *Checkout) PlaceOrder(ctx context.Context, in PlaceOrderInput) (string, error) {
	ctx, span := c.tracer.Start(ctx, "orders.PlaceOrder", trace.WithAttributes(
		attribute.Int64("customer.id", in.CustomerID),
		attribute.Int("cart.items", len(in.Items)),
	))
	defer span.End()

	var orderID string
	reached := StateStarted

	err := c.placeOrder(ctx, in, &orderID, &reached)
	if err != nil {
		kind, _ := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		c.record(ctx, string(kind))
		c.log.Warn("checkout rolled back",
			zap.String("state", string(StateRolledBack)),
			zap.String("reached", string(reached)),
			zap.String("order_id", orderID),
			zap.Int64("customer_id", in.CustomerID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		return "", err
	}

	span.SetAttributes(attribute.String("order.id", orderID))
	c.record(ctx, string(StateCommitted))
	c.log.Info("checkout committed",
		zap.String("state", string(StateCommitted)),
		zap.String("order_id", orderID),
		zap.Int64("customer_id", in.CustomerID),
		zap.Int("lines", len(in.Items)),
	)
	return orderID, nil
}

func (c *Checkout) placeOrder(ctx context.Context, in PlaceOrderInput, orderID *string, reached *AttemptState) error {
	if err := validateCart(in); err != nil {
		return err
	}

	id, err := c.ids.NextOrderID(ctx)
	if err != nil {
		return &CheckoutError{Kind: KindBackendUnavailable, Err: err}
	}
	*orderID = id
	*reached = StateIDAssigned

	now := c.now().UTC()
	err = c.ledger.WithTx(ctx, func(ctx context.Context) error {
		n, err := c.ledger.InsertOrder(ctx, Order{
			ID:         id,
			CustomerID: in.CustomerID,
			OrderDate:  now,
			Subtotal:   in.Subtotal,
			Shipping:   in.Shipping,
			Total:      in.Total,
			Status:     StatusPlaced,
			CreatedAt:  now,
		})
		if err != nil {
			return stepError(KindInvalidOrder, 0, 0, err)
		}
		if n != 1 {
			return &CheckoutError{Kind: KindInvalidOrder}
		}
		*reached = StateHeaderInserted

		for i, it := range in.Items {
			lineNo := i + 1
			n, err := c.ledger.InsertLine(ctx, OrderLine{
				OrderID:     id,
				LineNo:      lineNo,
				ProductID:   it.ProductID,
				ProductName: it.Name,
				Quantity:    it.Quantity,
			})
			if err != nil {
				return stepError(KindInvalidLineItem, lineNo, it.ProductID, err)
			}
			if n != 1 {
				return &CheckoutError{Kind: KindInvalidLineItem, Line: lineNo, ProductID: it.ProductID}
			}
			*reached = StateLineInserted

			n, err = c.ledger.DecrementStockIfAvailable(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return stepError(KindInsufficientStock, lineNo, it.ProductID, err)
			}
			if n == 0 {
				return &CheckoutError{Kind: KindInsufficientStock, Line: lineNo, ProductID: it.ProductID}
			}
			*reached = StateStockDecremented
		}
		return nil
	})
	if err != nil {
		var ce *CheckoutError
		if errors.As(err, &ce) {
			return err
		}
		// begin or commit failed
		return &CheckoutError{Kind: KindBackendUnavailable, Err: err}
	}
	return nil
}

func validateCart(in PlaceOrderInput) error {
	if len(in.Items) == 0 {
		return &CheckoutError{Kind: KindInvalidOrder, Err: errors.New("empty cart")}
	}
	amounts := []struct {
		name string
		v    decimal.Decimal
	}{{"subtotal", in.Subtotal}, {"shipping", in.Shipping}, {"total", in.Total}}
	for _, a := range amounts {
		if err := checkAmount(a.v); err != nil {
			return &CheckoutError{Kind: KindInvalidOrder, Err: fmt.Errorf("%s: %w", a.name, err)}
		}
	}
	for i, it := range in.Items {
		if it.Quantity <= 0 || int64(it.Quantity) > maxQuantity {
			return &CheckoutError{Kind: KindInvalidLineItem, Line: i + 1, ProductID: it.ProductID,
				Err: fmt.Errorf("quantity must be between 1 and %d", maxQuantity)}
		}
	}
	return nil
}

// Column limits: quantities are INTEGER, amounts NUMERIC(12,2).
const maxQuantity = math.MaxInt32

var maxAmount = decimal.New(1, 10)

// checkAmount rejects amounts the ledger would round or refuse.
func checkAmount(d decimal.Decimal) error {
	if !d.Equal(d.Round(2)) {
		return errors.New("more than 2 decimal places")
	}
	if d.Abs().GreaterThanOrEqual(maxAmount) {
		return errors.New("amount out of range")
	}
	return nil
}

// stepError keeps constraint rejections in the step's own kind; anything
// else is infrastructure.
func stepError(kind FailureKind, line int, productID int64, err error) error {
	if !errors.Is(err, ErrConstraintViolation) {
		kind = KindBackendUnavailable
	}
	return &CheckoutError{Kind: kind, Line: line, ProductID: productID, Err: err}
}

func (c *Checkout) record(ctx context.Context, outcome string) {
	if c.attempts == nil {
		return
	}
	c.attempts.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
