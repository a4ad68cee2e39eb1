package stockalert

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type StockReader interface {
	Stock(ctx context.Context, productID int64) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

// Deduper claims an event id once; Release undoes a claim after a failure.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Service watches placed orders and raises an alert for every product whose
// remaining stock is at or below Threshold.
type Service struct {
	Stock       StockReader
	Dedup       Deduper
	Producer    Publisher
	Threshold   int
	ServiceName string
	Log         *zap.Logger
}

// HandleOrderPlaced: dipasang sebagai handler consumer.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		// poison message, nothing to retry
		s.Log.Warn("skip undecodable event", zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}

	first, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup: %w", err)
	}
	if !first {
		return nil
	}

	if err := s.check(ctx, env); err != nil {
		// biar bisa diproses ulang
		if rerr := s.Dedup.Release(context.WithoutCancel(ctx), env.EventID); rerr != nil {
			s.Log.Warn("dedup release failed", zap.String("event_id", env.EventID), zap.Error(rerr))
		}
		return err
	}
	return nil
}

func (s *Service) check(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("skip undecodable payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	seen := make(map[int64]bool, len(p.Items))
	for _, it := range p.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true

		stock, err := s.Stock.Stock(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("stock of product %d: %w", it.ProductID, err)
		}
		if stock > s.Threshold {
			continue
		}
		if err := s.publishLow(ctx, p.OrderID, it.ProductID, stock, env.TraceID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) publishLow(ctx context.Context, orderID string, productID int64, stock int, trace string) error {
	ev := orders.NewEnvelope(orders.EventProductStockLow, s.ServiceName, orderID, trace,
		kafkax.MustMarshal(orders.ProductStockLowPayload{
			ProductID: productID,
			Stock:     stock,
			Threshold: s.Threshold,
			OrderID:   orderID,
		}))
	err := s.Producer.Publish(ctx, orders.TopicProductStockLow, orders.ProductPartitionKey(productID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventProductStockLow)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		return fmt.Errorf("publish stock low: %w", err)
	}
	s.Log.Info("stock low",
		zap.Int64("product_id", productID),
		zap.Int("stock", stock),
		zap.String("order_id", orderID),
	)
	return nil
}
