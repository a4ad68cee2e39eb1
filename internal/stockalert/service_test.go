package stockalert

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-bookstore.git/internal/catalog"
	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/ariefcatur/go-bookstore.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stockMap struct {
	stock map[int64]int
	err   error
}

func (s stockMap) Stock(_ context.Context, id int64) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	n, ok := s.stock[id]
	if !ok {
		return 0, catalog.ErrProductNotFound
	}
	return n, nil
}

type published struct {
	topic string
	key   string
	env   orders.Envelope
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte, _ ...kafkago.Header) error {
	var env orders.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, key: string(key), env: env})
	return nil
}

func newService(t *testing.T, stock StockReader) (*Service, *fakePublisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	pub := &fakePublisher{}
	return &Service{
		Stock:       stock,
		Dedup:       &redisx.Dedup{RDB: rdb, Service: "stockalert"},
		Producer:    pub,
		Threshold:   2,
		ServiceName: "bookstore-stockalert",
		Log:         zap.NewNop(),
	}, pub, mr
}

func placedMessage(t *testing.T, items ...orders.ItemQty) (kafkago.Message, orders.Envelope) {
	t.Helper()
	env := orders.NewEnvelope(orders.EventOrderPlaced, "bookstore-api", "ORD1", "",
		kafkax.MustMarshal(orders.OrderPlacedPayload{OrderID: "ORD1", CustomerID: 1, Items: items, Total: "10.00"}))
	return kafkago.Message{Value: kafkax.MustMarshal(env)}, env
}

func TestHandleOrderPlaced_PublishesLowStock(t *testing.T) {
	svc, pub, mr := newService(t, stockMap{stock: map[int64]int{1: 10, 2: 2, 3: 0}})
	m, env := placedMessage(t,
		orders.ItemQty{ProductID: 1, Qty: 1},
		orders.ItemQty{ProductID: 2, Qty: 1},
		orders.ItemQty{ProductID: 3, Qty: 1},
		orders.ItemQty{ProductID: 3, Qty: 1},
		orders.ItemQty{ProductID: 99, Qty: 1},
	)

	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))

	require.Len(t, pub.msgs, 2)
	assert.Equal(t, orders.TopicProductStockLow, pub.msgs[0].topic)
	assert.Equal(t, "2", pub.msgs[0].key)
	assert.Equal(t, orders.EventProductStockLow, pub.msgs[0].env.EventType)
	assert.Equal(t, "ORD1", pub.msgs[0].env.CorrelationID)

	p, err := kafkax.UnwrapPayload[orders.ProductStockLowPayload](pub.msgs[1].env.Payload)
	require.NoError(t, err)
	assert.Equal(t, orders.ProductStockLowPayload{ProductID: 3, Stock: 0, Threshold: 2, OrderID: "ORD1"}, p)

	assert.True(t, mr.Exists("dedup:stockalert:"+env.EventID))
}

func TestHandleOrderPlaced_DuplicateIgnored(t *testing.T) {
	svc, pub, _ := newService(t, stockMap{stock: map[int64]int{1: 0}})
	m, _ := placedMessage(t, orders.ItemQty{ProductID: 1, Qty: 1})

	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), m))
	assert.Len(t, pub.msgs, 1)
}

func TestHandleOrderPlaced_FailureReleasesClaim(t *testing.T) {
	svc, pub, mr := newService(t, stockMap{err: errors.New("db down")})
	m, env := placedMessage(t, orders.ItemQty{ProductID: 1, Qty: 1})

	assert.Error(t, svc.HandleOrderPlaced(context.Background(), m))
	assert.False(t, mr.Exists("dedup:stockalert:"+env.EventID))
	assert.Empty(t, pub.msgs)
}

func TestHandleOrderPlaced_IgnoresOtherEvents(t *testing.T) {
	svc, pub, mr := newService(t, stockMap{})
	env := orders.NewEnvelope(orders.EventOrderStatusChanged, "api", "ORD1", "", json.RawMessage(`{}`))

	require.NoError(t, svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)}))
	require.NoError(t, svc.HandleOrderPlaced(context.Background(), kafkago.Message{Value: []byte("garbage")}))
	assert.Empty(t, pub.msgs)
	assert.Empty(t, mr.Keys())
}
