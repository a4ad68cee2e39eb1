package httpx

import (
	"context"
	"errors"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-bookstore.git/internal/kafka"
	"github.com/ariefcatur/go-bookstore.git/internal/orders"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, in orders.PlaceOrderInput) (string, error)
}

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]orders.Order, error)
	GetOrderStatus(ctx context.Context, orderID string) (orders.Status, error)
	UpdateStatus(ctx context.Context, orderID string, to orders.Status) (orders.Status, error)
}

type StatusCache interface {
	Get(ctx context.Context, orderID string) (string, bool, error)
	Set(ctx context.Context, orderID, status string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers ...kafkago.Header) error
}

type OrdersHandler struct {
	Checkout OrderPlacer
	Orders   OrderStore
	Cache    StatusCache    // optional
	Events   EventPublisher // optional
	Service  string
	Timeout  time.Duration
	Log      *zap.Logger
}

type CreateOrderReq struct {
	CustomerID int64             `json:"customer_id"`
	Items      []orders.CartItem `json:"items"`
	Subtotal   decimal.Decimal   `json:"subtotal"`
	Shipping   decimal.Decimal   `json:"shipping"`
	Total      decimal.Decimal   `json:"total"`
}

type CreateOrderResp struct {
	OrderID string        `json:"order_id"`
	Status  orders.Status `json:"status"`
	Message string        `json:"message"`
}

type UpdateStatusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Get("/customers/{id}/orders", h.listCustomerOrders)
}

func (h *OrdersHandler) RegisterAdmin(r chi.Router) {
	r.Patch("/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CustomerID <= 0 {
		writeError(w, http.StatusBadRequest, codeInvalidInput, "customer_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
	defer cancel()

	in := orders.PlaceOrderInput{
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Subtotal:   req.Subtotal,
		Shipping:   req.Shipping,
		Total:      req.Total,
	}
	orderID, err := h.Checkout.PlaceOrder(ctx, in)
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	// setelah commit: cache status + publish event, gagal di sini tidak membatalkan order
	h.cacheStatus(r.Context(), orderID, orders.StatusPlaced)
	h.publish(r, orders.TopicOrderPlaced, orders.EventOrderPlaced, orderID,
		kafkax.MustMarshal(orders.PlacedPayload(orderID, in)))

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID: orderID,
		Status:  orders.StatusPlaced,
		Message: "Your order placed successfully!",
	})
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	const outOfStock = "checkout failed, out of stock"
	kind, _ := orders.KindOf(err)
	switch kind {
	case orders.KindInsufficientStock:
		writeError(w, http.StatusConflict, codeInsufficientStock, outOfStock)
	case orders.KindInvalidOrder:
		writeError(w, http.StatusUnprocessableEntity, codeInvalidOrder, outOfStock)
	case orders.KindInvalidLineItem:
		writeError(w, http.StatusUnprocessableEntity, codeInvalidLineItem, outOfStock)
	default:
		writeError(w, http.StatusServiceUnavailable, codeBackendUnavailable, "service temporarily unavailable")
	}
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	o, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx := r.Context()

	// 1) coba cache
	if h.Cache != nil {
		if s, ok, err := h.Cache.Get(ctx, orderID); err == nil && ok {
			writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": s})
			return
		}
	}

	// 2) fallback DB
	status, err := h.Orders.GetOrderStatus(ctx, orderID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	h.cacheStatus(ctx, orderID, status)
	writeJSON(w, http.StatusOK, map[string]string{"order_id": orderID, "status": string(status)})
}

func (h *OrdersHandler) listCustomerOrders(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.Orders.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if !decodeJSON(w, r, &req) {
		return
	}
	to, ok := orders.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, codeInvalidStatus, "unknown status")
		return
	}

	from, err := h.Orders.UpdateStatus(r.Context(), orderID, to)
	if err != nil {
		h.writeOrderError(w, err)
		return
	}

	h.cacheStatus(r.Context(), orderID, to)
	h.publish(r, orders.TopicOrderStatusChanged, orders.EventOrderStatusChanged, orderID,
		kafkax.MustMarshal(orders.OrderStatusChangedPayload{OrderID: orderID, From: from, To: to}))

	writeJSON(w, http.StatusOK, map[string]any{"order_id": orderID, "from": from, "to": to})
}

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, "order not found")
	case errors.Is(err, orders.ErrInvalidTransition):
		writeError(w, http.StatusConflict, codeInvalidTransition, err.Error())
	default:
		logger(h.Log).Error("orders request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal server error")
	}
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, s orders.Status) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Set(ctx, orderID, string(s)); err != nil {
		logger(h.Log).Warn("status cache write failed", zap.String("order_id", orderID), zap.Error(err))
	}
}

// publish wraps payload in a v1 envelope keyed by order id.
func (h *OrdersHandler) publish(r *http.Request, topic, eventType, orderID string, payload []byte) {
	if h.Events == nil {
		return
	}
	ev := orders.NewEnvelope(eventType, h.Service, orderID, middleware.GetReqID(r.Context()), payload)
	err := h.Events.Publish(r.Context(), topic, orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	if err != nil {
		logger(h.Log).Warn("event publish failed", zap.String("order_id", orderID), zap.String("topic", topic), zap.Error(err))
	}
}

func (h *OrdersHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 5 * time.Second
	}
	return h.Timeout
}
