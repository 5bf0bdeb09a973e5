package handler

import (
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/catering-kart/internal/domain/order"
)

type lineRequest struct {
	OfferingID string `json:"offering_id"`
	MealID     string `json:"meal_id"`
	GuestCount int    `json:"guest_count"`
	Quantity   int    `json:"quantity"`
}

type checkoutRequest struct {
	DeliveryAddress string        `json:"delivery_address"`
	Phone           string        `json:"phone"`
	Instructions    string        `json:"instructions"`
	PaymentMethod   string        `json:"payment_method"`
	EventDate       string        `json:"event_date"`
	Occasion        string        `json:"occasion"`
	Items           []lineRequest `json:"items"`
}

// toDomain converts the body. An empty items list orders the server-held
// cart.
func (req checkoutRequest) toDomain() (order.CheckoutRequest, error) {
	out := order.CheckoutRequest{
		DeliveryAddress: req.DeliveryAddress,
		Phone:           req.Phone,
		Instructions:    req.Instructions,
		PaymentMethod:   order.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		Occasion:        strings.TrimSpace(req.Occasion),
	}
	if d := strings.TrimSpace(req.EventDate); d != "" {
		t, err := parseEventDate(d)
		if err != nil {
			return out, &order.ValidationError{Field: "event_date", Reason: "must be YYYY-MM-DD"}
		}
		out.EventDate = &t
	}
	for _, it := range req.Items {
		id := it.OfferingID
		if id == "" {
			id = it.MealID
		}
		qty := it.Quantity
		if qty == 0 {
			qty = 1
		}
		out.Lines = append(out.Lines, order.LineRequest{
			OfferingID: id,
			GuestCount: it.GuestCount,
			Quantity:   qty,
		})
	}
	return out, nil
}

func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

type checkoutResponse struct {
	OrderID     string       `json:"order_id"`
	Status      order.Status `json:"status"`
	Subtotal    float64      `json:"subtotal"`
	DeliveryFee float64      `json:"delivery_fee"`
	Tax         float64      `json:"tax"`
	Total       float64      `json:"total"`
}

// Checkout handles POST /api/checkout.php. Prices are always taken from
// the catalog; any client-side totals are ignored.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !decode(w, r, &req) {
		return
	}
	in, err := req.toDomain()
	if err != nil {
		h.checkoutFailed(w, r, err)
		return
	}
	o, err := h.Orders.Checkout(r.Context(), identity(r).UserID, in)
	if err != nil {
		h.checkoutFailed(w, r, err)
		return
	}
	h.orderPlaced(r, o, "checkout")
	writeData(w, http.StatusCreated, checkoutResponse{
		OrderID:     o.ID,
		Status:      o.Status,
		Subtotal:    o.Subtotal.InexactFloat64(),
		DeliveryFee: o.DeliveryFee.InexactFloat64(),
		Tax:         o.Tax.InexactFloat64(),
		Total:       o.Total.InexactFloat64(),
	})
}

func (h *Handler) checkoutFailed(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := classify(err)
	h.checkoutFailures.Add(r.Context(), 1, metric.WithAttributes(
		attribute.Int("http.status_code", status),
	))
	h.fail(w, r, err)
}

func (h *Handler) orderPlaced(r *http.Request, o *order.Order, source string) {
	h.ordersCreated.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("order.source", source),
		attribute.String("order.payment_method", string(o.PaymentMethod)),
	))
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.String("order.total", o.Total.StringFixed(2)),
		attribute.Int("order.items", len(o.Items)),
	)
}

// OrderHistory handles GET /api/orders.php.
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.History(r.Context(), identity(r).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrders(orders))
}

// AdminListOrders handles GET /api/admin/orders.php. ?status= filters and
// ?id= returns a single order.
func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := q.Get("id"); id != "" {
		o, err := h.Orders.Get(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeData(w, http.StatusOK, toOrder(*o))
		return
	}

	var f order.ListFilter
	if s := q.Get("status"); s != "" && s != "all" {
		st, err := order.ParseStatus(s)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		f.Status = st
	}
	orders, err := h.Orders.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrders(orders))
}

type adminOrderRequest struct {
	checkoutRequest
	UserID string `json:"user_id"`
}

// AdminCreateOrder handles POST /api/admin/orders.php. The order is placed
// on behalf of user_id and needs explicit items.
func (h *Handler) AdminCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req adminOrderRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		h.fail(w, r, &order.ValidationError{Field: "user_id", Reason: "required"})
		return
	}
	if len(req.Items) == 0 {
		h.fail(w, r, &order.ValidationError{Field: "items", Reason: "required"})
		return
	}
	in, err := req.toDomain()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	u, err := h.Auth.GetUser(r.Context(), strings.TrimSpace(req.UserID))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	o, err := h.Orders.Checkout(r.Context(), u.ID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.orderPlaced(r, o, "admin")
	writeData(w, http.StatusCreated, toOrder(*o))
}

type statusRequest struct {
	Status string `json:"status"`
}

// AdminUpdateOrder handles PUT /api/admin/orders.php?id=.
func (h *Handler) AdminUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toOrder(*o))
}

// AdminDeleteOrder handles DELETE /api/admin/orders.php?id=.
func (h *Handler) AdminDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	if err := h.Orders.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, "Order deleted")
}
