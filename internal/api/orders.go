package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"tienda.app/internal/apierr"
	"tienda.app/internal/orders"
)

// MsgOrderNotFound is the classified message for a missing order.
const MsgOrderNotFound = "Compra no encontrada"

// OrdersClient implements orders.API over REST.
type OrdersClient struct {
	c *Client
}

// NewOrdersClient wraps a configured transport client.
func NewOrdersClient(c *Client) *OrdersClient { return &OrdersClient{c: c} }

// List fetches the full order list. Filters are forwarded untouched.
func (o *OrdersClient) List(ctx context.Context, f orders.Filters) ([]orders.Order, error) {
	var list []orders.Order
	if err := o.c.do(ctx, http.MethodGet, "/v1/orders", filterQuery(f), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// detailPayload is the documented detail envelope: the order plus store and
// an optional products projection.
type detailPayload struct {
	orders.Order
	Store    string           `json:"store,omitempty"`
	Products []orders.Product `json:"products,omitempty"`
}

// Get fetches fresh detail for one order. A 404 classifies as NotFound with
// the order-specific message.
func (o *OrdersClient) Get(ctx context.Context, id string) (orders.Detail, error) {
	var p detailPayload
	if err := o.c.do(ctx, http.MethodGet, "/v1/orders/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return orders.Detail{}, orderErr(err)
	}
	return toDetail(p), nil
}

// SetStatus requests a status transition; the backend decides legality.
func (o *OrdersClient) SetStatus(ctx context.Context, id string, status orders.Status) (bool, error) {
	var resp struct {
		Updated bool `json:"updated"`
	}
	body := struct {
		Status orders.Status `json:"status"`
	}{Status: status}
	path := "/v1/orders/" + url.PathEscape(id) + "/status"
	if err := o.c.do(ctx, http.MethodPut, path, nil, body, &resp); err != nil {
		return false, orderErr(err)
	}
	return resp.Updated, nil
}

// Reorder asks the backend to clone the order's line items into a new order.
func (o *OrdersClient) Reorder(ctx context.Context, id string) (orders.ReorderResult, error) {
	var res orders.ReorderResult
	path := "/v1/orders/" + url.PathEscape(id) + "/reorder"
	if err := o.c.do(ctx, http.MethodPost, path, nil, nil, &res); err != nil {
		return orders.ReorderResult{}, orderErr(err)
	}
	return res, nil
}

// toDetail adapts the wire payload; a payload without a products projection
// gets one derived from its items.
func toDetail(p detailPayload) orders.Detail {
	if len(p.Products) == 0 {
		d := orders.DetailFromOrder(p.Order)
		d.Store = p.Store
		return d
	}
	return orders.Detail{Order: p.Order, Store: p.Store, Products: p.Products}
}

// orderErr narrows the generic NotFound message to the order domain.
func orderErr(err error) error {
	if apierr.IsKind(err, apierr.KindNotFound) {
		e := apierr.New(apierr.KindNotFound, MsgOrderNotFound)
		e.Status = http.StatusNotFound
		return e
	}
	return err
}

func filterQuery(f orders.Filters) url.Values {
	if f.IsZero() {
		return nil
	}
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if !f.From.IsZero() {
		q.Set("from", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("to", f.To.UTC().Format(time.RFC3339))
	}
	if f.Cursor != "" {
		q.Set("cursor", f.Cursor)
	}
	return q
}
