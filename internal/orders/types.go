package orders

import "time"

// Status is the backend-declared order state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether the backend permits a transition to cancelled.
// The backend is the sole authority; this mirrors its rule for tests and the
// dev backend.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// LineItem is one purchased line of an order.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is one past transaction. The client never constructs orders; the
// backend is authoritative for every field, Total included.
type Order struct {
	ID            string     `json:"id"`
	OrderNumber   string     `json:"order_number"`
	Date          time.Time  `json:"date"`
	Status        Status     `json:"status"`
	Items         []LineItem `json:"items"`
	Subtotal      float64    `json:"subtotal"`
	Tax           float64    `json:"tax"`
	Shipping      float64    `json:"shipping,omitempty"`
	Discount      float64    `json:"discount,omitempty"`
	Total         float64    `json:"total"`
	Address       string     `json:"address"`
	PaymentMethod string     `json:"payment_method"`
}

// ComputedTotal evaluates the backend-declared arithmetic relationship. The
// client trusts Total; fixtures are checked against this in tests.
func (o Order) ComputedTotal() float64 {
	return o.Subtotal + o.Tax + o.Shipping - o.Discount
}

// Product is the detail-screen projection of a line item.
type Product struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Subtotal  float64 `json:"subtotal"`
}

// Detail extends Order with the selling store and the Products projection.
// Display-oriented adapter over the same data, not a separate source of
// truth.
type Detail struct {
	Order
	Store    string    `json:"store,omitempty"`
	Products []Product `json:"products"`
}

// DetailFromOrder builds a detail view from a basic list entry. Used when
// the dedicated detail endpoint has no representation for the order.
func DetailFromOrder(o Order) Detail {
	d := Detail{Order: o, Products: make([]Product, 0, len(o.Items))}
	for _, it := range o.Items {
		d.Products = append(d.Products, Product{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.UnitPrice * float64(it.Quantity),
		})
	}
	return d
}

// Filters is the optional history-query shape. Passed through to the backend
// untouched; the client does not interpret it.
type Filters struct {
	Status Status
	From   time.Time
	To     time.Time
	Cursor string
}

// IsZero reports whether no filter was requested.
func (f Filters) IsZero() bool {
	return f.Status == "" && f.From.IsZero() && f.To.IsZero() && f.Cursor == ""
}

// ReorderResult is the backend's answer to a reorder request.
type ReorderResult struct {
	OK      bool   `json:"success"`
	Message string `json:"message"`
}
