package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tienda.app/internal/apierr"
	"tienda.app/internal/orders"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c, srv
}

func TestLoginSuccess(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID header")
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing Idempotency-Key header on POST")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"id":"1","document_type":"dni","document_number":"12345678"},"token":"abc"}}`))
	})
	c, _ := newTestClient(t, handler)

	user, token, err := NewAuthClient(c).Login(context.Background(), "dni", "12345678", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != "1" || user.DocumentNumber != "12345678" || token != "abc" {
		t.Fatalf("unexpected login result: %+v token=%q", user, token)
	}
}

func TestLoginUnauthorized(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid credentials"}}`))
	})
	c, _ := newTestClient(t, handler)

	_, _, err := NewAuthClient(c).Login(context.Background(), "dni", "12345678", "bad")
	if !apierr.IsKind(err, apierr.KindUnauthorized) {
		t.Fatalf("kind = %v, want unauthorized", apierr.KindOf(err))
	}
	if apierr.Message(err) != apierr.MsgUnauthorized {
		t.Fatalf("message = %q", apierr.Message(err))
	}
}

func TestListSendsBearerToken(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"1","order_number":"ORD-1","status":"pending","total":10}]}`))
	})
	c, _ := newTestClient(t, handler, WithTokenSource(staticToken("tok-1")))

	list, err := NewOrdersClient(c).List(context.Background(), orders.Filters{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != "1" || list[0].Status != orders.StatusPending {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestListForwardsFilters(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("status") != "completed" || q.Get("cursor") != "c-2" {
			t.Errorf("unexpected query: %v", q)
		}
		if q.Get("from") == "" {
			t.Error("missing from filter")
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	c, _ := newTestClient(t, handler)

	_, err := NewOrdersClient(c).List(context.Background(), orders.Filters{
		Status: orders.StatusCompleted,
		From:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Cursor: "c-2",
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
}

func TestGetNotFoundMessage(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"message":"order not found"}}`))
	})
	c, _ := newTestClient(t, handler)

	_, err := NewOrdersClient(c).Get(context.Background(), "99")
	if !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("kind = %v, want not found", apierr.KindOf(err))
	}
	if apierr.Message(err) != MsgOrderNotFound {
		t.Fatalf("message = %q, want %q", apierr.Message(err), MsgOrderNotFound)
	}
}

func TestGetProjectsProductsWhenMissing(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{
			"id":"7","order_number":"ORD-7","status":"completed","store":"Tienda Centro",
			"items":[{"name":"Polo","quantity":2,"unit_price":25.5}],
			"subtotal":51,"tax":9.18,"total":60.18}}`))
	})
	c, _ := newTestClient(t, handler)

	d, err := NewOrdersClient(c).Get(context.Background(), "7")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.Store != "Tienda Centro" {
		t.Fatalf("store = %q", d.Store)
	}
	if len(d.Products) != 1 || d.Products[0].Subtotal != 51 {
		t.Fatalf("products not projected from items: %+v", d.Products)
	}
}

func TestSetStatusValidationDetails(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		if r.Header.Get("Idempotency-Key") == "" {
			t.Error("missing Idempotency-Key header on PUT")
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"status transition not allowed","details":["only pending or processing orders can be cancelled"]}}`))
	})
	c, _ := newTestClient(t, handler)

	_, err := NewOrdersClient(c).SetStatus(context.Background(), "2", orders.StatusCancelled)
	if !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("kind = %v, want validation", apierr.KindOf(err))
	}
	if apierr.Message(err) != "only pending or processing orders can be cancelled" {
		t.Fatalf("message = %q", apierr.Message(err))
	}
}

func TestNetworkFailureClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	srv.Close() // connection refused from here on

	_, lerr := NewOrdersClient(c).List(context.Background(), orders.Filters{})
	if !apierr.IsKind(lerr, apierr.KindNetwork) {
		t.Fatalf("kind = %v, want network", apierr.KindOf(lerr))
	}
	if apierr.Message(lerr) != apierr.MsgNetwork {
		t.Fatalf("message = %q", apierr.Message(lerr))
	}
}

func TestReorder(t *testing.T) {
	t.Parallel()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders/2/reorder" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data":{"success":true,"message":"Pedido RE-000001 creado"}}`))
	})
	c, _ := newTestClient(t, handler)

	res, err := NewOrdersClient(c).Reorder(context.Background(), "2")
	if err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if !res.OK || res.Message == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
