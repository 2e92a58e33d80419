// Package devapi is a local stub backend implementing the Auth and Orders
// REST contract so the client can be exercised without the production
// backend. State lives in memory and resets on restart.
package devapi

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"tienda.app/internal/orders"
	"tienda.app/internal/session"
)

var (
	ErrNotFound       = errors.New("devapi: not found")
	ErrUnauthorized   = errors.New("devapi: unauthorized")
	ErrTransition     = errors.New("devapi: status transition not allowed")
	ErrNotReorderable = errors.New("devapi: only completed orders can be reordered")
)

type account struct {
	user         session.User
	passwordHash string
}

type orderRecord struct {
	userID string
	store  string
	order  orders.Order
}

// Store keeps accounts and orders in process memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]account // documentType:documentNumber
	orders   map[string]*orderRecord
	seq      int
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]account),
		orders:   make(map[string]*orderRecord),
		now:      time.Now,
	}
}

func accountKey(documentType, documentNumber string) string {
	return strings.ToLower(documentType) + ":" + documentNumber
}

// AddAccount registers a user with a bcrypt-hashed password.
func (s *Store) AddAccount(u session.User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[accountKey(u.DocumentType, u.DocumentNumber)] = account{
		user:         u,
		passwordHash: string(hash),
	}
	return nil
}

// Authenticate checks document plus password and returns the profile.
func (s *Store) Authenticate(documentType, documentNumber, password string) (session.User, error) {
	s.mu.RLock()
	acc, ok := s.accounts[accountKey(documentType, documentNumber)]
	s.mu.RUnlock()
	if !ok {
		return session.User{}, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.passwordHash), []byte(password)); err != nil {
		return session.User{}, ErrUnauthorized
	}
	return acc.user, nil
}

// PutOrder stores an order owned by userID.
func (s *Store) PutOrder(userID, storeName string, o orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = &orderRecord{userID: userID, store: storeName, order: o}
}

// ListOrders returns the user's orders, newest first, optionally filtered.
func (s *Store) ListOrders(userID string, f orders.Filters) []orders.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0)
	for _, rec := range s.orders {
		if rec.userID != userID {
			continue
		}
		o := rec.order
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && o.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && o.Date.After(f.To) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

// GetOrder returns the detail view of one order owned by userID.
func (s *Store) GetOrder(userID, id string) (orders.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.orders[id]
	if !ok || rec.userID != userID {
		return orders.Detail{}, ErrNotFound
	}
	d := orders.DetailFromOrder(rec.order)
	d.Store = rec.store
	return d, nil
}

// SetStatus applies a status transition. Only pending or processing orders
// may become cancelled.
func (s *Store) SetStatus(userID, id string, status orders.Status) error {
	if status != orders.StatusCancelled {
		return ErrTransition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[id]
	if !ok || rec.userID != userID {
		return ErrNotFound
	}
	if !rec.order.Status.Cancellable() {
		return ErrTransition
	}
	rec.order.Status = orders.StatusCancelled
	return nil
}

// Reorder clones the line items of a completed order into a new pending one.
func (s *Store) Reorder(userID, id string) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.orders[id]
	if !ok || rec.userID != userID {
		return orders.Order{}, ErrNotFound
	}
	if rec.order.Status != orders.StatusCompleted {
		return orders.Order{}, ErrNotReorderable
	}

	src := rec.order
	s.seq++
	clone := orders.Order{
		ID:            uuid.NewString(),
		OrderNumber:   fmt.Sprintf("RE-%06d", s.seq),
		Date:          s.now().UTC(),
		Status:        orders.StatusPending,
		Items:         append([]orders.LineItem(nil), src.Items...),
		Subtotal:      src.Subtotal,
		Tax:           src.Tax,
		Shipping:      src.Shipping,
		Discount:      src.Discount,
		Total:         src.Total,
		Address:       src.Address,
		PaymentMethod: src.PaymentMethod,
	}
	s.orders[clone.ID] = &orderRecord{userID: userID, store: rec.store, order: clone}
	return clone, nil
}

// Seed loads a demo account and a pair of orders for local development.
func (s *Store) Seed() error {
	demo := session.User{
		ID:             "1",
		DocumentType:   "dni",
		DocumentNumber: "12345678",
		FirstName:      "María",
		LastName:       "Quispe",
		Email:          "maria@example.com",
	}
	if err := s.AddAccount(demo, "secreto123"); err != nil {
		return err
	}

	now := s.now().UTC()
	s.PutOrder(demo.ID, "Tienda Central", orders.Order{
		ID:          "1",
		OrderNumber: "ORD-000101",
		Date:        now.Add(-72 * time.Hour),
		Status:      orders.StatusPending,
		Items: []orders.LineItem{
			{Name: "Audífonos inalámbricos", Quantity: 1, UnitPrice: 79.50},
			{Name: "Cable USB-C", Quantity: 2, UnitPrice: 8.99},
		},
		Subtotal:      97.48,
		Tax:           11.70,
		Shipping:      5.99,
		Total:         115.17,
		Address:       "Av. Arequipa 1234, Lima",
		PaymentMethod: "visa **** 4242",
	})
	s.PutOrder(demo.ID, "Tienda Central", orders.Order{
		ID:          "2",
		OrderNumber: "ORD-000102",
		Date:        now.Add(-240 * time.Hour),
		Status:      orders.StatusCompleted,
		Items: []orders.LineItem{
			{Name: "Mochila urbana", Quantity: 1, UnitPrice: 120.00},
		},
		Subtotal:      120.00,
		Tax:           14.40,
		Shipping:      0,
		Discount:      10.00,
		Total:         124.40,
		Address:       "Av. Arequipa 1234, Lima",
		PaymentMethod: "yape",
	})
	return nil
}
