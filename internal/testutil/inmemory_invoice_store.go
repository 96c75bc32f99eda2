package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/subscriptions/internal/domain/invoice"
	ierr "github.com/flexprice/subscriptions/internal/errors"
	"github.com/flexprice/subscriptions/internal/types"
)

var _ invoice.Repository = (*InMemoryInvoiceStore)(nil)

// InMemoryInvoiceStore implements invoice.Repository. Its counter behaves
// like the invoice_counters row: increments made inside a transaction that
// rolls back are released.
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]

	counterMu sync.Mutex
	counter   int64

	failMu      sync.Mutex
	createErr   error
	createFails int
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

// FailCreate makes the next times calls to Create return err.
// A negative times fails every call until Clear.
func (s *InMemoryInvoiceStore) FailCreate(err error, times int) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.createErr = err
	s.createFails = times
}

func (s *InMemoryInvoiceStore) injectedError() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	if s.createErr == nil || s.createFails == 0 {
		return nil
	}
	if s.createFails > 0 {
		s.createFails--
	}
	return s.createErr
}

func copyInvoice(inv *invoice.Invoice) *invoice.Invoice {
	if inv == nil {
		return nil
	}
	c := *inv
	return &c
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.injectedError(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.items {
		if existing.InvoiceNumber == inv.InvoiceNumber {
			return ierr.NewError("invoice number already issued").
				WithHint("Invoice number already issued").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.create(ctx, inv.ID, copyInvoice(inv))
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invoice %s not found", id).
			Mark(ierr.ErrNotFound)
	}
	return copyInvoice(inv), nil
}

func (s *InMemoryInvoiceStore) ListByUser(ctx context.Context, userID string) ([]*invoice.Invoice, error) {
	return s.listWhere(ctx, func(inv *invoice.Invoice) bool { return inv.UserID == userID })
}

func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	return s.listWhere(ctx, func(inv *invoice.Invoice) bool { return inv.SubscriptionID == subscriptionID })
}

func (s *InMemoryInvoiceStore) listWhere(ctx context.Context, match func(*invoice.Invoice) bool) ([]*invoice.Invoice, error) {
	invoices, err := s.InMemoryStore.List(ctx, nil,
		func(_ context.Context, inv *invoice.Invoice, _ interface{}) bool {
			return match(inv)
		},
		func(i, j *invoice.Invoice) bool {
			return i.InvoiceNumber < j.InvoiceNumber
		},
	)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i] = copyInvoice(invoices[i])
	}
	return invoices, nil
}

func (s *InMemoryInvoiceStore) GetNextInvoiceNumber(ctx context.Context) (string, error) {
	s.counterMu.Lock()
	s.counter++
	value := s.counter
	s.counterMu.Unlock()

	if tx := txFromContext(ctx); tx != nil {
		tx.record(func() {
			s.counterMu.Lock()
			defer s.counterMu.Unlock()
			s.counter--
		})
	}
	return types.FormatInvoiceNumber(value), nil
}

// Clear removes all invoices, resets the counter and any injected failure
func (s *InMemoryInvoiceStore) Clear() {
	s.InMemoryStore.Clear()

	s.counterMu.Lock()
	s.counter = 0
	s.counterMu.Unlock()

	s.FailCreate(nil, 0)
}
