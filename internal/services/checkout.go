package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"lojaonline/internal/database"
	"lojaonline/internal/events"
	"lojaonline/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutStore is what the checkout needs from the database.
type CheckoutStore interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	WithTx(ctx context.Context, fn func(tx database.OrderTx) error) error
	GetOrderByToken(ctx context.Context, token string) (*models.Order, error)
}

// CartState is the session cart as seen by the checkout.
type CartState interface {
	Snapshot() map[int64]int
	Clear()
}

// OrderMailer sends the confirmation after a successful checkout.
type OrderMailer interface {
	SendOrderConfirmation(to, name string, orderID int64, summary *models.CheckoutSummary) error
}

type productReader interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

type CommitRequest struct {
	CustomerID    int64
	CustomerName  string
	CustomerEmail string
	Cart          CartState
	Token         string
}

type CommitResult struct {
	OrderID  int64
	Summary  *models.CheckoutSummary
	Replayed bool
}

// CheckoutService prices a cart against the live catalog and turns it into
// an order, its lines and a payment in a single transaction.
type CheckoutService struct {
	store     CheckoutStore
	publisher events.Publisher
	mailer    OrderMailer
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewCheckoutService(store CheckoutStore, publisher events.Publisher, mailer OrderMailer) *CheckoutService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CheckoutService{
		store:     store,
		publisher: publisher,
		mailer:    mailer,
		timeout:   10 * time.Second,
	}
}

// Preview validates every cart line against the catalog and returns the
// priced summary. It never writes.
func (s *CheckoutService) Preview(ctx context.Context, snapshot map[int64]int) (*models.CheckoutSummary, error) {
	return price(ctx, s.store, snapshot)
}

func price(ctx context.Context, products productReader, snapshot map[int64]int) (*models.CheckoutSummary, error) {
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	ids := sortedIDs(snapshot)
	summary := &models.CheckoutSummary{Lines: make([]models.CheckoutLine, 0, len(ids)), Total: decimal.Zero}
	for _, id := range ids {
		qty := snapshot[id]
		p, err := products.GetProduct(ctx, id)
		if errors.Is(err, database.ErrNotFound) {
			return nil, &ProductNotFoundError{ProductID: id}
		}
		if err != nil {
			return nil, err
		}
		if !p.InStock(qty) {
			return nil, &InsufficientStockError{Product: p.Name, Requested: qty, Available: p.Stock}
		}
		line := models.NewCheckoutLine(*p, qty)
		summary.Lines = append(summary.Lines, line)
		summary.Total = summary.Total.Add(line.Subtotal)
	}
	return summary, nil
}

func sortedIDs(snapshot map[int64]int) []int64 {
	ids := make([]int64, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Commit re-validates the cart inside a transaction, decrements stock and
// records the order, its lines and the simulated payment. The cart is
// cleared only after the transaction commits.
//
// A token that already produced an order returns that order again, but only
// to the same customer with the same cart contents. Any other reuse is
// rejected with ErrCheckoutConflict and the cart is left alone.
func (s *CheckoutService) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	snapshot := req.Cart.Snapshot()
	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}
	if req.Token == "" {
		req.Token = uuid.NewString()
	}

	existing, err := s.store.GetOrderByToken(ctx, req.Token)
	switch {
	case err == nil:
		return s.replay(req, snapshot, existing)
	case !errors.Is(err, database.ErrNotFound):
		log.Printf("CheckoutService.Commit - token lookup failed: %v", err)
		return nil, &PersistenceError{Err: err}
	}

	var (
		orderID int64
		summary *models.CheckoutSummary
	)
	err = s.store.WithTx(ctx, func(tx database.OrderTx) error {
		var err error
		summary, err = price(ctx, tx, snapshot)
		if err != nil {
			return err
		}
		for _, line := range summary.Lines {
			err := tx.DecrementStock(ctx, line.Product.ID, line.Quantity)
			if errors.Is(err, database.ErrStockConflict) {
				return &InsufficientStockError{Product: line.Product.Name, Requested: line.Quantity, Available: line.Product.Stock}
			}
			if err != nil {
				return err
			}
		}

		orderID, err = tx.CreateOrder(ctx, req.CustomerID, summary.Total, req.Token)
		if errors.Is(err, database.ErrDuplicate) {
			return fmt.Errorf("%w: %v", ErrDuplicateCheckout, err)
		}
		if err != nil {
			return err
		}
		for _, line := range summary.Lines {
			if err := tx.AddLine(ctx, orderID, line.Product.ID, line.Quantity, line.UnitPrice); err != nil {
				return err
			}
		}
		return tx.RecordPayment(ctx, orderID, summary.Total, models.PaymentStatusSuccess)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateCheckout):
		existing, lookupErr := s.store.GetOrderByToken(ctx, req.Token)
		if lookupErr != nil {
			log.Printf("CheckoutService.Commit - replay lookup failed: %v", lookupErr)
			return nil, &PersistenceError{Err: lookupErr}
		}
		return s.replay(req, snapshot, existing)
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrProductNotFound), errors.Is(err, ErrInsufficientStock):
		log.Printf("CheckoutService.Commit - customer %d rejected: %v", req.CustomerID, err)
		return nil, err
	default:
		log.Printf("CheckoutService.Commit - customer %d persistence failure: %v", req.CustomerID, err)
		return nil, &PersistenceError{Err: err}
	}

	req.Cart.Clear()
	summary.Token = req.Token
	log.Printf("CheckoutService.Commit - order %d created for customer %d, total %s", orderID, req.CustomerID, summary.Total.StringFixed(2))

	s.notify(req, orderID, summary)
	return &CommitResult{OrderID: orderID, Summary: summary}, nil
}

// replay answers a commit whose token already produced an order.
func (s *CheckoutService) replay(req CommitRequest, snapshot map[int64]int, existing *models.Order) (*CommitResult, error) {
	if existing.CustomerID != req.CustomerID || !sameItems(existing, snapshot) {
		log.Printf("CheckoutService.Commit - token %s of order %d reused by customer %d with another cart", req.Token, existing.ID, req.CustomerID)
		return nil, ErrCheckoutConflict
	}
	log.Printf("CheckoutService.Commit - token %s already committed as order %d", req.Token, existing.ID)
	req.Cart.Clear()
	return &CommitResult{OrderID: existing.ID, Replayed: true}, nil
}

// sameItems reports whether the order holds exactly the cart quantities.
func sameItems(o *models.Order, snapshot map[int64]int) bool {
	if len(o.Lines) != len(snapshot) {
		return false
	}
	for _, l := range o.Lines {
		if snapshot[l.ProductID] != l.Quantity {
			return false
		}
	}
	return true
}

// notify publishes the order event and mails the customer in the
// background. Failures are logged only.
func (s *CheckoutService) notify(req CommitRequest, orderID int64, summary *models.CheckoutSummary) {
	lines := make([]events.OrderLine, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		lines = append(lines, events.OrderLine{ProductID: l.Product.ID, Quantity: l.Quantity, UnitPrice: l.UnitPrice})
	}
	evt := events.NewOrderPlaced(orderID, req.CustomerID, summary.Total, lines)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.publisher.PublishOrderPlaced(ctx, evt); err != nil {
			log.Printf("CheckoutService.notify - publish order %d failed: %v", orderID, err)
		}
		if s.mailer != nil && req.CustomerEmail != "" {
			if err := s.mailer.SendOrderConfirmation(req.CustomerEmail, req.CustomerName, orderID, summary); err != nil {
				log.Printf("CheckoutService.notify - confirmation email for order %d failed: %v", orderID, err)
			}
		}
	}()
}

// Wait blocks until background notifications have finished.
func (s *CheckoutService) Wait() {
	s.wg.Wait()
}
