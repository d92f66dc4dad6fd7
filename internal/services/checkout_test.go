package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"lojaonline/internal/database"
	"lojaonline/internal/events"
	"lojaonline/internal/models"
	"lojaonline/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderPlaced
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, evt events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMailer struct {
	mu     sync.Mutex
	orders []int64
}

func (m *recordingMailer) SendOrderConfirmation(to, name string, orderID int64, summary *models.CheckoutSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, orderID)
	return nil
}

// failingPaymentStore fails RecordPayment inside the real transaction.
type failingPaymentStore struct {
	*database.Database
}

func (s failingPaymentStore) WithTx(ctx context.Context, fn func(tx database.OrderTx) error) error {
	return s.Database.WithTx(ctx, func(tx database.OrderTx) error {
		return fn(failingPaymentTx{tx})
	})
}

type failingPaymentTx struct {
	database.OrderTx
}

func (failingPaymentTx) RecordPayment(ctx context.Context, orderID int64, amount decimal.Decimal, status string) error {
	return errors.New("payments table unavailable")
}

type fixture struct {
	db       *database.Database
	svc      *CheckoutService
	pub      *recordingPublisher
	mail     *recordingMailer
	customer *models.Customer
	a, b     *models.Product
}

func newFixture(t *testing.T) *fixture {
	db := openTestDB(t)
	f := &fixture{
		db:       db,
		pub:      &recordingPublisher{},
		mail:     &recordingMailer{},
		customer: addCustomer(t, db, "maria@example.com"),
		a:        addProduct(t, db, "Caneca", "50.00", 5),
		b:        addProduct(t, db, "Camiseta", "30.00", 3),
	}
	f.svc = NewCheckoutService(db, f.pub, f.mail)
	return f
}

func (f *fixture) request(cart session.Cart, token string) CommitRequest {
	return CommitRequest{
		CustomerID:    f.customer.ID,
		CustomerName:  f.customer.Name,
		CustomerEmail: f.customer.Email,
		Cart:          cart,
		Token:         token,
	}
}

func TestPreview_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Preview(context.Background(), map[int64]int{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPreview_ProductNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Preview(context.Background(), map[int64]int{f.a.ID: 1, 999: 1})

	var nf *ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(999), nf.ProductID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestPreview_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Preview(context.Background(), map[int64]int{f.a.ID: 10})

	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Caneca", ise.Product)
	assert.Equal(t, 10, ise.Requested)
	assert.Equal(t, 5, ise.Available)
	assert.Equal(t, "Estoque insuficiente para Caneca.", err.Error())
}

func TestPreview_TotalAndIdempotence(t *testing.T) {
	f := newFixture(t)
	snapshot := map[int64]int{f.b.ID: 1, f.a.ID: 2}

	first, err := f.svc.Preview(context.Background(), snapshot)
	require.NoError(t, err)
	second, err := f.svc.Preview(context.Background(), snapshot)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, first.Lines, 2)
	assert.Equal(t, f.a.ID, first.Lines[0].Product.ID, "lines are ordered by product id")
	assert.True(t, decimal.RequireFromString("100.00").Equal(first.Lines[0].Subtotal))
	assert.True(t, decimal.RequireFromString("130.00").Equal(first.Total))
	assert.Equal(t, 3, first.ItemCount())
	assert.Zero(t, orderCount(t, f.db), "preview never writes")
}

func TestPreview_ExactDecimalTotal(t *testing.T) {
	db := openTestDB(t)
	p := addProduct(t, db, "Bala", "0.10", 100)
	q := addProduct(t, db, "Chiclete", "0.20", 100)
	svc := NewCheckoutService(db, nil, nil)

	summary, err := svc.Preview(context.Background(), map[int64]int{p.ID: 3, q.ID: 7})
	require.NoError(t, err)

	sum := decimal.Zero
	for _, l := range summary.Lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	assert.True(t, sum.Equal(summary.Total))
	assert.Equal(t, "1.70", summary.Total.StringFixed(2))
}

func TestCommit_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cart := session.Cart{f.a.ID: 2, f.b.ID: 1}

	res, err := f.svc.Commit(ctx, f.request(cart, "tok-1"))
	require.NoError(t, err)
	f.svc.Wait()

	assert.False(t, res.Replayed)
	assert.Zero(t, cart.Len(), "cart is cleared after commit")
	assert.Equal(t, 1, orderCount(t, f.db))

	order, err := f.db.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, order.CustomerID)
	assert.True(t, decimal.RequireFromString("130.00").Equal(order.Total))
	require.Len(t, order.Lines, 2)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("50.00").Equal(order.Lines[0].UnitPrice))
	require.NotNil(t, order.Payment)
	assert.True(t, order.Total.Equal(order.Payment.Amount))
	assert.Equal(t, models.PaymentStatusSuccess, order.Payment.Status)

	assert.Equal(t, 3, stockOf(t, f.db, f.a.ID))
	assert.Equal(t, 2, stockOf(t, f.db, f.b.ID))

	require.Len(t, f.pub.events, 1)
	assert.Equal(t, res.OrderID, f.pub.events[0].OrderID)
	assert.Equal(t, []int64{res.OrderID}, f.mail.orders)
}

func TestCommit_InsufficientStockLeavesEverything(t *testing.T) {
	f := newFixture(t)
	cart := session.Cart{f.a.ID: 10}

	_, err := f.svc.Commit(context.Background(), f.request(cart, "tok-2"))
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)

	assert.Zero(t, orderCount(t, f.db))
	assert.Equal(t, map[int64]int{f.a.ID: 10}, cart.Snapshot())
	assert.Equal(t, 5, stockOf(t, f.db, f.a.ID))
	f.svc.Wait()
	assert.Empty(t, f.pub.events)
}

func TestCommit_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Commit(context.Background(), f.request(session.Cart{}, "tok-3"))
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, orderCount(t, f.db))
}

func TestCommit_ProductRemovedBeforeCommit(t *testing.T) {
	f := newFixture(t)
	cart := session.Cart{f.a.ID: 1, 4242: 1}

	_, err := f.svc.Commit(context.Background(), f.request(cart, "tok-4"))
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Equal(t, 2, cart.Len())
	assert.Equal(t, 5, stockOf(t, f.db, f.a.ID))
}

func TestCommit_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	svc := NewCheckoutService(failingPaymentStore{f.db}, f.pub, nil)
	cart := session.Cart{f.a.ID: 2, f.b.ID: 1}

	_, err := svc.Commit(context.Background(), f.request(cart, "tok-5"))
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorContains(t, pe.Err, "payments table unavailable")

	assert.Zero(t, orderCount(t, f.db), "no partial order survives")
	assert.Equal(t, 5, stockOf(t, f.db, f.a.ID))
	assert.Equal(t, 3, stockOf(t, f.db, f.b.ID))
	assert.Equal(t, 2, cart.Len(), "cart is kept for retry")
}

func TestCommit_ReplayedTokenReturnsSameOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Commit(ctx, f.request(session.Cart{f.a.ID: 1}, "tok-6"))
	require.NoError(t, err)

	again := session.Cart{f.a.ID: 1}
	second, err := f.svc.Commit(ctx, f.request(again, "tok-6"))
	require.NoError(t, err)
	f.svc.Wait()

	assert.True(t, second.Replayed)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Zero(t, again.Len())
	assert.Equal(t, 1, orderCount(t, f.db))
	assert.Equal(t, 4, stockOf(t, f.db, f.a.ID), "stock is decremented once")
}

func TestCommit_TokenOfAnotherCustomerIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Commit(ctx, f.request(session.Cart{f.a.ID: 1}, "shared-key"))
	require.NoError(t, err)

	other := addCustomer(t, f.db, "joao@example.com")
	cart := session.Cart{f.b.ID: 2}
	res, err := f.svc.Commit(ctx, CommitRequest{
		CustomerID: other.ID,
		Cart:       cart,
		Token:      "shared-key",
	})
	f.svc.Wait()

	require.ErrorIs(t, err, ErrCheckoutConflict)
	assert.Nil(t, res)
	assert.Equal(t, 2, cart[f.b.ID], "cart is kept")
	assert.Equal(t, 1, orderCount(t, f.db))
	assert.Equal(t, 3, stockOf(t, f.db, f.b.ID))

	order, err := f.db.GetOrder(ctx, first.OrderID)
	require.NoError(t, err)
	assert.Equal(t, f.customer.ID, order.CustomerID)

	// Same cart contents, still another customer.
	_, err = f.svc.Commit(ctx, CommitRequest{
		CustomerID: other.ID,
		Cart:       session.Cart{f.a.ID: 1},
		Token:      "shared-key",
	})
	assert.ErrorIs(t, err, ErrCheckoutConflict)
}

func TestCommit_StaleTokenWithNewCartIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Commit(ctx, f.request(session.Cart{f.a.ID: 1}, "tok-stale"))
	require.NoError(t, err)

	for _, cart := range []session.Cart{
		{f.b.ID: 1},
		{f.a.ID: 2},
		{f.a.ID: 1, f.b.ID: 1},
	} {
		want := cart.Snapshot()
		_, err := f.svc.Commit(ctx, f.request(cart, "tok-stale"))
		assert.ErrorIs(t, err, ErrCheckoutConflict, "cart %v", want)
		assert.Equal(t, want, cart.Snapshot(), "cart is kept")
	}
	f.svc.Wait()

	assert.Equal(t, 1, orderCount(t, f.db))
	assert.Equal(t, 4, stockOf(t, f.db, f.a.ID))
	assert.Equal(t, 3, stockOf(t, f.db, f.b.ID))

	// A fresh token commits the new cart normally.
	res, err := f.svc.Commit(ctx, f.request(session.Cart{f.b.ID: 1}, "tok-fresh"))
	require.NoError(t, err)
	f.svc.Wait()
	assert.False(t, res.Replayed)
	assert.Equal(t, 2, orderCount(t, f.db))
}

func TestCommit_GeneratesTokenWhenMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r1, err := f.svc.Commit(ctx, f.request(session.Cart{f.a.ID: 1}, ""))
	require.NoError(t, err)
	r2, err := f.svc.Commit(ctx, f.request(session.Cart{f.a.ID: 1}, ""))
	require.NoError(t, err)
	f.svc.Wait()

	assert.NotEqual(t, r1.OrderID, r2.OrderID)
	assert.NotEmpty(t, r1.Summary.Token)
	assert.Equal(t, 2, orderCount(t, f.db))
}

func TestCommit_ConcurrentLastUnit(t *testing.T) {
	db := openTestDB(t)
	customer := addCustomer(t, db, "corrida@example.com")
	last := addProduct(t, db, "Última unidade", "99.90", 1)
	svc := NewCheckoutService(db, nil, nil)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Commit(context.Background(), CommitRequest{
				CustomerID: customer.ID,
				Cart:       session.Cart{last.ID: 1},
				Token:      fmt.Sprintf("buyer-%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("buyer %d: unexpected error %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	svc.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, rejected)
	assert.Equal(t, 1, orderCount(t, db))
	assert.Equal(t, 0, stockOf(t, db, last.ID))
}

func TestCommit_OutOfStockSecondLineRejectsWholeCart(t *testing.T) {
	db := openTestDB(t)
	customer := addCustomer(t, db, "cenario@example.com")
	a := addProduct(t, db, "Produto A", "10.00", 5)
	b := addProduct(t, db, "Produto B", "20.00", 0)
	svc := NewCheckoutService(db, nil, nil)
	cart := session.Cart{a.ID: 2, b.ID: 1}

	_, err := svc.Commit(context.Background(), CommitRequest{CustomerID: customer.ID, Cart: cart, Token: "c1"})
	var ise *InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "Produto B", ise.Product)
	assert.Zero(t, ise.Available)

	assert.Zero(t, orderCount(t, db))
	assert.Equal(t, map[int64]int{a.ID: 2, b.ID: 1}, cart.Snapshot())
	assert.Equal(t, 5, stockOf(t, db, a.ID), "no stock is taken from the valid line")
}

func TestCommit_SingleProductScenario(t *testing.T) {
	db := openTestDB(t)
	customer := addCustomer(t, db, "cenario@example.com")
	a := addProduct(t, db, "Produto A", "10.00", 5)
	svc := NewCheckoutService(db, nil, nil)
	cart := session.Cart{a.ID: 2}

	res, err := svc.Commit(context.Background(), CommitRequest{CustomerID: customer.ID, Cart: cart, Token: "c2"})
	require.NoError(t, err)
	svc.Wait()

	order, err := db.GetOrder(context.Background(), res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "20.00", order.Total.StringFixed(2))
	require.Len(t, order.Lines, 1)
	assert.Equal(t, a.ID, order.Lines[0].ProductID)
	assert.Equal(t, 2, order.Lines[0].Quantity)
	assert.Equal(t, "10.00", order.Lines[0].UnitPrice.StringFixed(2))
	assert.Zero(t, cart.Len())
}
