package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	deliveryservice "pizzeria/internal/delivery/service"
	discountservice "pizzeria/internal/discount/service"
	"pizzeria/internal/domain"
	apperrors "pizzeria/internal/errors"
	"pizzeria/internal/infrastructure/mysql"
	"pizzeria/internal/scheduler"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, nil
}

func (f *fakeTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}

func (f *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (f *fakeTx) Commit() error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeTxManager struct {
	txs      []*fakeTx
	beginErr error
}

func (m *fakeTxManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (mysql.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	tx := &fakeTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *fakeTxManager) last() *fakeTx {
	return m.txs[len(m.txs)-1]
}

// memoryStore backs every repository fake. Rows are copied in and out so
// callers cannot mutate stored state without an explicit update.
type memoryStore struct {
	nextID        uint
	orders        map[uint]domain.Order
	items         map[uint][]domain.OrderItem
	confirmations map[uint]domain.OrderConfirmation
	customers     map[uint]domain.Customer
	menu          map[uint]domain.MenuItem
	deliveries    map[uint]domain.Delivery
	couriers      map[uint]domain.Courier
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nextID:        100,
		orders:        map[uint]domain.Order{},
		items:         map[uint][]domain.OrderItem{},
		confirmations: map[uint]domain.OrderConfirmation{},
		customers:     map[uint]domain.Customer{},
		menu:          map[uint]domain.MenuItem{},
		deliveries:    map[uint]domain.Delivery{},
		couriers:      map[uint]domain.Courier{},
	}
}

func (m *memoryStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) addMenuItem(id uint, name string, category domain.MenuCategory, basePrice string) {
	m.menu[id] = domain.MenuItem{ID: id, Name: name, Category: category, BasePrice: decimal.RequireFromString(basePrice)}
}

func (m *memoryStore) addCourier(id uint, name string, postalCode *string, available bool) {
	m.couriers[id] = domain.Courier{ID: id, Name: name, PostalCode: postalCode, IsAvailable: available}
}

func (m *memoryStore) deliveryForOrder(orderID uint) (domain.Delivery, bool) {
	for _, d := range m.deliveries {
		if d.OrderID == orderID {
			return d, true
		}
	}
	return domain.Delivery{}, false
}

type memOrders struct{ *memoryStore }

func (r memOrders) Insert(ctx context.Context, tx mysql.Tx, order domain.Order) (uint, error) {
	order.ID = r.id()
	order.Items = nil
	r.orders[order.ID] = order
	return order.ID, nil
}

func (r memOrders) FindByID(ctx context.Context, id uint) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	return &o, nil
}

func (r memOrders) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r memOrders) UpdateStatus(ctx context.Context, tx mysql.Tx, id uint, status domain.OrderStatus) error {
	o, ok := r.orders[id]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	o.Status = status
	r.orders[id] = o
	return nil
}

func (r memOrders) ListByCustomer(ctx context.Context, customerID uint) ([]domain.OrderSummary, error) {
	var out []domain.OrderSummary
	for _, o := range r.orders {
		if o.CustomerID == customerID {
			out = append(out, domain.OrderSummary{ID: o.ID, Status: o.Status, TotalPrice: o.TotalPrice})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r memOrders) ListActive(ctx context.Context) ([]domain.OrderSummary, error) {
	var out []domain.OrderSummary
	for _, o := range r.orders {
		if o.Status.IsTerminal() {
			continue
		}
		summary := domain.OrderSummary{ID: o.ID, Status: o.Status, CreatedAt: o.CreatedAt}
		if d, ok := r.deliveryForOrder(o.ID); ok {
			summary.EstimatedDeliveryTime = d.EstimatedDeliveryTime
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type memItems struct{ *memoryStore }

func (r memItems) Insert(ctx context.Context, tx mysql.Tx, item domain.OrderItem) (uint, error) {
	item.ID = r.id()
	r.items[item.OrderID] = append(r.items[item.OrderID], item)
	return item.ID, nil
}

func (r memItems) ListByOrder(ctx context.Context, orderID uint) ([]domain.OrderItem, error) {
	return append([]domain.OrderItem(nil), r.items[orderID]...), nil
}

func (r memItems) ListByOrderTx(ctx context.Context, tx mysql.Tx, orderID uint) ([]domain.OrderItem, error) {
	return r.ListByOrder(ctx, orderID)
}

type memConfirmations struct{ *memoryStore }

func (r memConfirmations) Insert(ctx context.Context, tx mysql.Tx, c domain.OrderConfirmation) (uint, error) {
	if _, ok := r.confirmations[c.OrderID]; ok {
		return 0, apperrors.NewConflictError("duplicate confirmation")
	}
	c.ID = r.id()
	r.confirmations[c.OrderID] = c
	return c.ID, nil
}

func (r memConfirmations) FindByOrderID(ctx context.Context, orderID uint) (*domain.OrderConfirmation, error) {
	c, ok := r.confirmations[orderID]
	if !ok {
		return nil, apperrors.NewNotFoundError("confirmation not found")
	}
	return &c, nil
}

type memCustomers struct{ *memoryStore }

func (r memCustomers) FindByID(ctx context.Context, id uint) (*domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("customer with id %d not found", id))
	}
	return &c, nil
}

func (r memCustomers) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Customer, error) {
	return r.FindByID(ctx, id)
}

func (r memCustomers) UpdateLoyalty(ctx context.Context, tx mysql.Tx, id uint, totalPizzasOrdered int, birthdayPizzaClaimed bool) error {
	c, ok := r.customers[id]
	if !ok {
		return apperrors.NewNotFoundError("customer not found")
	}
	c.TotalPizzasOrdered = totalPizzasOrdered
	c.BirthdayPizzaClaimed = birthdayPizzaClaimed
	r.customers[id] = c
	return nil
}

type memMenu struct{ *memoryStore }

func (r memMenu) FindByIDs(ctx context.Context, tx mysql.Tx, ids []uint) ([]domain.MenuItem, error) {
	var out []domain.MenuItem
	for _, id := range ids {
		if m, ok := r.menu[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r memMenu) FindFirstByCategory(ctx context.Context, tx mysql.Tx, category domain.MenuCategory) (*domain.MenuItem, error) {
	var found *domain.MenuItem
	for _, m := range r.menu {
		if m.Category != category {
			continue
		}
		if found == nil || m.ID < found.ID {
			item := m
			found = &item
		}
	}
	if found == nil {
		return nil, apperrors.NewNotFoundError("no item in category")
	}
	return found, nil
}

type memDeliveries struct{ *memoryStore }

func (r memDeliveries) FindByOrderID(ctx context.Context, orderID uint) (*domain.Delivery, error) {
	d, ok := r.deliveryForOrder(orderID)
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("delivery for order %d not found", orderID))
	}
	return &d, nil
}

func (r memDeliveries) FindByID(ctx context.Context, tx mysql.Tx, id uint) (*domain.Delivery, error) {
	d, ok := r.deliveries[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("delivery with id %d not found", id))
	}
	return &d, nil
}

func (r memDeliveries) FindByOrderIDForUpdate(ctx context.Context, tx mysql.Tx, orderID uint) (*domain.Delivery, error) {
	return r.FindByOrderID(ctx, orderID)
}

func (r memDeliveries) Insert(ctx context.Context, tx mysql.Tx, d domain.Delivery) (uint, error) {
	if _, ok := r.deliveryForOrder(d.OrderID); ok {
		return 0, apperrors.NewConflictError("duplicate delivery")
	}
	d.ID = r.id()
	r.deliveries[d.ID] = d
	return d.ID, nil
}

func (r memDeliveries) Update(ctx context.Context, tx mysql.Tx, d domain.Delivery) error {
	if _, ok := r.deliveries[d.ID]; !ok {
		return apperrors.NewNotFoundError("delivery not found")
	}
	r.deliveries[d.ID] = d
	return nil
}

func (r memDeliveries) CountActiveByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeDeliveryID uint) (int, error) {
	count := 0
	for _, d := range r.deliveries {
		if d.ID != excludeDeliveryID && d.CourierID != nil && *d.CourierID == courierID && d.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

func (r memDeliveries) CountPreparingByCourier(ctx context.Context, tx mysql.Tx, courierID uint, excludeOrderID uint) (int, error) {
	count := 0
	for _, d := range r.deliveries {
		if d.OrderID != excludeOrderID && d.CourierID != nil && *d.CourierID == courierID && d.Status == domain.OrderStatusBeingPrepared {
			count++
		}
	}
	return count, nil
}

type memCouriers struct{ *memoryStore }

func (r memCouriers) FindByID(ctx context.Context, id uint) (*domain.Courier, error) {
	c, ok := r.couriers[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("courier with id %d not found", id))
	}
	return &c, nil
}

func (r memCouriers) FindByIDForUpdate(ctx context.Context, tx mysql.Tx, id uint) (*domain.Courier, error) {
	return r.FindByID(ctx, id)
}

func (r memCouriers) first(match func(domain.Courier) bool) (*domain.Courier, error) {
	var found *domain.Courier
	for _, c := range r.couriers {
		if !c.IsAvailable || !match(c) {
			continue
		}
		if found == nil || c.ID < found.ID {
			courier := c
			found = &courier
		}
	}
	if found == nil {
		return nil, apperrors.NewNotFoundError("no available courier")
	}
	return found, nil
}

func (r memCouriers) FindAvailableByPostalCodeForUpdate(ctx context.Context, tx mysql.Tx, postalCode string) (*domain.Courier, error) {
	return r.first(func(c domain.Courier) bool { return c.PostalCode != nil && *c.PostalCode == postalCode })
}

func (r memCouriers) FindAvailableUnassignedForUpdate(ctx context.Context, tx mysql.Tx) (*domain.Courier, error) {
	return r.first(func(c domain.Courier) bool { return c.PostalCode == nil })
}

func (r memCouriers) Update(ctx context.Context, tx mysql.Tx, c domain.Courier) error {
	if _, ok := r.couriers[c.ID]; !ok {
		return apperrors.NewNotFoundError("courier not found")
	}
	r.couriers[c.ID] = c
	return nil
}

type mockLedger struct {
	RedeemFunc func(ctx context.Context, tx mysql.Tx, customerID uint, code string) (decimal.Decimal, error)
}

func (m *mockLedger) Redeem(ctx context.Context, tx mysql.Tx, customerID uint, code string) (decimal.Decimal, error) {
	if m.RedeemFunc == nil {
		return decimal.Zero, apperrors.NewUnknownCodeError(code)
	}
	return m.RedeemFunc(ctx, tx, customerID, code)
}

func (m *mockLedger) LoyaltyPercentageFor(totalPizzasOrdered int) decimal.Decimal {
	return discountservice.NewLedgerService(nil, zap.NewNop()).LoyaltyPercentageFor(totalPizzasOrdered)
}

type scheduledJob struct {
	runAt time.Time
	job   scheduler.Job
}

type fakeScheduler struct {
	jobs        map[string]scheduledJob
	scheduleErr error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]scheduledJob{}}
}

func (f *fakeScheduler) Schedule(ctx context.Context, key string, runAt time.Time, job scheduler.Job) (bool, error) {
	if f.scheduleErr != nil {
		return false, f.scheduleErr
	}
	if _, ok := f.jobs[key]; ok {
		return false, nil
	}
	f.jobs[key] = scheduledJob{runAt: runAt, job: job}
	return true, nil
}

func (f *fakeScheduler) Cancel(ctx context.Context, key string) bool {
	if _, ok := f.jobs[key]; !ok {
		return false
	}
	delete(f.jobs, key)
	return true
}

// fire runs a pending job the way the scheduler does: the key is released
// before the job body runs.
func (f *fakeScheduler) fire(t *testing.T, key string) {
	t.Helper()
	j, ok := f.jobs[key]
	require.True(t, ok, "job %s is not pending", key)
	delete(f.jobs, key)
	require.NoError(t, j.job(context.Background()))
}

type fixture struct {
	store     *memoryStore
	txManager *fakeTxManager
	scheduler *fakeScheduler
	ledger    *mockLedger
	service   *LifecycleService
	now       time.Time
}

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemoryStore()
	store.addMenuItem(1, "Margherita", domain.CategoryPizza, "5.00")
	store.addMenuItem(2, "Diavola", domain.CategoryPizza, "10.00")
	store.addMenuItem(3, "Cola", domain.CategoryDrink, "2.00")
	store.addMenuItem(4, "Tiramisu", domain.CategoryDessert, "4.00")
	store.customers[7] = domain.Customer{ID: 7, Name: "Ana", Email: "ana@example.com", PostalCode: "6215"}

	f := &fixture{
		store:     store,
		txManager: &fakeTxManager{},
		scheduler: newFakeScheduler(),
		ledger:    &mockLedger{},
		now:       testNow,
	}

	assigner := deliveryservice.NewAssignmentService(memCouriers{store}, memDeliveries{store}, zap.NewNop(), "6211")

	svc, err := NewLifecycleService(LifecycleDeps{
		TxManager:     f.txManager,
		Orders:        memOrders{store},
		Items:         memItems{store},
		Confirmations: memConfirmations{store},
		Customers:     memCustomers{store},
		Menu:          memMenu{store},
		Deliveries:    memDeliveries{store},
		Couriers:      memCouriers{store},
		Assigner:      assigner,
		Ledger:        f.ledger,
		Scheduler:     f.scheduler,
		Logger:        zap.NewNop(),
		DispatchDelay: 10 * time.Minute,
		Clock:         func() time.Time { return f.now },
		NewReference:  func() string { return "01HZXREFERENCE0000000000000" },
	})
	require.NoError(t, err)
	f.service = svc
	return f
}

func postal(code string) *string {
	return &code
}
