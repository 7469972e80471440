//go:build unit

package commands_test

import (
	"context"
	"sync"
	"time"

	"shopkit/internal/domain/cart"
	"shopkit/internal/infra"
	"shopkit/internal/infra/db"
	"shopkit/internal/pkg/clock"
	"shopkit/internal/usecase/commands"
	"shopkit/internal/usecase/queries"
	"shopkit/tests/common/builder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The fakes below reproduce the conditional-write semantics of the real
// repositories under a mutex, so concurrency tests exercise the same
// winner-loser behavior the SQL enforces.

type memTx struct {
	pgx.Tx
}

func (memTx) Commit(context.Context) error   { return nil }
func (memTx) Rollback(context.Context) error { return pgx.ErrTxClosed }

type memDB struct{}

func (memDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (memDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (memDB) QueryRow(context.Context, string, ...any) pgx.Row       { return nil }
func (memDB) Begin(context.Context) (pgx.Tx, error)                  { return memTx{}, nil }

type invRow struct {
	title          string
	unitPriceCents int64
	active         bool
	onHand         int32
	reserved       int32
}

type fakeInventory struct {
	mu       sync.Mutex
	rows     map[string]*invRow
	releases []string
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{rows: make(map[string]*invRow)}
}

func (f *fakeInventory) put(sku, title string, price int64, active bool, onHand int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[sku] = &invRow{title: title, unitPriceCents: price, active: active, onHand: onHand}
}

func (f *fakeInventory) counters(sku string) (onHand, reserved int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.rows[sku]
	return r.onHand, r.reserved
}

func (f *fakeInventory) TryReserve(_ context.Context, _ uuid.UUID, sku string, qty int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[sku]
	if !ok || r.onHand-r.reserved < qty {
		return false, nil
	}
	r.reserved += qty
	return true, nil
}

func (f *fakeInventory) Release(_ context.Context, _ uuid.UUID, sku string, qty int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, sku)
	if r, ok := f.rows[sku]; ok {
		r.reserved -= qty
		if r.reserved < 0 {
			r.reserved = 0
		}
	}
	return nil
}

func (f *fakeInventory) Commit(_ context.Context, _ db.DBTX, _ uuid.UUID, sku string, qty int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[sku]
	if !ok || r.reserved < qty || r.onHand < qty {
		return infra.WrapRepoErr("no matching reservation to commit", nil, infra.KindConflict)
	}
	r.onHand -= qty
	r.reserved -= qty
	return nil
}

func (f *fakeInventory) Adjust(_ context.Context, _ uuid.UUID, sku string, delta int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[sku]
	if !ok || r.onHand+delta < r.reserved {
		return infra.WrapRepoErr("adjustment would undercut outstanding reservations", nil, infra.KindConflict)
	}
	r.onHand += delta
	return nil
}

func (f *fakeInventory) AvailableBySKUs(_ context.Context, _ uuid.UUID, skus []string) (map[string]queries.SKUAvailability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]queries.SKUAvailability, len(skus))
	for _, sku := range skus {
		if r, ok := f.rows[sku]; ok {
			out[sku] = queries.SKUAvailability{
				SKU:            sku,
				Title:          r.title,
				UnitPriceCents: r.unitPriceCents,
				Active:         r.active,
				Available:      r.onHand - r.reserved,
			}
		}
	}
	return out, nil
}

type usageRow struct {
	discountID    uuid.UUID
	customerEmail string
}

type fakeDiscounts struct {
	mu     sync.Mutex
	rows   map[uuid.UUID]*queries.DiscountView
	usages []usageRow
}

func newFakeDiscounts() *fakeDiscounts {
	return &fakeDiscounts{rows: make(map[uuid.UUID]*queries.DiscountView)}
}

func (f *fakeDiscounts) put(v queries.DiscountView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := v
	f.rows[v.ID] = &cp
}

func (f *fakeDiscounts) usageCount(id uuid.UUID) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].UsageCount
}

func (f *fakeDiscounts) stripeCoupon(id uuid.UUID) *string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].StripeCouponID
}

func (f *fakeDiscounts) recordedUsages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.usages)
}

func (f *fakeDiscounts) FindByCode(_ context.Context, storeID uuid.UUID, code string) (*queries.DiscountView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.rows {
		if v.StoreID == storeID && v.Code != nil && *v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, infra.WrapRepoErr("discount not found by code", nil, infra.KindNotFound)
}

func (f *fakeDiscounts) FindByID(_ context.Context, storeID, discountID uuid.UUID) (*queries.DiscountView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[discountID]
	if !ok || v.StoreID != storeID {
		return nil, infra.WrapRepoErr("discount not found by ID", nil, infra.KindNotFound)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeDiscounts) ReserveUsage(_ context.Context, discountID uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[discountID]
	if !ok || v.Status != "active" {
		return false, nil
	}
	if v.StartsAt != nil && v.StartsAt.After(now) {
		return false, nil
	}
	if v.ExpiresAt != nil && v.ExpiresAt.Before(now) {
		return false, nil
	}
	if v.UsageLimit == nil {
		return true, nil
	}
	if v.UsageCount >= *v.UsageLimit {
		return false, nil
	}
	v.UsageCount++
	return true, nil
}

func (f *fakeDiscounts) ReleaseUsage(_ context.Context, discountID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[discountID]; ok && v.UsageLimit != nil && v.UsageCount > 0 {
		v.UsageCount--
	}
	return nil
}

func (f *fakeDiscounts) CustomerUsageCount(_ context.Context, discountID uuid.UUID, customerEmail string) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int32
	for _, u := range f.usages {
		if u.discountID == discountID && u.customerEmail == customerEmail {
			count++
		}
	}
	return count, nil
}

func (f *fakeDiscounts) RecordUsage(_ context.Context, _ db.DBTX, discountID uuid.UUID, customerEmail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, usageRow{discountID: discountID, customerEmail: customerEmail})
	return nil
}

func (f *fakeDiscounts) SetStripeCoupon(_ context.Context, discountID uuid.UUID, couponID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[discountID]; ok {
		v.StripeCouponID = &couponID
	}
	return nil
}

type fakeCarts struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*queries.CartView
	items map[uuid.UUID][]queries.CartItemView
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{
		rows:  make(map[uuid.UUID]*queries.CartView),
		items: make(map[uuid.UUID][]queries.CartItemView),
	}
}

func (f *fakeCarts) putOpen(c *cart.Cart) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[c.ID()] = &queries.CartView{
		ID:            c.ID(),
		StoreID:       c.StoreID(),
		CustomerEmail: c.CustomerEmail().Value(),
		Currency:      c.Currency(),
		Status:        c.Status().String(),
		ExpiresAt:     c.ExpiresAt(),
	}
}

func (f *fakeCarts) setItems(cartID uuid.UUID, items []queries.CartItemView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[cartID] = items
}

func (f *fakeCarts) status(cartID uuid.UUID) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[cartID].Status
}

func (f *fakeCarts) view(cartID uuid.UUID) queries.CartView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.rows[cartID]
}

func (f *fakeCarts) Create(_ context.Context, _ db.DBTX, c *cart.Cart) error {
	f.putOpen(c)
	return nil
}

func (f *fakeCarts) FindByID(_ context.Context, _ db.DBTX, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[cartID]
	if !ok || v.StoreID != storeID {
		return nil, infra.WrapRepoErr("cart not found", nil, infra.KindNotFound)
	}
	cp := *v
	return &cp, nil
}

func (f *fakeCarts) FindByPaymentSessionRef(_ context.Context, _ db.DBTX, sessionRef string) (*queries.CartView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.rows {
		if v.PaymentSessionRef != nil && *v.PaymentSessionRef == sessionRef {
			cp := *v
			return &cp, nil
		}
	}
	return nil, infra.WrapRepoErr("cart not found for payment session", nil, infra.KindNotFound)
}

func (f *fakeCarts) ItemsByCartID(_ context.Context, _ db.DBTX, cartID uuid.UUID) ([]queries.CartItemView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]queries.CartItemView, len(f.items[cartID]))
	copy(items, f.items[cartID])
	return items, nil
}

func (f *fakeCarts) ReplaceItems(_ context.Context, _ db.DBTX, cartID uuid.UUID, items []cart.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	views := make([]queries.CartItemView, 0, len(items))
	for _, it := range items {
		views = append(views, queries.CartItemView{
			ID:             uuid.New(),
			SKU:            it.SKU,
			Title:          it.Title,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
			LineTotalCents: it.LineTotalCents(),
		})
	}
	f.items[cartID] = views
	return nil
}

func (f *fakeCarts) MarkCheckedOut(_ context.Context, _ db.DBTX, storeID, cartID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[cartID]
	if !ok || v.StoreID != storeID || v.Status != cart.StatusOpen.String() {
		return false, nil
	}
	v.Status = cart.StatusCheckedOut.String()
	return true, nil
}

func (f *fakeCarts) MarkCompleted(_ context.Context, _ db.DBTX, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.rows[cartID]
	if !ok || v.Status != cart.StatusCheckedOut.String() {
		return infra.WrapRepoErr("cart is not checked out", nil, infra.KindConflict)
	}
	v.Status = cart.StatusCompleted.String()
	return nil
}

func (f *fakeCarts) RevertToOpen(_ context.Context, _ db.DBTX, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[cartID]; ok && v.Status == cart.StatusCheckedOut.String() {
		v.Status = cart.StatusOpen.String()
		v.PaymentSessionRef = nil
	}
	return nil
}

func (f *fakeCarts) MarkExpired(_ context.Context, _ db.DBTX, storeID, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[cartID]; ok && v.StoreID == storeID && v.Status != cart.StatusCompleted.String() {
		v.Status = cart.StatusExpired.String()
	}
	return nil
}

func (f *fakeCarts) AttachDiscount(_ context.Context, _ db.DBTX, cartID, discountID uuid.UUID, amountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[cartID]; ok {
		id := discountID
		v.DiscountID = &id
		v.DiscountAmountCents = amountCents
	}
	return nil
}

func (f *fakeCarts) DetachDiscount(_ context.Context, _ db.DBTX, cartID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.rows[cartID]; ok {
		v.DiscountID = nil
		v.DiscountAmountCents = 0
	}
	return nil
}

func (f *fakeCarts) SetPaymentSession(_ context.Context, _ db.DBTX, cartID uuid.UUID, sessionRef string, discountAmountCents int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, v := range f.rows {
		if id != cartID && v.PaymentSessionRef != nil && *v.PaymentSessionRef == sessionRef {
			return infra.WrapRepoErr("payment session already bound to another cart", nil, infra.KindDuplicateKey)
		}
	}
	v, ok := f.rows[cartID]
	if !ok || v.Status != cart.StatusCheckedOut.String() {
		return infra.WrapRepoErr("cart is no longer checked out", nil, infra.KindConflict)
	}
	ref := sessionRef
	v.PaymentSessionRef = &ref
	v.DiscountAmountCents = discountAmountCents
	return nil
}

// fakeCartQueries assembles the same read model the SQL-backed query service
// does, from the fake stores.
type fakeCartQueries struct {
	carts *fakeCarts
}

func (q *fakeCartQueries) GetByID(ctx context.Context, storeID, cartID uuid.UUID) (*queries.CartView, error) {
	view, err := q.carts.FindByID(ctx, memDB{}, storeID, cartID)
	if err != nil {
		return nil, err
	}
	items, _ := q.carts.ItemsByCartID(ctx, memDB{}, cartID)
	view.Items = items
	var subtotal int64
	for _, it := range items {
		subtotal += it.LineTotalCents
	}
	view.SubtotalCents = subtotal
	discountCents := view.DiscountAmountCents
	if discountCents > subtotal {
		discountCents = subtotal
	}
	view.TotalCents = subtotal - discountCents
	return view, nil
}

var _ commands.CartRepository = (*fakeCarts)(nil)
var _ commands.InventoryLedger = (*fakeInventory)(nil)
var _ commands.DiscountRepository = (*fakeDiscounts)(nil)
var _ queries.CartQueries = (*fakeCartQueries)(nil)
var _ commands.TxBeginner = memDB{}

type fakeOrders struct {
	mu   sync.Mutex
	refs map[string]commands.OrderParams
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{refs: make(map[string]commands.OrderParams)}
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refs)
}

func (f *fakeOrders) Create(_ context.Context, _ db.DBTX, params commands.OrderParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.refs[params.PaymentSessionRef]; exists {
		return false, nil
	}
	f.refs[params.PaymentSessionRef] = params
	return true, nil
}

var _ commands.OrderRepository = (*fakeOrders)(nil)

// cmdEnv wires the whole command layer onto the fakes with a fixed clock.
type cmdEnv struct {
	carts     *fakeCarts
	inventory *fakeInventory
	discounts *fakeDiscounts
	orders    *fakeOrders
	queries   *fakeCartQueries
	clock     *clock.MockClock
}

func newCmdEnv() *cmdEnv {
	carts := newFakeCarts()
	return &cmdEnv{
		carts:     carts,
		inventory: newFakeInventory(),
		discounts: newFakeDiscounts(),
		orders:    newFakeOrders(),
		queries:   &fakeCartQueries{carts: carts},
		clock:     clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
}

func (e *cmdEnv) cartCommands() commands.CartCommands {
	return commands.NewCartCommands(e.carts, e.inventory, e.discounts, e.queries, memDB{}, e.clock)
}

func (e *cmdEnv) coordinator() commands.Coordinator {
	return commands.NewCoordinator(e.inventory, e.discounts, e.carts, memDB{}, e.clock)
}

func (e *cmdEnv) checkoutCommands(gw commands.PaymentGateway) commands.CheckoutCommands {
	return commands.NewCheckoutCommands(e.carts, e.inventory, e.discounts, e.orders, e.coordinator(), gw, memDB{}, e.clock)
}

func (e *cmdEnv) newOpenCart(storeID uuid.UUID) uuid.UUID {
	c, err := builder.NewCartBuilder().WithStoreID(storeID).WithNow(e.clock.Now()).BuildDomain()
	if err != nil {
		panic(err)
	}
	e.carts.putOpen(c)
	return c.ID()
}
