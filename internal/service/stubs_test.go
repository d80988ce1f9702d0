package service

// In-memory repository stubs shared by the service tests. They mirror the
// behavior the GORM implementations rely on (gorm.ErrRecordNotFound on a
// miss, the stock guard on negative deltas) without a database; runTx sees a
// nil DB and runs the closure directly.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/weps89/lb-electronica/internal/dto"
	"github.com/weps89/lb-electronica/internal/model"
	"github.com/weps89/lb-electronica/internal/repository"
)

// ── Products ─────────────────────────────────────────────────────────────────

// stubProductRepo mirrors how GORM actually behaves: every by-id read
// materializes a detached copy of the row, and the update methods write only
// the columns their SQL counterparts touch. afterFind, when set, runs after a
// FindByID read to interleave a concurrent write.
type stubProductRepo struct {
	products  map[uuid.UUID]*model.Product
	codeSeq   int
	afterFind func()
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) add(p *model.Product) *model.Product {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.add(p)
	return nil
}

func (r *stubProductRepo) CreateTx(_ *gorm.DB, p *model.Product) error {
	r.add(p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	if r.afterFind != nil {
		r.afterFind()
	}
	return &copied, nil
}

func (r *stubProductRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *stubProductRepo) FindByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	for _, p := range r.products {
		if p.Barcode != nil && *p.Barcode == barcode && p.Active {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) FindByNameFoldTx(_ *gorm.DB, name string) (*model.Product, error) {
	for _, p := range r.products {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubProductRepo) ListLowStock(_ context.Context) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.Active && p.StockQuantity.LessThanOrEqual(decimal.NewFromInt(int64(p.StockMinimum))) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	row, ok := r.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Barcode = p.Barcode
	row.Name = p.Name
	row.Category = p.Category
	row.Brand = p.Brand
	row.Model = p.Model
	row.CostPrice = p.CostPrice
	row.MarginPercent = p.MarginPercent
	row.SalePrice = p.SalePrice
	row.StockMinimum = p.StockMinimum
	return nil
}

func (r *stubProductRepo) UpdateCostBasisTx(_ *gorm.DB, p *model.Product) error {
	row, ok := r.products[p.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.CostPrice = p.CostPrice
	row.MarginPercent = p.MarginPercent
	row.SalePrice = p.SalePrice
	row.LastStockExchangeRateArs = p.LastStockExchangeRateArs
	return nil
}

func (r *stubProductRepo) AddStockTx(_ *gorm.DB, id uuid.UUID, delta decimal.Decimal) (bool, error) {
	p, ok := r.products[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	next := p.StockQuantity.Add(delta)
	if next.IsNegative() {
		return false, nil
	}
	p.StockQuantity = next
	return true, nil
}

func (r *stubProductRepo) NextInternalCodeTx(_ *gorm.DB) (string, error) {
	r.codeSeq++
	return fmt.Sprintf("P-%06d", r.codeSeq), nil
}

func (r *stubProductRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Active = active
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

// ── Stock ────────────────────────────────────────────────────────────────────

type stubStockRepo struct {
	entries map[uuid.UUID]*model.StockEntry
	ledger  []model.LedgerMovement
	lotSeq  int64
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{entries: make(map[uuid.UUID]*model.StockEntry)}
}

func (r *stubStockRepo) CreateEntryTx(_ *gorm.DB, e *model.StockEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries[e.ID] = e
	return nil
}

func (r *stubStockRepo) CreateEntryItemTx(_ *gorm.DB, item *model.StockEntryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return nil
}

func (r *stubStockRepo) NextLotNumberTx(_ *gorm.DB) (int64, error) {
	r.lotSeq++
	return r.lotSeq, nil
}

func (r *stubStockRepo) CreateLedgerTx(_ *gorm.DB, m *model.LedgerMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.ledger = append(r.ledger, *m)
	return nil
}

func (r *stubStockRepo) FindEntryByID(_ context.Context, id uuid.UUID) (*model.StockEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (r *stubStockRepo) ListEntries(_ context.Context, _, _ time.Time) ([]model.StockEntry, error) {
	out := make([]model.StockEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (r *stubStockRepo) ListLedger(_ context.Context, _, _ time.Time, productID *uuid.UUID) ([]model.LedgerMovement, error) {
	var out []model.LedgerMovement
	for _, m := range r.ledger {
		if productID == nil || m.ProductID == *productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

// ledgerNet sums the signed deltas for one product.
func (r *stubStockRepo) ledgerNet(productID uuid.UUID) decimal.Decimal {
	net := decimal.Zero
	for i := range r.ledger {
		if r.ledger[i].ProductID == productID {
			net = net.Add(r.ledger[i].Delta())
		}
	}
	return net
}

var _ repository.StockRepository = (*stubStockRepo)(nil)

// ── Sales ────────────────────────────────────────────────────────────────────

type stubSaleRepo struct {
	sales map[uuid.UUID]*model.Sale
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSaleRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	return r.FindByID(context.Background(), id)
}

func (r *stubSaleRepo) SaveTx(_ *gorm.DB, s *model.Sale) error {
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) CountForDayTx(_ *gorm.DB, dayStart, dayEnd time.Time) (int64, error) {
	var count int64
	for _, s := range r.sales {
		if !s.Date.Before(dayStart) && !s.Date.After(dayEnd) {
			count++
		}
	}
	return count, nil
}

func (r *stubSaleRepo) List(_ context.Context, from, to time.Time, userID *uuid.UUID) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.sales {
		if s.Date.Before(from) || s.Date.After(to) {
			continue
		}
		if userID != nil && s.UserID != *userID {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *stubSaleRepo) ListPending(_ context.Context) ([]model.Sale, error) {
	var out []model.Sale
	for _, s := range r.sales {
		if s.Status == model.SalePending {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *stubSaleRepo) ListByUserAndDay(_ context.Context, userID uuid.UUID, dayStart, dayEnd time.Time) ([]model.Sale, error) {
	return r.List(context.Background(), dayStart, dayEnd, &userID)
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// ── Cash ─────────────────────────────────────────────────────────────────────

type stubCashRepo struct {
	sessions  map[uuid.UUID]*model.CashSession
	movements map[uuid.UUID][]model.CashMovement
}

func newStubCashRepo() *stubCashRepo {
	return &stubCashRepo{
		sessions:  make(map[uuid.UUID]*model.CashSession),
		movements: make(map[uuid.UUID][]model.CashMovement),
	}
}

func (r *stubCashRepo) CreateSessionTx(_ *gorm.DB, s *model.CashSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *stubCashRepo) FindOpenByUser(_ context.Context, userID uuid.UUID) (*model.CashSession, error) {
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsOpen {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCashRepo) FindOpenByUserForUpdateTx(_ *gorm.DB, userID uuid.UUID) (*model.CashSession, error) {
	return r.FindOpenByUser(context.Background(), userID)
}

func (r *stubCashRepo) FindSessionByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubCashRepo) SaveSessionTx(_ *gorm.DB, s *model.CashSession) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *stubCashRepo) CreateMovementTx(_ *gorm.DB, m *model.CashMovement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.movements[m.CashSessionID] = append(r.movements[m.CashSessionID], *m)
	return nil
}

func (r *stubCashRepo) ListMovementsTx(_ *gorm.DB, sessionID uuid.UUID) ([]model.CashMovement, error) {
	return r.movements[sessionID], nil
}

func (r *stubCashRepo) ListSessions(_ context.Context, from, to time.Time, userID *uuid.UUID) ([]model.CashSession, error) {
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.OpenedAt.Before(from) || s.OpenedAt.After(to) {
			continue
		}
		if userID != nil && s.UserID != *userID {
			continue
		}
		copied := *s
		copied.Movements = r.movements[s.ID]
		out = append(out, copied)
	}
	return out, nil
}

func (r *stubCashRepo) DB() *gorm.DB { return nil }

var _ repository.CashRepository = (*stubCashRepo)(nil)

// ── Exchange rates ───────────────────────────────────────────────────────────

type stubRateRepo struct {
	rows []model.ExchangeRate
}

func (r *stubRateRepo) Latest(_ context.Context) (*model.ExchangeRate, error) {
	if len(r.rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &r.rows[len(r.rows)-1], nil
}

func (r *stubRateRepo) Create(_ context.Context, rate *model.ExchangeRate) error {
	if rate.ID == uuid.Nil {
		rate.ID = uuid.New()
	}
	r.rows = append(r.rows, *rate)
	return nil
}

func (r *stubRateRepo) List(_ context.Context, limit int) ([]model.ExchangeRate, error) {
	if len(r.rows) > limit {
		return r.rows[len(r.rows)-limit:], nil
	}
	return r.rows, nil
}

var _ repository.ExchangeRateRepository = (*stubRateRepo)(nil)

// ── Customers ────────────────────────────────────────────────────────────────

type stubCustomerRepo struct {
	customers map[string]*model.Customer
	failAll   bool
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{customers: make(map[string]*model.Customer)}
}

func (r *stubCustomerRepo) FindByDni(_ context.Context, dni string) (*model.Customer, error) {
	if r.failAll {
		return nil, fmt.Errorf("directory down")
	}
	c, ok := r.customers[dni]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCustomerRepo) Create(_ context.Context, c *model.Customer) error {
	if r.failAll {
		return fmt.Errorf("directory down")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.customers[c.Dni] = c
	return nil
}

func (r *stubCustomerRepo) Update(_ context.Context, c *model.Customer) error {
	r.customers[c.Dni] = c
	return nil
}

func (r *stubCustomerRepo) Search(_ context.Context, _ string, _ int) ([]model.Customer, error) {
	var out []model.Customer
	for _, c := range r.customers {
		out = append(out, *c)
	}
	return out, nil
}

var _ repository.CustomerRepository = (*stubCustomerRepo)(nil)

// ── Users ────────────────────────────────────────────────────────────────────

type stubUserRepo struct {
	users map[string]*model.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*model.User)}
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.Username] = u
	return nil
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.users)), nil
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

// ── Audit ────────────────────────────────────────────────────────────────────

type stubAuditRepo struct {
	entries []model.AuditLog
}

func (r *stubAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)

// ── Shared fixtures ──────────────────────────────────────────────────────────

func newTestAudit() *AuditService { return NewAuditService(&stubAuditRepo{}) }

// newTestRates returns an ExchangeRateService whose current rate is fixed.
func newTestRates(arsPerUsd int64) *ExchangeRateService {
	repo := &stubRateRepo{}
	_ = repo.Create(context.Background(), &model.ExchangeRate{
		ArsPerUsd:     decimal.NewFromInt(arsPerUsd),
		EffectiveDate: time.Now(),
		UserID:        uuid.New(),
	})
	return NewExchangeRateService(repo, nil, newTestAudit())
}
