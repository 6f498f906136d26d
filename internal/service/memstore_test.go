package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/merchant-inventory/internal/model"
	"github.com/iliyamo/merchant-inventory/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories. WithinTx
// holds one mutex for the whole unit, which serializes units the way row
// locks serialize conflicting transactions, and restores a snapshot when
// the unit fails. The *sql.Tx handed to fn is always nil; the Tx methods
// assume the mutex is held.
type memStore struct {
	mu    sync.Mutex
	state memState

	// failLineAfter makes CreateLineTx fail once this many lines were written
	// in the current unit; zero disables it.
	failLineAfter int
	linesInUnit   int
}

type allocKey struct{ merchant, product uint64 }

type memState struct {
	products  map[uint64]model.Product
	merchants map[uint64]model.Merchant
	allocs    map[allocKey]model.MerchantProduct
	txs       map[uint64]model.Transaction
	lines     []model.TransactionProduct
	nextID    uint64
}

func (s memState) clone() memState {
	c := memState{
		products:  make(map[uint64]model.Product, len(s.products)),
		merchants: make(map[uint64]model.Merchant, len(s.merchants)),
		allocs:    make(map[allocKey]model.MerchantProduct, len(s.allocs)),
		txs:       make(map[uint64]model.Transaction, len(s.txs)),
		lines:     append([]model.TransactionProduct(nil), s.lines...),
		nextID:    s.nextID,
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.merchants {
		c.merchants[k] = v
	}
	for k, v := range s.allocs {
		c.allocs[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	return c
}

var errInjected = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{state: memState{
		products:  map[uint64]model.Product{},
		merchants: map[uint64]model.Merchant{},
		allocs:    map[allocKey]model.MerchantProduct{},
		txs:       map[uint64]model.Transaction{},
		nextID:    1000,
	}}
}

func (s *memStore) id() uint64 {
	s.state.nextID++
	return s.state.nextID
}

func (s *memStore) WithinTx(_ context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state.clone()
	s.linesInUnit = 0
	if err := fn(nil); err != nil {
		s.state = snap
		return err
	}
	return nil
}

// seeding and inspection helpers

func (s *memStore) addProduct(id uint64, price string, stock uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[id] = model.Product{ID: id, Name: "product", Price: decimal.RequireFromString(price), Stock: stock}
}

func (s *memStore) addMerchant(id, keeper uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.merchants[id] = model.Merchant{ID: id, Name: "merchant", KeeperID: keeper}
}

func (s *memStore) addAllocation(merchantID, productID uint64, stock uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.allocs[allocKey{merchantID, productID}] = model.MerchantProduct{
		ID: s.id(), MerchantID: merchantID, ProductID: productID, Stock: stock,
	}
}

func (s *memStore) productStock(id uint64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id].Stock
}

func (s *memStore) allocation(merchantID, productID uint64) (model.MerchantProduct, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mp, ok := s.state.allocs[allocKey{merchantID, productID}]
	return mp, ok
}

func (s *memStore) counts() (txs, lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.txs), len(s.state.lines)
}

// memLedger implements StockLedger.
type memLedger struct{ *memStore }

func (l memLedger) GetForUpdateTx(_ context.Context, _ *sql.Tx, id uint64) (model.Product, error) {
	p, ok := l.state.products[id]
	if !ok {
		return model.Product{}, repository.ErrProductNotFound
	}
	return p, nil
}

func (l memLedger) DecrementTx(_ context.Context, _ *sql.Tx, id uint64, qty uint32) error {
	p, ok := l.state.products[id]
	if !ok || p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	l.state.products[id] = p
	return nil
}

func (l memLedger) IncrementTx(_ context.Context, _ *sql.Tx, id uint64, qty uint32) error {
	p, ok := l.state.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	l.state.products[id] = p
	return nil
}

// memMerchants implements MerchantReader.
type memMerchants struct{ *memStore }

func (m memMerchants) GetByID(_ context.Context, id uint64) (model.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m memMerchants) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.Merchant, error) {
	return m.get(id)
}

func (m memMerchants) get(id uint64) (model.Merchant, error) {
	mc, ok := m.state.merchants[id]
	if !ok {
		return model.Merchant{}, repository.ErrMerchantNotFound
	}
	return mc, nil
}

// memAllocations implements Allocations.
type memAllocations struct{ *memStore }

func (a memAllocations) GetForUpdateTx(_ context.Context, _ *sql.Tx, merchantID, productID uint64) (model.MerchantProduct, error) {
	mp, ok := a.state.allocs[allocKey{merchantID, productID}]
	if !ok {
		return model.MerchantProduct{}, repository.ErrAllocationNotFound
	}
	return mp, nil
}

func (a memAllocations) GetSaleLineForUpdateTx(_ context.Context, _ *sql.Tx, merchantID, productID uint64) (repository.SaleLine, error) {
	mp, ok := a.state.allocs[allocKey{merchantID, productID}]
	if !ok {
		return repository.SaleLine{}, repository.ErrAllocationNotFound
	}
	p := a.state.products[productID]
	return repository.SaleLine{AllocationID: mp.ID, Stock: mp.Stock, Price: p.Price, ProductName: p.Name}, nil
}

func (a memAllocations) CreateTx(_ context.Context, _ *sql.Tx, merchantID, productID uint64, stock uint32) (model.MerchantProduct, error) {
	k := allocKey{merchantID, productID}
	if _, ok := a.state.allocs[k]; ok {
		return model.MerchantProduct{}, repository.ErrDuplicateAllocation
	}
	mp := model.MerchantProduct{ID: a.id(), MerchantID: merchantID, ProductID: productID, Stock: stock}
	a.state.allocs[k] = mp
	return mp, nil
}

func (a memAllocations) SetStockTx(_ context.Context, _ *sql.Tx, merchantID, productID uint64, stock uint32) error {
	k := allocKey{merchantID, productID}
	mp, ok := a.state.allocs[k]
	if !ok {
		return repository.ErrAllocationNotFound
	}
	mp.Stock = stock
	a.state.allocs[k] = mp
	return nil
}

func (a memAllocations) DecrementTx(_ context.Context, _ *sql.Tx, allocationID uint64, qty uint32) error {
	for k, mp := range a.state.allocs {
		if mp.ID != allocationID {
			continue
		}
		if mp.Stock < qty {
			return repository.ErrInsufficientStock
		}
		mp.Stock -= qty
		a.state.allocs[k] = mp
		return nil
	}
	return repository.ErrInsufficientStock
}

func (a memAllocations) DeleteTx(_ context.Context, _ *sql.Tx, merchantID, productID uint64) error {
	k := allocKey{merchantID, productID}
	if _, ok := a.state.allocs[k]; !ok {
		return repository.ErrAllocationNotFound
	}
	delete(a.state.allocs, k)
	return nil
}

func (a memAllocations) ListByMerchant(_ context.Context, merchantID uint64) ([]model.MerchantProduct, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []model.MerchantProduct{}
	for k, mp := range a.state.allocs {
		if k.merchant == merchantID {
			out = append(out, mp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, nil
}

// memTransactions implements Transactions.
type memTransactions struct{ *memStore }

func (t memTransactions) CreateShellTx(_ context.Context, _ *sql.Tx, merchantID uint64, name, phone string) (uint64, error) {
	id := t.id()
	t.state.txs[id] = model.Transaction{ID: id, MerchantID: merchantID, Name: name, Phone: phone}
	return id, nil
}

func (t memTransactions) CreateLineTx(_ context.Context, _ *sql.Tx, line model.TransactionProduct) error {
	if t.failLineAfter > 0 && t.linesInUnit >= t.failLineAfter {
		return errInjected
	}
	t.linesInUnit++
	line.ID = t.id()
	t.state.lines = append(t.state.lines, line)
	return nil
}

func (t memTransactions) FinalizeTx(_ context.Context, _ *sql.Tx, id uint64, sub, tax, grand decimal.Decimal) error {
	tr, ok := t.state.txs[id]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	tr.SubTotal, tr.TaxTotal, tr.GrandTotal = sub, tax, grand
	t.state.txs[id] = tr
	return nil
}

func (t memTransactions) GetByIDTx(_ context.Context, _ *sql.Tx, id uint64) (model.Transaction, error) {
	return t.load(id)
}

func (t memTransactions) GetByID(_ context.Context, id uint64) (model.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(id)
}

func (t memTransactions) load(id uint64) (model.Transaction, error) {
	tr, ok := t.state.txs[id]
	if !ok {
		return model.Transaction{}, repository.ErrTransactionNotFound
	}
	m := t.state.merchants[tr.MerchantID]
	tr.Merchant = &m
	tr.Products = []model.TransactionProduct{}
	for _, l := range t.state.lines {
		if l.TransactionID == id {
			tr.Products = append(tr.Products, l)
		}
	}
	return tr, nil
}

func (t memTransactions) List(_ context.Context) ([]model.Transaction, error) {
	return t.list(func(model.Transaction) bool { return true })
}

func (t memTransactions) ListByMerchant(_ context.Context, merchantID uint64) ([]model.Transaction, error) {
	return t.list(func(tr model.Transaction) bool { return tr.MerchantID == merchantID })
}

func (t memTransactions) list(keep func(model.Transaction) bool) ([]model.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := []model.Transaction{}
	for id, tr := range t.state.txs {
		if keep(tr) {
			full, _ := t.load(id)
			out = append(out, full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// recordingPublisher captures published sales.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []model.Transaction
	err  error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, t model.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, t)
	return p.err
}
