package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/merchant-inventory/internal/config"
	"github.com/iliyamo/merchant-inventory/internal/logger"
	"github.com/iliyamo/merchant-inventory/internal/repository"
)

func newAllocationFixture(policy config.AllocationPolicy) (*memStore, *AllocationService) {
	st := newMemStore()
	st.addProduct(1, "2.50", 100)
	st.addMerchant(7, 42)
	svc := NewAllocationService(st, memLedger{st}, memMerchants{st}, memAllocations{st}, policy)
	return st, svc
}

func TestAssignMovesStockToMerchant(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})

	mp, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), mp.MerchantID)
	assert.Equal(t, uint64(1), mp.ProductID)
	assert.Equal(t, uint32(20), mp.Stock)
	assert.Equal(t, uint32(80), st.productStock(1))
}

func TestAssignWholeStock(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})

	_, err := svc.Assign(context.Background(), 7, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), st.productStock(1))
}

func TestAssignZeroQuantity(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})

	mp, err := svc.Assign(context.Background(), 7, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), mp.Stock)
	assert.Equal(t, uint32(100), st.productStock(1))
}

func TestAssignRejectsDuplicate(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})
	_, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), 7, 1, 5)
	require.ErrorIs(t, err, repository.ErrDuplicateAllocation)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "product", ve.Field)
	assert.Equal(t, "Product already exists in this merchant.", ve.Message)
	assert.Equal(t, uint32(80), st.productStock(1))
	mp, ok := st.allocation(7, 1)
	require.True(t, ok)
	assert.Equal(t, uint32(20), mp.Stock)
}

func TestAssignRejectsInsufficientStock(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})

	_, err := svc.Assign(context.Background(), 7, 1, 101)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	assert.Equal(t, uint32(100), st.productStock(1))
	_, ok := st.allocation(7, 1)
	assert.False(t, ok)
}

func TestAssignUnknownProductAndMerchant(t *testing.T) {
	_, svc := newAllocationFixture(config.AllocationPolicy{})

	_, err := svc.Assign(context.Background(), 7, 99, 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = svc.Assign(context.Background(), 99, 1, 1)
	assert.ErrorIs(t, err, repository.ErrMerchantNotFound)
}

func TestConcurrentAssignsNeverOversell(t *testing.T) {
	st := newMemStore()
	st.addProduct(1, "1.00", 50)
	for m := uint64(1); m <= 10; m++ {
		st.addMerchant(m, m)
	}
	svc := NewAllocationService(st, memLedger{st}, memMerchants{st}, memAllocations{st}, config.AllocationPolicy{})

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for m := uint64(1); m <= 10; m++ {
		wg.Add(1)
		go func(m uint64) {
			defer wg.Done()
			if _, err := svc.Assign(context.Background(), m, 1, 10); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, repository.ErrInsufficientStock)
			}
		}(m)
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, uint32(0), st.productStock(1))
}

func TestUpdateStockIsAbsolute(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})
	_, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	mp, err := svc.UpdateStock(context.Background(), 7, 1, 35)
	require.NoError(t, err)
	assert.Equal(t, uint32(35), mp.Stock)

	got, _ := st.allocation(7, 1)
	assert.Equal(t, uint32(35), got.Stock)
	assert.Equal(t, uint32(80), st.productStock(1), "master stock untouched without reconciliation")
}

func TestUpdateStockReconciles(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{ReconcileOnUpdate: true})
	_, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	_, err = svc.UpdateStock(context.Background(), 7, 1, 30)
	require.NoError(t, err)
	assert.Equal(t, uint32(70), st.productStock(1))

	_, err = svc.UpdateStock(context.Background(), 7, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, uint32(95), st.productStock(1))

	_, err = svc.UpdateStock(context.Background(), 7, 1, 200)
	require.ErrorIs(t, err, repository.ErrInsufficientStock)
	got, _ := st.allocation(7, 1)
	assert.Equal(t, uint32(5), got.Stock)
	assert.Equal(t, uint32(95), st.productStock(1))
}

func TestUpdateStockMissingAllocation(t *testing.T) {
	_, svc := newAllocationFixture(config.AllocationPolicy{})

	_, err := svc.UpdateStock(context.Background(), 7, 1, 3)
	require.ErrorIs(t, err, repository.ErrAllocationNotFound)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Product not assigned to this merchant.", ve.Message)
}

func TestRemoveForfeitsStockByDefault(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})
	_, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), 7, 1))
	_, ok := st.allocation(7, 1)
	assert.False(t, ok)
	assert.Equal(t, uint32(80), st.productStock(1))

	// the pair can be assigned again once detached
	_, err = svc.Assign(context.Background(), 7, 1, 10)
	assert.NoError(t, err)
}

func TestRemoveReturnsStockWhenConfigured(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{ReturnOnRemove: true})
	_, err := svc.Assign(context.Background(), 7, 1, 20)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), 7, 1))
	assert.Equal(t, uint32(100), st.productStock(1))
}

func TestRemoveLogsOnlyStockActuallyReturned(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))

	st, svc := newAllocationFixture(config.AllocationPolicy{ReturnOnRemove: true})
	st.addAllocation(7, 1, 0)
	require.NoError(t, svc.Remove(ctx, 7, 1))
	assert.Equal(t, uint32(100), st.productStock(1))

	_, err := svc.Assign(ctx, 7, 1, 20)
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, 7, 1))

	entries := logs.FilterMessage("product detached from merchant").All()
	require.Len(t, entries, 2)
	assert.Equal(t, false, entries[0].ContextMap()["stock_returned"])
	assert.Equal(t, uint32(0), entries[0].ContextMap()["returned_units"])
	assert.Equal(t, true, entries[1].ContextMap()["stock_returned"])
	assert.Equal(t, uint32(20), entries[1].ContextMap()["returned_units"])
}

func TestRemoveNotAssigned(t *testing.T) {
	_, svc := newAllocationFixture(config.AllocationPolicy{})

	err := svc.Remove(context.Background(), 7, 1)
	assert.ErrorIs(t, err, repository.ErrAllocationNotFound)

	err = svc.Remove(context.Background(), 99, 1)
	assert.ErrorIs(t, err, repository.ErrMerchantNotFound)
}

func TestListByMerchant(t *testing.T) {
	st, svc := newAllocationFixture(config.AllocationPolicy{})
	st.addProduct(2, "1.00", 10)
	_, err := svc.Assign(context.Background(), 7, 2, 1)
	require.NoError(t, err)
	_, err = svc.Assign(context.Background(), 7, 1, 2)
	require.NoError(t, err)

	list, err := svc.ListByMerchant(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[0].ProductID)
	assert.Equal(t, uint64(2), list[1].ProductID)

	_, err = svc.ListByMerchant(context.Background(), 99)
	assert.ErrorIs(t, err, repository.ErrMerchantNotFound)
}

func TestNewAllocationServicePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() {
		NewAllocationService(nil, nil, nil, nil, config.AllocationPolicy{})
	})
}
