package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-venue-pos/internal/apperr"
	"github.com/ariefcatur/go-venue-pos/internal/httpx"
	"github.com/ariefcatur/go-venue-pos/internal/orders"
	"github.com/ariefcatur/go-venue-pos/internal/redisx"
	"github.com/ariefcatur/go-venue-pos/internal/treasury"
)

func newRedisAPI(t *testing.T) (*api, *redisx.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redisx.NewCache(rdb)
	return newCachedAPI(t, cache), cache, mr
}

func (a *api) orderCount() int {
	a.t.Helper()
	res := a.do(http.MethodGet, "/orders", nil, nil)
	require.Equal(a.t, http.StatusOK, res.StatusCode)
	return read[orders.Page](a.t, res).Data.TotalCount
}

func TestCreateOrderReplaysStoredResponse(t *testing.T) {
	a, _, _ := newRedisAPI(t)
	h := map[string]string{"X-User-ID": "cashier-1", "Idempotency-Key": "retry-1"}
	req := httpx.CreateOrderReq{
		ClientID: a.client,
		Items:    []orders.ItemInput{{InventoryItemID: a.burger.ID, Quantity: 1}},
	}

	first := a.do(http.MethodPost, "/orders", req, h)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	second := a.do(http.MethodPost, "/orders", req, h)
	require.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, "true", second.Header.Get("Idempotent-Replay"))

	assert.Equal(t, read[orders.Order](t, first).Data.ID, read[orders.Order](t, second).Data.ID)
	assert.Equal(t, 1, a.orderCount())
}

func TestConcurrentRetriesCreateOneOrder(t *testing.T) {
	a, _, _ := newRedisAPI(t)
	body, err := json.Marshal(httpx.CreateOrderReq{
		ClientID: a.client,
		Items:    []orders.ItemInput{{InventoryItemID: a.burger.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	const n = 8
	codes := make([]int, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/orders", bytes.NewReader(body))
			if err != nil {
				errs[i] = err
				return
			}
			req.Header.Set("X-User-ID", "cashier-1")
			req.Header.Set("Idempotency-Key", "burst")
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			_ = res.Body.Close()
			codes[i] = res.StatusCode
		}(i)
	}
	wg.Wait()

	created := 0
	for i := range codes {
		require.NoError(t, errs[i])
		assert.Contains(t, []int{http.StatusCreated, http.StatusConflict}, codes[i])
		if codes[i] == http.StatusCreated {
			created++
		}
	}
	assert.GreaterOrEqual(t, created, 1)
	assert.Equal(t, 1, a.orderCount())
}

func TestInFlightKeyIsAConflict(t *testing.T) {
	a, cache, _ := newRedisAPI(t)
	o := a.createOrder(1)

	// another request holds the key and has not finished
	key := fmt.Sprintf(redisx.KeyIdemOrderPay, o.ID, "pay-1")
	_, state, err := cache.Claim(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, redisx.ClaimAcquired, state)

	res := a.do(http.MethodPost, "/orders/"+o.ID+"/pay", httpx.PayOrderReq{PaymentMethod: treasury.MethodCash},
		map[string]string{"X-User-ID": "cashier-1", "Idempotency-Key": "pay-1"})
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, string(apperr.CodeInProgress), read[any](t, res).Code)

	res = a.do(http.MethodGet, "/orders/"+o.ID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, orders.StatusPending, read[orders.Order](t, res).Data.PaymentStatus)
}

func TestFailedRequestReleasesKey(t *testing.T) {
	a, _, mr := newRedisAPI(t)
	h := map[string]string{"X-User-ID": "cashier-1", "Idempotency-Key": "too-many"}
	req := httpx.CreateOrderReq{
		ClientID: a.client,
		Items:    []orders.ItemInput{{InventoryItemID: a.burger.ID, Quantity: 6}},
	}

	for i := 0; i < 2; i++ {
		res := a.do(http.MethodPost, "/orders", req, h)
		assert.Equal(t, http.StatusConflict, res.StatusCode)
		assert.Equal(t, string(apperr.CodeInsufficientStock), read[any](t, res).Code)
	}
	assert.False(t, mr.Exists(fmt.Sprintf(redisx.KeyIdemOrderCreate, "too-many")))
}

func TestMutationsInvalidateCachedOrder(t *testing.T) {
	a, cache, _ := newRedisAPI(t)
	ctx := context.Background()
	o := a.createOrder(1)

	// mutations never write the snapshot
	_, ok := cache.OrderStatus(ctx, o.ID)
	assert.False(t, ok)

	res := a.do(http.MethodGet, "/orders/"+o.ID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	_, ok = cache.OrderStatus(ctx, o.ID)
	require.True(t, ok)

	res = a.do(http.MethodPost, "/orders/"+o.ID+"/pay", httpx.PayOrderReq{PaymentMethod: treasury.MethodCash}, cashier)
	require.Equal(t, http.StatusOK, res.StatusCode)
	_, ok = cache.OrderStatus(ctx, o.ID)
	assert.False(t, ok)

	res = a.do(http.MethodGet, "/orders/"+o.ID, nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, orders.StatusPaid, read[orders.Order](t, res).Data.PaymentStatus)

	// a later kitchen update drops the PAID snapshot instead of replacing it
	res = a.do(http.MethodPost, "/orders/"+o.ID+"/ready", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	_, ok = cache.OrderStatus(ctx, o.ID)
	assert.False(t, ok)
}
