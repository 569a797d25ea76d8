package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/config"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const checksumKey = "webhook-test-checksum"

// memoryStore 按仓储的 MarkPaid 语义维护订单状态
type memoryStore struct {
	mu        sync.Mutex
	orders    map[string]*model.Order
	lookupErr error
	markErr   error
	markCalls int
}

func newMemoryStore(orders ...*model.Order) *memoryStore {
	s := &memoryStore{orders: make(map[string]*model.Order)}
	for _, o := range orders {
		s.orders[o.OrderCode] = o
	}
	return s
}

func (s *memoryStore) GetByCode(_ context.Context, code string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	o, ok := s.orders[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memoryStore) MarkPaid(_ context.Context, code string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	if s.markErr != nil {
		return false, s.markErr
	}
	o, ok := s.orders[code]
	if !ok || o.PaymentStatus == model.PaymentStatusPaid {
		return false, nil
	}
	o.PaymentStatus = model.PaymentStatusPaid
	if o.Status == model.OrderStatusNew || o.Status == model.OrderStatusProcessing {
		o.Status = model.OrderStatusProcessing
	}
	o.PaidAt = &paidAt
	return true, nil
}

func newGateway() gateway.Gateway {
	return gateway.NewPayOS(config.PayOSConfig{
		ClientID:    "client",
		APIKey:      "key",
		ChecksumKey: checksumKey,
		BaseURL:     "http://127.0.0.1:0",
		Timeout:     time.Second,
	}, gateway.DefaultBreakerSettings, nil, zap.NewNop())
}

func newService(store OrderStore, gw gateway.Gateway) (*webhookService, *metrics.MetricsCollector) {
	collector := metrics.NewMetricsCollector()
	svc := NewWebhookService(store, gw, collector, zap.NewNop()).(*webhookService)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	return svc, collector
}

func callback(t *testing.T, key, code string, orderCode, amount int64) []byte {
	t.Helper()
	data := map[string]interface{}{
		"orderCode":           orderCode,
		"amount":              amount,
		"description":         "DH 123456",
		"accountNumber":       "12345678",
		"reference":           "FT24050112345",
		"transactionDateTime": "2024-05-01 09:00:00",
		"currency":            "VND",
		"paymentLinkId":       "plink-1",
		"code":                code,
		"desc":                "success",
	}
	sig, err := gateway.SignData(key, data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"code":      code,
		"desc":      "success",
		"success":   code == gateway.SuccessCode,
		"data":      data,
		"signature": sig,
	})
	require.NoError(t, err)
	return body
}

func pendingOrder(code string) *model.Order {
	o := &model.Order{
		OrderCode:     code,
		TotalAmount:   decimal.NewFromInt(2500000),
		PaymentMethod: model.PaymentMethodPayOS,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusNew,
	}
	o.ID = "order-" + code
	return o
}

func TestHandlePayOS_MarksOrderPaidIdempotently(t *testing.T) {
	store := newMemoryStore(pendingOrder("123456"))
	svc, collector := newService(store, newGateway())
	body := callback(t, checksumKey, "00", 123456, 2500000)

	require.NoError(t, svc.HandlePayOS(context.Background(), body))
	got := store.orders["123456"]
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, got.Status)
	require.NotNil(t, got.PaidAt)
	firstPaidAt := *got.PaidAt

	// 重复投递
	require.NoError(t, svc.HandlePayOS(context.Background(), body))
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, got.Status)
	assert.Equal(t, firstPaidAt, *got.PaidAt)
	assert.Equal(t, 1, store.markCalls)

	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomePaid)))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomeDuplicate)))
}

func TestHandlePayOS_AcceptsStringOrderCode(t *testing.T) {
	store := newMemoryStore(pendingOrder("123456"))
	svc, collector := newService(store, newGateway())

	data := map[string]interface{}{
		"orderCode": "123456",
		"amount":    "2500000",
		"code":      "00",
		"desc":      "success",
	}
	sig, err := gateway.SignData(checksumKey, data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{"code": "00", "data": data, "signature": sig})
	require.NoError(t, err)

	require.NoError(t, svc.HandlePayOS(context.Background(), body))
	assert.Equal(t, model.PaymentStatusPaid, store.orders["123456"].PaymentStatus)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomePaid)))
}

func TestHandlePayOS_KeepsLaterFulfillmentStatus(t *testing.T) {
	o := pendingOrder("123457")
	o.Status = model.OrderStatusShipped
	store := newMemoryStore(o)
	svc, _ := newService(store, newGateway())

	require.NoError(t, svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 123457, 2500000)))
	assert.Equal(t, model.PaymentStatusPaid, store.orders["123457"].PaymentStatus)
	assert.Equal(t, model.OrderStatusShipped, store.orders["123457"].Status)
}

func TestHandlePayOS_UnknownOrderIsAcknowledged(t *testing.T) {
	store := newMemoryStore()
	svc, collector := newService(store, newGateway())

	err := svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 999999, 1000))
	require.NoError(t, err)
	assert.Empty(t, store.orders)
	assert.Zero(t, store.markCalls)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomeUnmatched)))
}

func TestHandlePayOS_InvalidSignatureChangesNothing(t *testing.T) {
	store := newMemoryStore(pendingOrder("123456"))
	svc, collector := newService(store, newGateway())

	tests := []struct {
		name string
		body []byte
	}{
		{"wrong key", callback(t, "another-key", "00", 123456, 2500000)},
		{"not json", []byte("{oops")},
		{"missing signature", []byte(`{"code":"00","data":{"orderCode":123456}}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.HandlePayOS(context.Background(), tt.body)
			assert.ErrorIs(t, err, apperror.ErrInvalidSignature)
		})
	}

	assert.Equal(t, model.PaymentStatusPending, store.orders["123456"].PaymentStatus)
	assert.Zero(t, store.markCalls)
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(collector.WebhookEvents(OutcomeInvalidSignature)))
}

func TestHandlePayOS_NonSuccessCodeIgnored(t *testing.T) {
	store := newMemoryStore(pendingOrder("123456"))
	svc, collector := newService(store, newGateway())

	require.NoError(t, svc.HandlePayOS(context.Background(), callback(t, checksumKey, "01", 123456, 2500000)))
	assert.Equal(t, model.PaymentStatusPending, store.orders["123456"].PaymentStatus)
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomeIgnored)))
}

func TestHandlePayOS_AmountMismatchStillRecorded(t *testing.T) {
	store := newMemoryStore(pendingOrder("123456"))
	svc, _ := newService(store, newGateway())

	require.NoError(t, svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 123456, 2000)))
	assert.Equal(t, model.PaymentStatusPaid, store.orders["123456"].PaymentStatus)
}

func TestHandlePayOS_StoreErrors(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		store := newMemoryStore()
		store.lookupErr = errors.New("connection reset")
		svc, collector := newService(store, newGateway())

		err := svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 123456, 2500000))
		assert.ErrorIs(t, err, apperror.ErrInternal)
		assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomeError)))
	})

	t.Run("mark paid", func(t *testing.T) {
		store := newMemoryStore(pendingOrder("123456"))
		store.markErr = errors.New("deadlock")
		svc, _ := newService(store, newGateway())

		err := svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 123456, 2500000))
		assert.ErrorIs(t, err, apperror.ErrInternal)
	})
}

// racingStore 查询时仍为 pending，更新时已被其他回调标记
type racingStore struct{ *memoryStore }

func (s racingStore) MarkPaid(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func TestHandlePayOS_ConcurrentDeliveryCountsAsDuplicate(t *testing.T) {
	store := racingStore{newMemoryStore(pendingOrder("123456"))}
	svc, collector := newService(store, newGateway())

	require.NoError(t, svc.HandlePayOS(context.Background(), callback(t, checksumKey, "00", 123456, 2500000)))
	assert.Equal(t, float64(1), testutil.ToFloat64(collector.WebhookEvents(OutcomeDuplicate)))
}

func TestHandlePayOS_NoGateway(t *testing.T) {
	svc, _ := newService(newMemoryStore(), nil)
	err := svc.HandlePayOS(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}
