package service

import (
	"context"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/gateway"

	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	if args.Error(0) == nil && order.ID == "" {
		order.ID = "order-" + order.OrderCode
	}
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.ListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]model.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockOrderRepository) AttachPaymentLink(ctx context.Context, id, ref, checkoutURL string) error {
	args := m.Called(ctx, id, ref, checkoutURL)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaymentLinkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, code string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, code, paidAt)
	return args.Bool(0), args.Error(1)
}

// MockGateway is a mock of gateway.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Name() string {
	return "mock"
}

func (m *MockGateway) CreatePaymentLink(ctx context.Context, req gateway.PaymentRequest) (*gateway.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentLink), args.Error(1)
}

func (m *MockGateway) VerifyWebhook(body []byte) (*gateway.WebhookEvent, error) {
	args := m.Called(body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.WebhookEvent), args.Error(1)
}

// MockNotifier records notified orders
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyNewOrder(order model.Order) {
	m.Called(order)
}
