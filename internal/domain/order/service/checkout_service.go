package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Customer 下单客户信息
type Customer struct {
	Name    string
	Phone   string
	Email   string
	Company string
	Address string
}

// ItemInput 购物车中的一行
type ItemInput struct {
	ProductID string
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

type CheckoutInput struct {
	Customer      *Customer
	Items         []ItemInput
	PaymentMethod model.PaymentMethod
}

// CheckoutResult PaymentLink 为 nil 表示无需在线支付或申请链接失败
type CheckoutResult struct {
	OrderID     string  `json:"orderId"`
	OrderCode   string  `json:"orderCode"`
	PaymentLink *string `json:"paymentLink"`
}

// CheckoutOptions 下单配置
type CheckoutOptions struct {
	ShippingFee decimal.Decimal
	CodeRetries int
	Links       LinkOptions
}

// OrderNotifier 新订单通知，需异步且不影响下单结果
type OrderNotifier interface {
	NotifyNewOrder(order model.Order)
}

type CheckoutService interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error)
}

type checkoutService struct {
	repo     repository.OrderRepository
	codes    *CodeGenerator
	linker   *paymentLinker
	notifier OrderNotifier
	metrics  *metrics.MetricsCollector
	opts     CheckoutOptions
	log      *zap.Logger
}

// NewCheckoutService gw 为 nil 时不接受 PayOS 下单，notifier / collector 可为 nil
func NewCheckoutService(
	repo repository.OrderRepository,
	gw gateway.Gateway,
	codes *CodeGenerator,
	notifier OrderNotifier,
	collector *metrics.MetricsCollector,
	opts CheckoutOptions,
	log *zap.Logger,
) CheckoutService {
	if opts.CodeRetries < 0 {
		opts.CodeRetries = 0
	}
	return &checkoutService{
		repo:     repo,
		codes:    codes,
		linker:   &paymentLinker{repo: repo, gw: gw, opts: opts.Links, metrics: collector, log: log},
		notifier: notifier,
		metrics:  collector,
		opts:     opts,
		log:      log,
	}
}

// Checkout 创建订单，PayOS 订单同时申请支付链接
func (s *checkoutService) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutResult, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}

	order := s.buildOrder(input)
	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("total", order.TotalAmount.String()),
	)
	if s.metrics != nil {
		s.metrics.RecordOrderCreated(string(order.PaymentMethod))
	}

	result := &CheckoutResult{OrderID: order.ID, OrderCode: order.OrderCode}
	if order.PaymentMethod.RequiresGateway() {
		// 申请失败不影响下单，客户可改用其他方式或由后台重建链接
		if link, err := s.linker.create(ctx, order); err == nil {
			result.PaymentLink = &link.CheckoutURL
		}
	}

	if s.notifier != nil {
		s.notifier.NotifyNewOrder(*order)
	}
	return result, nil
}

func (s *checkoutService) validate(input CheckoutInput) error {
	c := input.Customer
	if c == nil {
		return apperror.Wrap(apperror.ErrValidation, "customer information is required", nil)
	}
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Phone) == "" ||
		strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Address) == "" {
		return apperror.Wrap(apperror.ErrValidation, "customer name, phone, email and address are required", nil)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return apperror.Wrap(apperror.ErrValidation, "customer email is invalid", err)
	}
	if len(input.Items) == 0 {
		return apperror.Wrap(apperror.ErrValidation, "cart is empty", nil)
	}
	for _, it := range input.Items {
		if strings.TrimSpace(it.Name) == "" {
			return apperror.Wrap(apperror.ErrValidation, "item name is required", nil)
		}
		if it.Quantity < 1 {
			return apperror.Wrap(apperror.ErrValidation, "item quantity must be at least 1", nil)
		}
		if it.Price.IsNegative() {
			return apperror.Wrap(apperror.ErrValidation, "item price must not be negative", nil)
		}
	}
	if !input.PaymentMethod.Valid() {
		return apperror.Wrap(apperror.ErrValidation, "unsupported payment method", nil)
	}
	if input.PaymentMethod.RequiresGateway() && !s.linker.available() {
		return apperror.Wrap(apperror.ErrValidation, "online payment is not available", nil)
	}
	// 网关金额为整数 VND，逐项取整会与总额不一致
	if input.PaymentMethod.RequiresGateway() {
		for _, it := range input.Items {
			if !it.Price.IsInteger() {
				return apperror.Wrap(apperror.ErrValidation, "online payment requires whole VND prices", nil)
			}
		}
	}
	return nil
}

func (s *checkoutService) buildOrder(input CheckoutInput) *model.Order {
	items := make(model.OrderItems, 0, len(input.Items))
	for _, it := range input.Items {
		items = append(items, model.OrderItem{
			ProductID: it.ProductID,
			Name:      strings.TrimSpace(it.Name),
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	linkStatus := model.PaymentLinkNotRequired
	if input.PaymentMethod.RequiresGateway() {
		linkStatus = model.PaymentLinkAwaiting
	}

	c := input.Customer
	return &model.Order{
		CustomerName:      strings.TrimSpace(c.Name),
		CustomerPhone:     strings.TrimSpace(c.Phone),
		CustomerEmail:     strings.TrimSpace(c.Email),
		CustomerCompany:   strings.TrimSpace(c.Company),
		DeliveryAddress:   strings.TrimSpace(c.Address),
		Items:             items,
		ShippingFee:       s.opts.ShippingFee,
		TotalAmount:       items.Subtotal().Add(s.opts.ShippingFee),
		PaymentMethod:     input.PaymentMethod,
		PaymentStatus:     model.PaymentStatusPending,
		Status:            model.OrderStatusNew,
		PaymentLinkStatus: linkStatus,
	}
}

// insert 订单号冲突时重新生成，最多 CodeRetries 次
func (s *checkoutService) insert(ctx context.Context, order *model.Order) error {
	var err error
	for attempt := 0; attempt <= s.opts.CodeRetries; attempt++ {
		order.ID = ""
		order.OrderCode = s.codes.Next()
		err = s.repo.Create(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateCode) {
			break
		}
		s.log.Warn("order code collision, regenerating",
			zap.String("order_code", order.OrderCode),
			zap.Int("attempt", attempt+1),
		)
	}
	if err != nil {
		return apperror.Wrap(apperror.ErrInternal, "failed to create order", err)
	}
	return nil
}
