package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/internal/pkg/session"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/metrics"
	"equip_shop/pkg/utils"

	"go.uber.org/zap"
)

// ListOrdersInput 列表查询参数
type ListOrdersInput struct {
	Status        string `form:"status"`
	PaymentStatus string `form:"paymentStatus"`
	utils.Pagination
}

// UpdateOrderInput 部分更新，nil 字段保持不变
type UpdateOrderInput struct {
	Status          *model.OrderStatus   `json:"status"`
	PaymentStatus   *model.PaymentStatus `json:"paymentStatus"`
	Notes           *string              `json:"notes"`
	DeliveryAddress *string              `json:"deliveryAddress"`
	CustomerName    *string              `json:"customerName"`
	CustomerPhone   *string              `json:"customerPhone"`
	CustomerEmail   *string              `json:"customerEmail"`
	CustomerCompany *string              `json:"customerCompany"`
}

// AdminService 后台订单管理，所有方法都要求已登录会话
type AdminService interface {
	ListOrders(ctx context.Context, sess *session.Session, input ListOrdersInput) (*utils.PageResult, error)
	GetOrder(ctx context.Context, sess *session.Session, id string) (*model.Order, error)
	UpdateOrder(ctx context.Context, sess *session.Session, id string, input UpdateOrderInput) (*model.Order, error)
	RetryPaymentLink(ctx context.Context, sess *session.Session, id string) (*model.Order, error)
}

type adminService struct {
	repo   repository.OrderRepository
	linker *paymentLinker
	log    *zap.Logger
	now    func() time.Time
}

func NewAdminService(repo repository.OrderRepository, gw gateway.Gateway, links LinkOptions, collector *metrics.MetricsCollector, log *zap.Logger) AdminService {
	return &adminService{
		repo:   repo,
		linker: &paymentLinker{repo: repo, gw: gw, opts: links, metrics: collector, log: log},
		log:    log,
		now:    time.Now,
	}
}

func requireSession(sess *session.Session) error {
	if sess == nil {
		return apperror.ErrUnauthorized
	}
	return nil
}

func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.Wrap(apperror.ErrOrderNotFound, "", err)
	}
	return apperror.Wrap(apperror.ErrInternal, "", err)
}

// ListOrders 按创建时间倒序
func (s *adminService) ListOrders(ctx context.Context, sess *session.Session, input ListOrdersInput) (*utils.PageResult, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	filter := repository.ListFilter{
		Status:        model.OrderStatus(input.Status),
		PaymentStatus: model.PaymentStatus(input.PaymentStatus),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.Wrap(apperror.ErrValidation, "unknown order status", nil)
	}
	if filter.PaymentStatus != "" && !filter.PaymentStatus.Valid() {
		return nil, apperror.Wrap(apperror.ErrValidation, "unknown payment status", nil)
	}
	filter.Offset, filter.Limit = input.GetPageOffset()

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err)
	}
	return utils.NewPageResult(orders, total, input.Pagination), nil
}

func (s *adminService) GetOrder(ctx context.Context, sess *session.Session, id string) (*model.Order, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return order, nil
}

// UpdateOrder 校验状态流转后做部分更新
func (s *adminService) UpdateOrder(ctx context.Context, sess *session.Session, id string, input UpdateOrderInput) (*model.Order, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	updates, err := s.buildUpdates(current, input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, storeError(err)
	}
	s.log.Info("order updated by admin",
		zap.String("order_id", id),
		zap.String("admin", sess.Username),
		zap.Strings("fields", fieldNames(updates)),
	)

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

func (s *adminService) buildUpdates(current *model.Order, input UpdateOrderInput) (map[string]interface{}, error) {
	updates := map[string]interface{}{}

	if input.Status != nil && *input.Status != current.Status {
		next := *input.Status
		if !next.Valid() {
			return nil, apperror.Wrap(apperror.ErrValidation, "unknown order status", nil)
		}
		if !current.Status.CanTransitionTo(next) {
			return nil, apperror.Wrap(apperror.ErrInvalidTransition,
				"cannot change status from "+string(current.Status)+" to "+string(next), nil)
		}
		updates["status"] = next
	}

	if input.PaymentStatus != nil && *input.PaymentStatus != current.PaymentStatus {
		next := *input.PaymentStatus
		if !next.Valid() {
			return nil, apperror.Wrap(apperror.ErrValidation, "unknown payment status", nil)
		}
		if !current.PaymentStatus.CanTransitionTo(next) {
			return nil, apperror.Wrap(apperror.ErrInvalidTransition,
				"cannot change payment status from "+string(current.PaymentStatus)+" to "+string(next), nil)
		}
		updates["payment_status"] = next
		if next == model.PaymentStatusPaid && current.PaidAt == nil {
			updates["paid_at"] = s.now()
		}
	}

	text := []struct {
		column   string
		value    *string
		required bool
	}{
		{"notes", input.Notes, false},
		{"delivery_address", input.DeliveryAddress, true},
		{"customer_name", input.CustomerName, true},
		{"customer_phone", input.CustomerPhone, true},
		{"customer_email", input.CustomerEmail, true},
		{"customer_company", input.CustomerCompany, false},
	}
	for _, f := range text {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if f.required && v == "" {
			return nil, apperror.Wrap(apperror.ErrValidation, f.column+" must not be empty", nil)
		}
		updates[f.column] = v
	}
	return updates, nil
}

// RetryPaymentLink 为未支付且没有可用链接的 PayOS 订单重新申请链接
func (s *adminService) RetryPaymentLink(ctx context.Context, sess *session.Session, id string) (*model.Order, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !order.PaymentMethod.RequiresGateway() || order.PaymentStatus != model.PaymentStatusPending ||
		order.PaymentLinkStatus == model.PaymentLinkCreated {
		return nil, apperror.ErrPaymentLinkExists
	}
	if !s.linker.available() {
		return nil, apperror.Wrap(apperror.ErrUpstream, "online payment is not configured", nil)
	}

	if _, err := s.linker.create(ctx, order); err != nil {
		return nil, apperror.Wrap(apperror.ErrUpstream, "", err)
	}
	s.log.Info("payment link regenerated", zap.String("order_id", id), zap.String("admin", sess.Username))
	return order, nil
}

func fieldNames(updates map[string]interface{}) []string {
	names := make([]string, 0, len(updates))
	for k := range updates {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
