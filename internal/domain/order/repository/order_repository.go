package repository

import (
	"context"
	"errors"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/pkg/database"

	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrDuplicateCode = errors.New("order code already exists")
)

// ListFilter 后台列表筛选
type ListFilter struct {
	Status        model.OrderStatus
	PaymentStatus model.PaymentStatus
	Offset        int
	Limit         int
}

// OrderRepository 订单存储
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id string) (*model.Order, error)
	GetByCode(ctx context.Context, code string) (*model.Order, error)
	List(ctx context.Context, filter ListFilter) ([]model.Order, int64, error)
	// Update 部分更新，自动写入 updated_at
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	AttachPaymentLink(ctx context.Context, id, ref, checkoutURL string) error
	MarkPaymentLinkFailed(ctx context.Context, id, reason string) error
	// MarkPaid 条件更新，已支付的订单不会被再次修改；返回是否发生了更新
	MarkPaid(ctx context.Context, code string, paidAt time.Time) (bool, error)
}

type orderRepository struct {
	db    *gorm.DB
	retry database.RetryPolicy
}

func NewOrderRepository(db *gorm.DB, retry database.RetryPolicy) OrderRepository {
	return &orderRepository{db: db, retry: retry}
}

// Create 插入订单。插入不做自动重试，避免连接中断时重复落单
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || database.IsUniqueViolation(err) {
		return errors.Join(ErrDuplicateCode, err)
	}
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *orderRepository) GetByCode(ctx context.Context, code string) (*model.Order, error) {
	return r.first(ctx, "order_code = ?", code)
}

func (r *orderRepository) first(ctx context.Context, query string, arg interface{}) (*model.Order, error) {
	var order model.Order
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where(query, arg).First(&order).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List 按创建时间倒序分页
func (r *orderRepository) List(ctx context.Context, filter ListFilter) ([]model.Order, int64, error) {
	var (
		orders []model.Order
		total  int64
	)
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		q := r.db.WithContext(ctx).Model(&model.Order{})
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.PaymentStatus != "" {
			q = q.Where("payment_status = ?", filter.PaymentStatus)
		}
		q = q.Session(&gorm.Session{})
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		return q.Order("created_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&orders).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.updateByID(ctx, id, updates)
}

func (r *orderRepository) AttachPaymentLink(ctx context.Context, id, ref, checkoutURL string) error {
	return r.updateByID(ctx, id, map[string]interface{}{
		"external_payment_ref": ref,
		"checkout_url":         checkoutURL,
		"payment_link_status":  model.PaymentLinkCreated,
		"payment_link_error":   "",
		"updated_at":           time.Now(),
	})
}

func (r *orderRepository) MarkPaymentLinkFailed(ctx context.Context, id, reason string) error {
	return r.updateByID(ctx, id, map[string]interface{}{
		"payment_link_status": model.PaymentLinkFailed,
		"payment_link_error":  reason,
		"updated_at":          time.Now(),
	})
}

func (r *orderRepository) updateByID(ctx context.Context, id string, updates map[string]interface{}) error {
	var affected int64
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		res := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid 履约状态仅在 new / processing 时推进到 processing，已发货等状态保持不变
func (r *orderRepository) MarkPaid(ctx context.Context, code string, paidAt time.Time) (bool, error) {
	status := gorm.Expr("CASE WHEN status IN (?, ?) THEN ? ELSE status END",
		model.OrderStatusNew, model.OrderStatusProcessing, model.OrderStatusProcessing)

	var affected int64
	err := database.WithRetry(ctx, r.retry, func(ctx context.Context) error {
		res := r.db.WithContext(ctx).Model(&model.Order{}).
			Where("order_code = ? AND payment_status <> ?", code, model.PaymentStatusPaid).
			Updates(map[string]interface{}{
				"payment_status": model.PaymentStatusPaid,
				"status":         status,
				"paid_at":        paidAt,
				"updated_at":     paidAt,
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
