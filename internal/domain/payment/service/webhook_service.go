package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/metrics"

	"go.uber.org/zap"
)

// 回调处理结果，同时用作指标标签
const (
	OutcomePaid             = "paid"
	OutcomeDuplicate        = "duplicate"
	OutcomeUnmatched        = "unmatched"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeError            = "error"
)

// OrderStore 回调只需要按订单号查询和标记已支付
type OrderStore interface {
	GetByCode(ctx context.Context, code string) (*model.Order, error)
	MarkPaid(ctx context.Context, code string, paidAt time.Time) (bool, error)
}

type WebhookService interface {
	// HandlePayOS 验签后处理 PayOS 回调，返回 nil 表示应向网关确认成功
	HandlePayOS(ctx context.Context, body []byte) error
}

type webhookService struct {
	store   OrderStore
	gw      gateway.Gateway
	metrics *metrics.MetricsCollector
	log     *zap.Logger
	now     func() time.Time
}

func NewWebhookService(store OrderStore, gw gateway.Gateway, collector *metrics.MetricsCollector, log *zap.Logger) WebhookService {
	return &webhookService{store: store, gw: gw, metrics: collector, log: log, now: time.Now}
}

func (s *webhookService) HandlePayOS(ctx context.Context, body []byte) error {
	outcome, err := s.handle(ctx, body)
	if s.metrics != nil {
		s.metrics.RecordWebhook(outcome)
	}
	return err
}

func (s *webhookService) handle(ctx context.Context, body []byte) (string, error) {
	if s.gw == nil {
		return OutcomeError, apperror.Wrap(apperror.ErrUpstream, "payment gateway is not configured", nil)
	}

	// 1. 验签，失败时不做任何状态变更
	event, err := s.gw.VerifyWebhook(body)
	if err != nil {
		s.log.Warn("webhook rejected", zap.Error(err))
		if errors.Is(err, gateway.ErrInvalidSignature) || errors.Is(err, gateway.ErrMalformedPayload) {
			return OutcomeInvalidSignature, apperror.Wrap(apperror.ErrInvalidSignature, "", err)
		}
		return OutcomeError, apperror.Wrap(apperror.ErrInternal, "", err)
	}

	code := strconv.FormatInt(event.Data.OrderCode, 10)
	log := s.log.With(zap.String("order_code", code), zap.String("code", event.Code))

	// 2. 只处理支付成功
	if !event.Paid() {
		log.Info("webhook acknowledged without state change", zap.String("desc", event.Desc), zap.String("data_code", event.Data.Code))
		return OutcomeIgnored, nil
	}

	// 3. 查询订单
	order, err := s.store.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		log.Warn("webhook for unknown order", zap.Int64("amount", event.Data.Amount), zap.String("reference", event.Data.Reference))
		return OutcomeUnmatched, nil
	}
	if err != nil {
		log.Error("webhook order lookup failed", zap.Error(err))
		return OutcomeError, apperror.Wrap(apperror.ErrInternal, "", err)
	}

	if order.PaymentStatus == model.PaymentStatusPaid {
		log.Info("duplicate payment notification")
		return OutcomeDuplicate, nil
	}

	if expected := order.TotalAmount.Round(0).IntPart(); expected != event.Data.Amount {
		log.Warn("webhook amount mismatch", zap.Int64("expected", expected), zap.Int64("received", event.Data.Amount))
	}

	// 4. 标记已支付
	updated, err := s.store.MarkPaid(ctx, code, s.now())
	if err != nil {
		log.Error("mark order paid failed", zap.Error(err))
		return OutcomeError, apperror.Wrap(apperror.ErrInternal, "", err)
	}
	if !updated {
		// 并发回调已先一步完成
		log.Info("order already marked paid")
		return OutcomeDuplicate, nil
	}

	log.Info("order paid", zap.String("order_id", order.ID), zap.String("reference", event.Data.Reference))
	return OutcomePaid, nil
}
