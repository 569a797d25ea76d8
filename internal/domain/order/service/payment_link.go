package service

import (
	"context"
	"fmt"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/repository"
	"equip_shop/internal/pkg/gateway"
	"equip_shop/pkg/metrics"

	"go.uber.org/zap"
)

// LinkOptions 支付链接跳转地址
type LinkOptions struct {
	ReturnURL string
	CancelURL string
}

// paymentLinker 申请支付链接并记录结果，Checkout 与后台重建链接共用
type paymentLinker struct {
	repo    repository.OrderRepository
	gw      gateway.Gateway
	opts    LinkOptions
	metrics *metrics.MetricsCollector
	log     *zap.Logger
}

func (l *paymentLinker) available() bool {
	return l.gw != nil
}

func (l *paymentLinker) buildRequest(order *model.Order) (gateway.PaymentRequest, error) {
	code, err := order.GatewayCode()
	if err != nil {
		return gateway.PaymentRequest{}, fmt.Errorf("order code %q is not numeric: %w", order.OrderCode, err)
	}

	items := make([]gateway.Item, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, gateway.Item{
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price.Round(0).IntPart(),
		})
	}

	return gateway.PaymentRequest{
		OrderCode:    code,
		Amount:       order.TotalAmount.Round(0).IntPart(),
		Description:  "DH " + order.OrderCode,
		Items:        items,
		ReturnURL:    l.opts.ReturnURL,
		CancelURL:    l.opts.CancelURL,
		BuyerName:    order.CustomerName,
		BuyerEmail:   order.CustomerEmail,
		BuyerPhone:   order.CustomerPhone,
		BuyerAddress: order.DeliveryAddress,
	}, nil
}

// create 申请链接。失败时将失败原因写回订单后返回错误；
// 链接已生成但写库失败时仍返回链接
func (l *paymentLinker) create(ctx context.Context, order *model.Order) (*gateway.PaymentLink, error) {
	log := l.log.With(zap.String("order_id", order.ID), zap.String("order_code", order.OrderCode))

	req, err := l.buildRequest(order)
	if err == nil {
		var link *gateway.PaymentLink
		link, err = l.gw.CreatePaymentLink(ctx, req)
		if err == nil {
			l.record("created")
			if attachErr := l.repo.AttachPaymentLink(ctx, order.ID, link.PaymentLinkID, link.CheckoutURL); attachErr != nil {
				log.Error("failed to attach payment link", zap.String("payment_link_id", link.PaymentLinkID), zap.Error(attachErr))
			} else {
				order.ExternalPaymentRef = &link.PaymentLinkID
				order.CheckoutURL = &link.CheckoutURL
				order.PaymentLinkStatus = model.PaymentLinkCreated
				order.PaymentLinkError = ""
			}
			return link, nil
		}
	}

	l.record("failed")
	log.Error("failed to create payment link", zap.String("gateway", l.gw.Name()), zap.Error(err))
	if markErr := l.repo.MarkPaymentLinkFailed(ctx, order.ID, err.Error()); markErr != nil {
		log.Error("failed to record payment link failure", zap.Error(markErr))
	} else {
		order.PaymentLinkStatus = model.PaymentLinkFailed
		order.PaymentLinkError = err.Error()
	}
	return nil, err
}

func (l *paymentLinker) record(outcome string) {
	if l.metrics != nil {
		l.metrics.RecordPaymentLink(outcome)
	}
}
