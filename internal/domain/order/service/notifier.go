package service

import (
	"bytes"
	"context"
	"html/template"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/pkg/mailer"
	"equip_shop/internal/pkg/worker"
	"equip_shop/pkg/metrics"

	"go.uber.org/zap"
)

var newOrderTemplate = template.Must(template.New("new_order").Parse(`<h2>Đơn hàng mới #{{.OrderCode}}</h2>
<p><b>Khách hàng:</b> {{.CustomerName}}{{if .CustomerCompany}} ({{.CustomerCompany}}){{end}}<br>
<b>Điện thoại:</b> {{.CustomerPhone}}<br>
<b>Email:</b> {{.CustomerEmail}}<br>
<b>Địa chỉ giao hàng:</b> {{.DeliveryAddress}}</p>
<table border="1" cellpadding="6" cellspacing="0">
<tr><th>Sản phẩm</th><th>SL</th><th>Đơn giá</th><th>Thành tiền</th></tr>
{{range .Items}}<tr><td>{{.Name}}</td><td>{{.Quantity}}</td><td>{{.Price.StringFixed 0}}</td><td>{{.LineTotal.StringFixed 0}}</td></tr>
{{end}}</table>
<p>Phí vận chuyển: {{.ShippingFee.StringFixed 0}} VND<br>
<b>Tổng cộng: {{.TotalAmount.StringFixed 0}} VND</b><br>
Thanh toán: {{.PaymentMethod}}</p>`))

// RenderNewOrderEmail 渲染新订单通知邮件
func RenderNewOrderEmail(order model.Order) (string, error) {
	var buf bytes.Buffer
	if err := newOrderTemplate.Execute(&buf, order); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MailNotifier 通过工作池异步发送新订单邮件给业务人员
type MailNotifier struct {
	pool       *worker.Pool
	sender     mailer.Sender
	recipients []string
	metrics    *metrics.MetricsCollector
	log        *zap.Logger
}

func NewMailNotifier(pool *worker.Pool, sender mailer.Sender, recipients []string, collector *metrics.MetricsCollector, log *zap.Logger) *MailNotifier {
	return &MailNotifier{pool: pool, sender: sender, recipients: recipients, metrics: collector, log: log}
}

// NotifyNewOrder 入队即返回，发送失败由工作池重试
func (n *MailNotifier) NotifyNewOrder(order model.Order) {
	if len(n.recipients) == 0 {
		return
	}
	body, err := RenderNewOrderEmail(order)
	if err != nil {
		n.log.Error("failed to render order email", zap.String("order_code", order.OrderCode), zap.Error(err))
		return
	}
	msg := mailer.Message{
		To:       n.recipients,
		Subject:  "Đơn hàng mới #" + order.OrderCode,
		HTMLBody: body,
	}

	err = n.pool.AddTask(worker.Task{
		Name: "order_email:" + order.OrderCode,
		Run: func(ctx context.Context) error {
			if err := n.sender.Send(ctx, msg); err != nil {
				n.record("failed")
				return err
			}
			n.record("sent")
			return nil
		},
	})
	if err != nil {
		n.record("dropped")
	}
}

func (n *MailNotifier) record(outcome string) {
	if n.metrics != nil {
		n.metrics.RecordNotification(outcome)
	}
}
