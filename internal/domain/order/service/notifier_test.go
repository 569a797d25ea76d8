package service

import (
	"context"
	"testing"
	"time"

	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/pkg/mailer"
	"equip_shop/internal/pkg/worker"
	"equip_shop/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureSender struct {
	sent chan mailer.Message
}

func (s *captureSender) Send(ctx context.Context, msg mailer.Message) error {
	s.sent <- msg
	return nil
}

func TestRenderNewOrderEmail(t *testing.T) {
	o := storedOrder(model.PaymentMethodCOD)
	o.CustomerName = "<script>alert(1)</script>"

	body, err := RenderNewOrderEmail(*o)
	require.NoError(t, err)
	assert.Contains(t, body, "#123456")
	assert.Contains(t, body, "2500000 VND")
	assert.Contains(t, body, "2000000")
	assert.NotContains(t, body, "<script>")
}

func TestMailNotifier_NotifyNewOrder(t *testing.T) {
	pool := worker.NewPool(1, 4, zap.NewNop())
	pool.Start()
	defer pool.Stop(context.Background())

	sender := &captureSender{sent: make(chan mailer.Message, 1)}
	collector := metrics.NewMetricsCollector()
	n := NewMailNotifier(pool, sender, []string{"sales@example.com"}, collector, zap.NewNop())

	n.NotifyNewOrder(*storedOrder(model.PaymentMethodPayOS))

	select {
	case msg := <-sender.sent:
		assert.Equal(t, []string{"sales@example.com"}, msg.To)
		assert.Contains(t, msg.Subject, "123456")
	case <-time.After(2 * time.Second):
		t.Fatal("email not sent")
	}
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(collector.Notifications("sent")) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestMailNotifier_NoRecipients(t *testing.T) {
	pool := worker.NewPool(1, 1, zap.NewNop())
	sender := &captureSender{sent: make(chan mailer.Message, 1)}
	n := NewMailNotifier(pool, sender, nil, nil, zap.NewNop())

	n.NotifyNewOrder(*storedOrder(model.PaymentMethodCOD))
	assert.Len(t, pool.TaskQueue, 0)
}
