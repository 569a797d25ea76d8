package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorCounters(t *testing.T) {
	m := NewMetricsCollector()

	m.RecordOrderCreated("COD")
	m.RecordOrderCreated("COD")
	m.RecordPaymentLink("failed")
	m.RecordWebhook("paid")
	m.RecordHTTPRequest("POST", "/api/checkout", 200, 15*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ordersCreatedTotal.WithLabelValues("COD")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.paymentLinksTotal.WithLabelValues("failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.webhookEventsTotal.WithLabelValues("paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("POST", "/api/checkout", "200")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewMetricsCollector()
	b := NewMetricsCollector()

	a.RecordOrderCreated("PayOS")
	assert.Equal(t, float64(0), testutil.ToFloat64(b.ordersCreatedTotal.WithLabelValues("PayOS")))
	assert.Same(t, GetGlobalCollector(), GetGlobalCollector())
}
