package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// MetricsCollector 指标收集器
type MetricsCollector struct {
	registry *prometheus.Registry

	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 订单与支付指标
	ordersCreatedTotal     *prometheus.CounterVec
	paymentLinksTotal      *prometheus.CounterVec
	webhookEventsTotal     *prometheus.CounterVec
	gatewayCircuitState    *prometheus.GaugeVec
	gatewayRequestDuration *prometheus.HistogramVec
	notificationsTotal     *prometheus.CounterVec
}

// NewMetricsCollector 创建指标收集器，每个实例使用独立的 Registry
func NewMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ordersCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Orders persisted by checkout, by payment method",
			},
			[]string{"payment_method"},
		),

		paymentLinksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_links_total",
				Help: "Payment link requests by outcome",
			},
			[]string{"outcome"},
		),

		webhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Payment webhook deliveries by outcome",
			},
			[]string{"outcome"},
		),

		gatewayCircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "payment_gateway_circuit_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"gateway"},
		),

		gatewayRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_gateway_request_duration_seconds",
				Help:    "Payment gateway request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"gateway", "operation"},
		),

		notificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification emails by outcome",
			},
			[]string{"outcome"},
		),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.ordersCreatedTotal,
		m.paymentLinksTotal,
		m.webhookEventsTotal,
		m.gatewayCircuitState,
		m.gatewayRequestDuration,
		m.notificationsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 供 /metrics 暴露
func (m *MetricsCollector) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordOrderCreated(paymentMethod string) {
	m.ordersCreatedTotal.WithLabelValues(paymentMethod).Inc()
}

// RecordPaymentLink outcome: created / failed / skipped
func (m *MetricsCollector) RecordPaymentLink(outcome string) {
	m.paymentLinksTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhook outcome: paid / duplicate / unmatched / ignored / invalid_signature / error
func (m *MetricsCollector) RecordWebhook(outcome string) {
	m.webhookEventsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsCollector) SetCircuitState(gateway string, state float64) {
	m.gatewayCircuitState.WithLabelValues(gateway).Set(state)
}

// CircuitState 当前熔断状态 0=closed 1=open 2=half-open
func (m *MetricsCollector) CircuitState(gateway string) prometheus.Gauge {
	return m.gatewayCircuitState.WithLabelValues(gateway)
}

func (m *MetricsCollector) ObserveGatewayRequest(gateway, operation string, duration time.Duration) {
	m.gatewayRequestDuration.WithLabelValues(gateway, operation).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordNotification(outcome string) {
	m.notificationsTotal.WithLabelValues(outcome).Inc()
}

// 以下访问器用于读取单个序列的当前值

func (m *MetricsCollector) OrdersCreated(paymentMethod string) prometheus.Counter {
	return m.ordersCreatedTotal.WithLabelValues(paymentMethod)
}

func (m *MetricsCollector) PaymentLinks(outcome string) prometheus.Counter {
	return m.paymentLinksTotal.WithLabelValues(outcome)
}

func (m *MetricsCollector) WebhookEvents(outcome string) prometheus.Counter {
	return m.webhookEventsTotal.WithLabelValues(outcome)
}

func (m *MetricsCollector) Notifications(outcome string) prometheus.Counter {
	return m.notificationsTotal.WithLabelValues(outcome)
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// GetGlobalCollector 获取全局指标收集器
func GetGlobalCollector() *MetricsCollector {
	once.Do(func() {
		globalCollector = NewMetricsCollector()
	})
	return globalCollector
}
