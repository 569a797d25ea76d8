package gateway

import (
	"errors"
	"time"

	"equip_shop/pkg/metrics"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings 熔断参数
type BreakerSettings struct {
	MaxRequests uint32        // 半开状态允许的探测请求数
	Interval    time.Duration // 闭合状态下统计窗口
	Timeout     time.Duration // 打开后多久进入半开
	MinRequests uint32
	FailureRate float64
}

// DefaultBreakerSettings 默认熔断参数
var DefaultBreakerSettings = BreakerSettings{
	MaxRequests: 3,
	Interval:    30 * time.Second,
	Timeout:     30 * time.Second,
	MinRequests: 5,
	FailureRate: 0.6,
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func newBreaker(name string, s BreakerSettings, collector *metrics.MetricsCollector, log *zap.Logger) *gobreaker.CircuitBreaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRate
		},
		OnStateChange: func(cbName string, from, to gobreaker.State) {
			if collector != nil {
				collector.SetCircuitState(cbName, stateValue(to))
			}
			log.Warn("circuit breaker state changed",
				zap.String("circuit", cbName),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	if collector != nil {
		collector.SetCircuitState(name, 0)
	}
	return cb
}

// breakerError 熔断拒绝统一映射为 ErrUnavailable
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrUnavailable, err)
	}
	return err
}
