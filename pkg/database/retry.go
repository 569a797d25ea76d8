package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// IsTransient 判断是否为可重试的数据库错误
// 08xxx 连接异常, 40001 序列化失败, 40P01 死锁, 57P01 管理员终止连接
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"):
			return true
		case pgErr.Code == "40001", pgErr.Code == "40P01", pgErr.Code == "57P01":
			return true
		}
	}
	return false
}

// IsUniqueViolation 唯一约束冲突 (23505)
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// RetryPolicy 瞬时错误的重试策略
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxRetries: 3, BaseDelay: 50 * time.Millisecond}

// WithRetry 对瞬时错误做指数退避重试，其余错误直接返回
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(policy.MaxRetries, retry.NewExponential(policy.BaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
