package common

import (
	"context"
	"net/http"
	"net/mail"
	"sort"
	"strings"
	"time"

	"equip_shop/internal/pkg/mailer"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthCheck 单个依赖的探活
type HealthCheck func(ctx context.Context) error

// SystemHandler 健康检查与运维接口
type SystemHandler struct {
	checks     map[string]HealthCheck
	mailer     mailer.Sender
	recipients []string
	timeout    time.Duration
	log        *zap.Logger
}

func NewSystemHandler(checks map[string]HealthCheck, sender mailer.Sender, recipients []string, log *zap.Logger) *SystemHandler {
	return &SystemHandler{checks: checks, mailer: sender, recipients: recipients, timeout: 3 * time.Second, log: log}
}

// Health 依赖探活，任一失败返回 503
// @Summary 健康检查
// @Tags Common
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	result := gin.H{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			result[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		result[name] = "ok"
	}

	c.JSON(status, gin.H{"success": status == http.StatusOK, "data": result})
}

// TestEmailInput 为空时发给新订单通知收件人
type TestEmailInput struct {
	To []string `json:"to"`
}

// TestEmail 同步发送一封测试邮件，用于检查 SMTP 配置
// @Summary 发送测试邮件
// @Tags Common
// @Router /api/admin/test-email [post]
func (h *SystemHandler) TestEmail(c *gin.Context) {
	var input TestEmailInput
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.FromError(c, apperror.Wrap(apperror.ErrBadRequest, "invalid request body", err))
			return
		}
	}
	if h.mailer == nil {
		response.FromError(c, apperror.Wrap(apperror.ErrInternal, "email is not configured", nil))
		return
	}

	to := input.To
	if len(to) == 0 {
		to = h.recipients
	}
	for _, addr := range to {
		if _, err := mail.ParseAddress(addr); err != nil {
			response.FromError(c, apperror.Wrap(apperror.ErrValidation, "invalid recipient "+addr, err))
			return
		}
	}
	if len(to) == 0 {
		response.FromError(c, apperror.Wrap(apperror.ErrValidation, "no recipients", mailer.ErrNoRecipients))
		return
	}

	msg := mailer.Message{
		To:       to,
		Subject:  "Email kiểm tra cấu hình",
		HTMLBody: "<p>Email kiểm tra từ hệ thống đặt hàng. Cấu hình SMTP hoạt động bình thường.</p>",
	}
	if err := h.mailer.Send(c.Request.Context(), msg); err != nil {
		h.log.Error("test email failed", zap.Strings("to", to), zap.Error(err))
		response.FromError(c, apperror.Wrap(apperror.ErrUpstream, "failed to send test email", err))
		return
	}

	h.log.Info("test email sent", zap.String("to", strings.Join(to, ",")))
	response.Success(c, gin.H{"sent": len(to)})
}
