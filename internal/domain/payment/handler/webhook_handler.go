package handler

import (
	"io"
	"net/http"

	"equip_shop/internal/domain/payment/service"
	"equip_shop/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// 回调报文上限
const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	service service.WebhookService
}

func NewWebhookHandler(s service.WebhookService) *WebhookHandler {
	return &WebhookHandler{service: s}
}

// PayOSWebhook PayOS 支付结果回调
// @Summary PayOS 支付回调
// @Tags Payment
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/payment/webhook [post]
func (h *WebhookHandler) PayOSWebhook(c *gin.Context) {
	// 需要原始报文验签，不能先绑定结构体
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}

	if err := h.service.HandlePayOS(c.Request.Context(), body); err != nil {
		// 验签失败返回 4xx，网关不会重试；其他错误返回 5xx 由网关重试
		c.JSON(apperror.From(err).Status, gin.H{"success": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
