package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrInvalidSignature 回调签名校验失败
	ErrInvalidSignature = errors.New("gateway: invalid signature")
	// ErrMalformedPayload 回调报文无法解析
	ErrMalformedPayload = errors.New("gateway: malformed payload")
	// ErrUnavailable 熔断打开或网关不可达
	ErrUnavailable = errors.New("gateway: unavailable")
)

// Gateway 支付网关客户端
type Gateway interface {
	Name() string
	// CreatePaymentLink 申请托管支付页面，不做重试
	CreatePaymentLink(ctx context.Context, req PaymentRequest) (*PaymentLink, error)
	// VerifyWebhook 解析并校验回调报文
	VerifyWebhook(body []byte) (*WebhookEvent, error)
}

// Item 支付页面展示的商品行，价格为整数 VND
type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// PaymentRequest 创建支付链接参数
type PaymentRequest struct {
	OrderCode    int64
	Amount       int64
	Description  string
	Items        []Item
	ReturnURL    string
	CancelURL    string
	BuyerName    string
	BuyerEmail   string
	BuyerPhone   string
	BuyerAddress string
}

// PaymentLink 网关返回的支付链接
type PaymentLink struct {
	PaymentLinkID string `json:"paymentLinkId"`
	CheckoutURL   string `json:"checkoutUrl"`
	Status        string `json:"status"`
}

// WebhookEvent 校验通过的回调事件
type WebhookEvent struct {
	Code    string      `json:"code"`
	Desc    string      `json:"desc"`
	Success bool        `json:"success"`
	Data    WebhookData `json:"data"`
}

// Paid 顶层与 data 内的结果码均为 00 才视为支付成功
func (e *WebhookEvent) Paid() bool {
	return e.Code == SuccessCode && (e.Data.Code == "" || e.Data.Code == SuccessCode)
}

// WebhookData 回调 data 字段
type WebhookData struct {
	OrderCode           int64  `json:"orderCode"`
	Amount              int64  `json:"amount"`
	Description         string `json:"description"`
	AccountNumber       string `json:"accountNumber"`
	Reference           string `json:"reference"`
	TransactionDateTime string `json:"transactionDateTime"`
	Currency            string `json:"currency"`
	PaymentLinkID       string `json:"paymentLinkId"`
	Code                string `json:"code"`
	Desc                string `json:"desc"`
}

// SuccessCode PayOS 成功码
const SuccessCode = "00"

// UnmarshalJSON orderCode 与 amount 可能是数字也可能是数字字符串
func (d *WebhookData) UnmarshalJSON(b []byte) error {
	type plain WebhookData
	aux := struct {
		*plain
		OrderCode json.Number `json:"orderCode"`
		Amount    json.Number `json:"amount"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	var err error
	if d.OrderCode, err = parseInt(aux.OrderCode); err != nil {
		return fmt.Errorf("orderCode: %w", err)
	}
	if d.Amount, err = parseInt(aux.Amount); err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	return nil
}

func parseInt(n json.Number) (int64, error) {
	if n == "" {
		return 0, nil
	}
	return strconv.ParseInt(n.String(), 10, 64)
}
