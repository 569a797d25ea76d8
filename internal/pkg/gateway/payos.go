package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"equip_shop/internal/pkg/config"
	"equip_shop/pkg/metrics"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	payOSName         = "payos"
	paymentRequestsV2 = "/v2/payment-requests"
	// PayOS 对 description 的长度限制
	maxDescriptionLen = 25
)

// PayOS PayOS 商户接口客户端
type PayOS struct {
	client      *resty.Client
	breaker     *gobreaker.CircuitBreaker
	checksumKey string
	metrics     *metrics.MetricsCollector
	log         *zap.Logger
}

type createPaymentBody struct {
	OrderCode    int64  `json:"orderCode"`
	Amount       int64  `json:"amount"`
	Description  string `json:"description"`
	BuyerName    string `json:"buyerName,omitempty"`
	BuyerEmail   string `json:"buyerEmail,omitempty"`
	BuyerPhone   string `json:"buyerPhone,omitempty"`
	BuyerAddress string `json:"buyerAddress,omitempty"`
	Items        []Item `json:"items"`
	CancelURL    string `json:"cancelUrl"`
	ReturnURL    string `json:"returnUrl"`
	Signature    string `json:"signature"`
}

type createPaymentResponse struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
	Data *struct {
		PaymentLinkID string `json:"paymentLinkId"`
		CheckoutURL   string `json:"checkoutUrl"`
		Status        string `json:"status"`
		OrderCode     int64  `json:"orderCode"`
		Amount        int64  `json:"amount"`
	} `json:"data"`
	Signature string `json:"signature"`

	status int
}

type webhookEnvelope struct {
	Code      string          `json:"code"`
	Desc      string          `json:"desc"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// NewPayOS 创建 PayOS 客户端，collector 可为 nil
func NewPayOS(cfg config.PayOSConfig, breaker BreakerSettings, collector *metrics.MetricsCollector, log *zap.Logger) *PayOS {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("x-client-id", cfg.ClientID).
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &PayOS{
		client:      client,
		breaker:     newBreaker(payOSName, breaker, collector, log),
		checksumKey: cfg.ChecksumKey,
		metrics:     collector,
		log:         log,
	}
}

func (p *PayOS) Name() string {
	return payOSName
}

// CreatePaymentLink 创建支付链接
func (p *PayOS) CreatePaymentLink(ctx context.Context, req PaymentRequest) (*PaymentLink, error) {
	req.Description = truncate(req.Description, maxDescriptionLen)
	body := createPaymentBody{
		OrderCode:    req.OrderCode,
		Amount:       req.Amount,
		Description:  req.Description,
		BuyerName:    req.BuyerName,
		BuyerEmail:   req.BuyerEmail,
		BuyerPhone:   req.BuyerPhone,
		BuyerAddress: req.BuyerAddress,
		Items:        req.Items,
		CancelURL:    req.CancelURL,
		ReturnURL:    req.ReturnURL,
		Signature:    SignPaymentRequest(p.checksumKey, req),
	}
	if body.Items == nil {
		body.Items = []Item{}
	}

	start := time.Now()
	// 只有网络错误和 5xx 计入熔断，业务拒绝不计入
	result, err := p.breaker.Execute(func() (interface{}, error) {
		var out createPaymentResponse
		resp, err := p.client.R().
			SetContext(ctx).
			SetBody(body).
			ForceContentType("application/json").
			SetResult(&out).
			SetError(&out).
			Post(paymentRequestsV2)
		if err != nil {
			return nil, fmt.Errorf("payos request: %w", err)
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, fmt.Errorf("payos http %d: %s", resp.StatusCode(), resp.String())
		}
		out.status = resp.StatusCode()
		return &out, nil
	})
	if p.metrics != nil {
		p.metrics.ObserveGatewayRequest(payOSName, "create_payment_link", time.Since(start))
	}
	if err != nil {
		return nil, breakerError(err)
	}

	out := result.(*createPaymentResponse)
	if out.Code != SuccessCode || out.Data == nil {
		return nil, fmt.Errorf("payos rejected order %d: http=%d code=%s desc=%s", req.OrderCode, out.status, out.Code, out.Desc)
	}
	if out.Data.CheckoutURL == "" {
		return nil, errors.New("payos returned an empty checkout url")
	}

	return &PaymentLink{
		PaymentLinkID: out.Data.PaymentLinkID,
		CheckoutURL:   out.Data.CheckoutURL,
		Status:        out.Data.Status,
	}, nil
}

// VerifyWebhook 校验回调签名，签名不符时不返回任何数据
func (p *PayOS) VerifyWebhook(body []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if len(env.Data) == 0 || env.Signature == "" {
		return nil, ErrInvalidSignature
	}

	fields, err := decodeData(env.Data)
	if err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	if !VerifyData(p.checksumKey, fields, env.Signature) {
		return nil, ErrInvalidSignature
	}

	event := &WebhookEvent{Code: env.Code, Desc: env.Desc, Success: env.Success}
	if err := json.Unmarshal(env.Data, &event.Data); err != nil {
		return nil, errors.Join(ErrMalformedPayload, err)
	}
	return event, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
