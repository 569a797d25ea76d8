package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	baseModel "equip_shop/pkg/model"

	"github.com/shopspring/decimal"
)

func init() {
	// 金额在 JSON 中以数字输出
	decimal.MarshalJSONWithoutQuotes = true
}

// Order 订单模型
type Order struct {
	baseModel.BaseModel
	OrderCode          string            `gorm:"type:varchar(20);uniqueIndex;not null" json:"orderCode"` // 网关对账用，创建后不可变
	CustomerName       string            `gorm:"type:varchar(255);not null" json:"customerName"`
	CustomerPhone      string            `gorm:"type:varchar(50);not null" json:"customerPhone"`
	CustomerEmail      string            `gorm:"type:varchar(255);not null" json:"customerEmail"`
	CustomerCompany    string            `gorm:"type:varchar(255)" json:"customerCompany"`
	DeliveryAddress    string            `gorm:"type:text;not null" json:"deliveryAddress"`
	Items              OrderItems        `gorm:"type:jsonb;not null" json:"items"`
	ShippingFee        decimal.Decimal   `gorm:"type:numeric(15,2);not null" json:"shippingFee"`
	TotalAmount        decimal.Decimal   `gorm:"type:numeric(15,2);not null" json:"totalAmount"`
	PaymentMethod      PaymentMethod     `gorm:"type:varchar(20);not null" json:"paymentMethod"`
	PaymentStatus      PaymentStatus     `gorm:"type:varchar(20);not null;index" json:"paymentStatus"`
	Status             OrderStatus       `gorm:"type:varchar(20);not null;index" json:"status"`
	ExternalPaymentRef *string           `gorm:"type:varchar(100)" json:"externalPaymentRef"`
	CheckoutURL        *string           `gorm:"type:text" json:"checkoutUrl"`
	PaymentLinkStatus  PaymentLinkStatus `gorm:"type:varchar(20);not null" json:"paymentLinkStatus"`
	PaymentLinkError   string            `gorm:"type:text" json:"paymentLinkError,omitempty"`
	PaidAt             *time.Time        `json:"paidAt,omitempty"`
	Notes              string            `gorm:"type:text" json:"notes"`
}

func (Order) TableName() string {
	return "orders"
}

// GatewayCode 网关要求数字订单号
func (o *Order) GatewayCode() (int64, error) {
	return strconv.ParseInt(o.OrderCode, 10, 64)
}

// OrderItem 下单时的商品快照
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// LineTotal 单价 × 数量
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderItems 以 jsonb 存储
type OrderItems []OrderItem

// Subtotal 商品合计，不含运费
func (items OrderItems) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*items = OrderItems{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("order items: unsupported scan type")
	}
	return json.Unmarshal(raw, items)
}
