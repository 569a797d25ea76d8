package model

// PaymentMethod 支付方式
type PaymentMethod string

const (
	PaymentMethodPayOS        PaymentMethod = "PayOS"
	PaymentMethodCOD          PaymentMethod = "COD"
	PaymentMethodBankTransfer PaymentMethod = "BankTransfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodPayOS, PaymentMethodCOD, PaymentMethodBankTransfer:
		return true
	}
	return false
}

// RequiresGateway 是否需要向网关申请支付链接
func (m PaymentMethod) RequiresGateway() bool {
	return m == PaymentMethodPayOS
}

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// OrderStatus 履约状态，与支付状态相互独立
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentLinkStatus 下单后申请支付链接这一步的结果
type PaymentLinkStatus string

const (
	PaymentLinkNotRequired PaymentLinkStatus = "not_required"
	PaymentLinkAwaiting    PaymentLinkStatus = "awaiting"
	PaymentLinkCreated     PaymentLinkStatus = "created"
	PaymentLinkFailed      PaymentLinkStatus = "failed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusNew, OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// 后台人工修改的支付状态流转，paid 只能由回调写入且不可回退
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusFailed:    {PaymentStatusPending, PaymentStatusPaid, PaymentStatusCancelled},
	PaymentStatusPaid:      {},
	PaymentStatusCancelled: {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo 相同状态视为无变化
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	_, ok := paymentTransitions[s]
	return ok
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
