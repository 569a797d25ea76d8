package handler

import (
	"equip_shop/internal/domain/order/model"
	"equip_shop/internal/domain/order/service"
	"equip_shop/internal/pkg/middleware"
	"equip_shop/pkg/apperror"
	"equip_shop/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderHandler 下单与后台订单接口
type OrderHandler struct {
	checkout service.CheckoutService
	admin    service.AdminService
}

func NewOrderHandler(checkout service.CheckoutService, admin service.AdminService) *OrderHandler {
	return &OrderHandler{checkout: checkout, admin: admin}
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Address string `json:"address"`
}

type ItemRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CheckoutRequest 字段校验在 service 层完成
type CheckoutRequest struct {
	Customer      *CustomerRequest `json:"customer"`
	Items         []ItemRequest    `json:"items"`
	PaymentMethod string           `json:"paymentMethod"`
}

func (r CheckoutRequest) toInput() service.CheckoutInput {
	in := service.CheckoutInput{PaymentMethod: model.PaymentMethod(r.PaymentMethod)}
	if r.Customer != nil {
		in.Customer = &service.Customer{
			Name:    r.Customer.Name,
			Phone:   r.Customer.Phone,
			Email:   r.Customer.Email,
			Company: r.Customer.Company,
			Address: r.Customer.Address,
		}
	}
	for _, it := range r.Items {
		in.Items = append(in.Items, service.ItemInput{
			ProductID: it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return in
}

// Checkout 提交订单
// @Summary 提交订单
// @Tags Order
// @Accept json
// @Produce json
// @Param input body CheckoutRequest true "Cart"
// @Success 200 {object} response.Response{data=service.CheckoutResult}
// @Router /api/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.FromError(c, apperror.Wrap(apperror.ErrBadRequest, "invalid request body", err))
		return
	}

	res, err := h.checkout.Checkout(c.Request.Context(), req.toInput())
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, res)
}

// ListOrders 订单列表
// @Summary 订单列表
// @Tags Admin
// @Param status query string false "new|processing|shipped|completed|cancelled"
// @Param paymentStatus query string false "pending|paid|failed|cancelled"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Router /api/admin/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var input service.ListOrdersInput
	if err := c.ShouldBindQuery(&input); err != nil {
		response.FromError(c, apperror.Wrap(apperror.ErrBadRequest, "invalid query", err))
		return
	}

	res, err := h.admin.ListOrders(c.Request.Context(), middleware.CurrentSession(c), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, res)
}

// GetOrder 订单详情
// @Router /api/admin/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.admin.GetOrder(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, order)
}

// UpdateOrder 修改订单状态、备注和联系信息
// @Router /api/admin/orders/{id} [put]
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var input service.UpdateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.FromError(c, apperror.Wrap(apperror.ErrBadRequest, "invalid request body", err))
		return
	}

	order, err := h.admin.UpdateOrder(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"), input)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, order)
}

// RetryPaymentLink 重新生成支付链接
// @Router /api/admin/orders/{id}/payment-link [post]
func (h *OrderHandler) RetryPaymentLink(c *gin.Context) {
	order, err := h.admin.RetryPaymentLink(c.Request.Context(), middleware.CurrentSession(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, order)
}
