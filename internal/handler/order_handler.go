package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"merchant-order-api/internal/constant"
	"merchant-order-api/internal/dto"
	"merchant-order-api/internal/middleware"
	"merchant-order-api/internal/signature"
	"merchant-order-api/internal/utils"
)

// OrderService 订单业务，*service.OrderService 实现
type OrderService interface {
	Submit(ctx context.Context, p *signature.Payload) (*dto.OrderVO, error)
	Fetch(ctx context.Context, id uint64, p *signature.Payload) (*dto.OrderVO, error)
	Complete(ctx context.Context, id uint64, p *signature.Payload) (*dto.OrderVO, error)
	Remove(ctx context.Context, id uint64, p *signature.Payload) error
}

type OrderHandler struct{ svc OrderService }

func NewOrderHandler(svc OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Submit POST /orders
func (h *OrderHandler) Submit(c *gin.Context) {
	vo, err := h.svc.Submit(c.Request.Context(), middleware.PayloadFrom(c))
	h.respond(c, vo, err)
}

// Fetch GET /orders/:id
func (h *OrderHandler) Fetch(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	vo, err := h.svc.Fetch(c.Request.Context(), id, middleware.PayloadFrom(c))
	h.respond(c, vo, err)
}

// Complete POST /orders/:id/complete
func (h *OrderHandler) Complete(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	vo, err := h.svc.Complete(c.Request.Context(), id, middleware.PayloadFrom(c))
	h.respond(c, vo, err)
}

// Remove DELETE /orders/:id
func (h *OrderHandler) Remove(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	err := h.svc.Remove(c.Request.Context(), id, middleware.PayloadFrom(c))
	h.respond(c, nil, err)
}

func (h *OrderHandler) respond(c *gin.Context, vo *dto.OrderVO, err error) {
	if err != nil {
		if constant.CodeOf(err) == constant.CodeInternal {
			_ = c.Error(err)
		}
		utils.Write(c, utils.Error(err))
		return
	}
	if vo == nil {
		utils.Write(c, utils.Success(nil))
		return
	}
	utils.Write(c, utils.Success(vo))
}

// orderID 路径参数非法按订单不存在处理
func orderID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.Fail(c, constant.NewNotFound(constant.MsgOrderNotFound))
		return 0, false
	}
	return id, true
}
