package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/PalmTamino/Xboard/internal/utils"
	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func toOrderListItem(o models.Order) OrderListItem {
	return OrderListItem{
		ID:          o.ID,
		TradeNo:     o.TradeNo,
		UserID:      o.UserID,
		Amount:      o.TotalAmount,
		Status:      o.Status,
		OrderType:   o.OrderType,
		PaymentUUID: o.PaymentUUID,
		CallbackNo:  o.CallbackNo,
		Remark:      o.Remark,
		PaidAt:      o.PaidAt,
		CompletedBy: o.CompletedBy,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

// operatorFromContext 取当前操作人,拿不到时按系统身份处理
func operatorFromContext(c *gin.Context) (uint, string) {
	operator := "system"
	var operatorID uint
	if userVal, exists := c.Get("user"); exists {
		if u, ok := userVal.(models.User); ok {
			operator = u.Username
			operatorID = u.ID
		}
	}
	return operatorID, operator
}

// ListOrders 获取订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := services.OrderFilter{
		Page:  page,
		Limit: limit,
	}

	// 解析筛选参数
	if userIDStr, exists := c.GetQuery("user_id"); exists {
		userID, _ := strconv.Atoi(userIDStr)
		uid := uint(userID)
		filter.UserID = &uid
	}
	if status, exists := c.GetQuery("status"); exists {
		filter.Status = &status
	}
	if orderType, exists := c.GetQuery("order_type"); exists {
		filter.OrderType = &orderType
	}
	if startTimeStr, exists := c.GetQuery("start_time"); exists {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filter.StartTime = &startTime
		}
	}
	if endTimeStr, exists := c.GetQuery("end_time"); exists {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filter.EndTime = &endTime
		}
	}
	if minAmountStr, exists := c.GetQuery("min_amount"); exists {
		if minAmount, err := strconv.ParseInt(minAmountStr, 10, 64); err == nil {
			filter.MinAmount = &minAmount
		}
	}
	if maxAmountStr, exists := c.GetQuery("max_amount"); exists {
		if maxAmount, err := strconv.ParseInt(maxAmountStr, 10, 64); err == nil {
			filter.MaxAmount = &maxAmount
		}
	}

	orders, total, err := services.FindOrders(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	var items []OrderListItem
	for _, o := range orders {
		items = append(items, toOrderListItem(o))
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", OrderListResponse{
		Orders: items,
		Total:  total,
		Page:   page,
		Limit:  limit,
	}))
}

// GetOrder 获取订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	tradeNo := c.Param("trade_no")

	order, err := services.GetOrderByTradeNo(tradeNo)
	if err != nil {
		if err == services.ErrOrderNotFound {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Order not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	response := OrderDetailResponse{
		OrderListItem: toOrderListItem(*order),
	}
	if user, err := services.FindUserByID(order.UserID); err == nil {
		response.User = &UserBrief{
			ID:       user.ID,
			Username: user.Username,
			Balance:  user.Balance,
		}
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", response))
}

// CreateOrder 创建手动订单
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	order, err := services.CreateManualOrder(req.UserID, req.Amount, req.Remark)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Order created successfully", gin.H{
		"trade_no": order.TradeNo,
		"status":   order.Status,
	}))
}

// CompleteOrder 完成订单
func (h *Handler) CompleteOrder(c *gin.Context) {
	tradeNo := c.Param("trade_no")
	operatorID, operator := operatorFromContext(c)

	err := services.CompleteOrder(tradeNo, operatorID, operator)
	if err != nil {
		switch err {
		case services.ErrOrderNotFound:
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Order not found"))
		case services.ErrOrderAlreadyPaid:
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Order already paid"))
		case services.ErrOrderCancelled:
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Order has been cancelled"))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Order completed successfully", nil))
}

// CancelOrder 取消订单
func (h *Handler) CancelOrder(c *gin.Context) {
	tradeNo := c.Param("trade_no")

	err := services.CancelOrder(tradeNo)
	if err != nil {
		switch err {
		case services.ErrOrderNotFound:
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Order not found"))
		case services.ErrInvalidOrderStatus:
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Only pending orders can be cancelled"))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Order cancelled successfully", nil))
}
