package payment

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/PalmTamino/Xboard/internal/models"
	paymentdrv "github.com/PalmTamino/Xboard/internal/payment"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/PalmTamino/Xboard/internal/utils"
	"github.com/gin-gonic/gin"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// ListPaymentMethods 列出已注册的网关驱动名
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", paymentdrv.Methods()))
}

// ListPaymentChannels returns all payment channels, enabled or not
func (h *Handler) ListPaymentChannels(c *gin.Context) {
	channels, err := services.GetAllPaymentChannels()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	var response []PaymentChannelResponse
	for _, ch := range channels {
		var configMap map[string]interface{}
		_ = json.Unmarshal(ch.Config, &configMap)

		response = append(response, PaymentChannelResponse{
			ID:            ch.ID,
			UUID:          ch.UUID,
			Name:          ch.Name,
			PaymentMethod: ch.PaymentMethod,
			Config:        configMap,
			Enable:        ch.Enable,
			CreatedAt:     ch.CreatedAt.Format(time.RFC3339),
			UpdatedAt:     ch.UpdatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", response))
}

// CreatePaymentChannel creates a new payment channel
func (h *Handler) CreatePaymentChannel(c *gin.Context) {
	var req CreatePaymentChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	channel, err := services.CreatePaymentChannel(req.Name, req.PaymentMethod, req.Config, req.Enable)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", gin.H{"id": channel.ID, "uuid": channel.UUID}))
}

// UpdatePaymentChannel updates an existing payment channel
func (h *Handler) UpdatePaymentChannel(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid ID"))
		return
	}

	var req UpdatePaymentChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	_, err = services.UpdatePaymentChannel(uint(id), req.Name, req.Config, req.Enable)
	if err != nil {
		if err == services.ErrPaymentChannelNotFound {
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Payment channel not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", nil))
}

// DeletePaymentChannel deletes a payment channel
func (h *Handler) DeletePaymentChannel(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid ID"))
		return
	}

	if err := services.DeletePaymentChannel(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", nil))
}

// ListCallbacks 查询网关回调处理日志
func (h *Handler) ListCallbacks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := services.CallbackFilter{
		Page:  page,
		Limit: limit,
	}

	if uuidStr, exists := c.GetQuery("payment_uuid"); exists {
		filter.PaymentUUID = &uuidStr
	}
	if statusStr, exists := c.GetQuery("status"); exists {
		status := models.CallbackStatus(statusStr)
		filter.Status = &status
	}
	if tradeNo, exists := c.GetQuery("trade_no"); exists {
		filter.TradeNo = &tradeNo
	}

	logs, total, err := services.FindPaymentCallbacks(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	var items []CallbackLogItem
	for _, entry := range logs {
		var params map[string]string
		_ = json.Unmarshal(entry.Params, &params)

		items = append(items, CallbackLogItem{
			ID:            entry.ID,
			PaymentUUID:   entry.PaymentUUID,
			PaymentMethod: entry.PaymentMethod,
			TradeNo:       entry.TradeNo,
			Params:        params,
			Status:        string(entry.Status),
			Detail:        entry.Detail,
			CreatedAt:     entry.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", CallbackLogResponse{
		Callbacks: items,
		Total:     total,
		Page:      page,
		Limit:     limit,
	}))
}
