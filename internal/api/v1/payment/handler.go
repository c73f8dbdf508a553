package payment

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/PalmTamino/Xboard/config"
	"github.com/PalmTamino/Xboard/internal/models"
	paymentdrv "github.com/PalmTamino/Xboard/internal/payment"
	"github.com/PalmTamino/Xboard/internal/services"
	"github.com/PalmTamino/Xboard/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// GetPaymentMethods returns a list of available payment methods
func (h *Handler) GetPaymentMethods(c *gin.Context) {
	methods, err := services.GetPaymentMethods()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	var response []PaymentMethodResponse
	for _, m := range methods {
		response = append(response, PaymentMethodResponse{
			UUID: m.UUID,
			Type: m.PaymentMethod,
			Name: m.Name,
		})
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", response))
}

// CreatePayment 创建充值订单并返回网关跳转链接
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, err.Error()))
		return
	}

	userRaw, exists := c.Get("user")
	if !exists {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}
	user, ok := userRaw.(models.User)
	if !ok {
		c.JSON(http.StatusUnauthorized, utils.NewErrorResponse(http.StatusUnauthorized, "Unauthorized"))
		return
	}

	order, err := services.CreateOrder(services.CreateOrderRequest{
		UserID:      user.ID,
		AmountMinor: req.Amount,
		OrderType:   models.OrderTypeTopup,
		PaymentUUID: req.PaymentMethodUUID,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		return
	}

	notifyBaseURL := notifyBase(c)

	jumpURL, err := services.GetPaymentJumpURL(order.TradeNo, req.PaymentMethodUUID, req.PaymentChannel, notifyBaseURL, req.ReturnURL)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentChannelNotFound):
			c.JSON(http.StatusNotFound, utils.NewErrorResponse(http.StatusNotFound, "Payment channel not found"))
		case errors.Is(err, services.ErrPaymentChannelDisabled):
			c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Payment method is disabled"))
		default:
			c.JSON(http.StatusInternalServerError, utils.NewErrorResponse(http.StatusInternalServerError, err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("success", CreatePaymentResponse{
		JumpURL: jumpURL,
		TradeNo: order.TradeNo,
	}))
}

// notifyBase 计算网关回调地址的前缀
//
// Behind a TLS-terminating proxy the request reports plain http, so a
// configured APP_URL wins over whatever the request says.
func notifyBase(c *gin.Context) string {
	if cfg, err := config.LoadConfig(); err == nil && cfg.AppURL != "" {
		return strings.TrimRight(cfg.AppURL, "/") + "/api/v1/payment/notify"
	}

	scheme := "http"
	if c.Request.TLS != nil || c.Request.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/api/v1/payment/notify"
}

// Notify 支付网关异步回调入口
//
// Acknowledgement contract: a handled notification answers 200 with the
// driver's expected body; failures answer a structured JSON envelope that
// never carries internal error text. A delivery for an already settled
// order is acknowledged as success so gateways stop retrying.
func (h *Handler) Notify(c *gin.Context) {
	method := c.Param("method")
	channelUUID := c.Param("uuid")

	req, params, err := collectNotifyRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.NewGatewayFail("bad request"))
		return
	}

	result, channel, err := services.VerifyPaymentNotify(method, channelUUID, req)
	logUUID := channelUUID
	if channel != nil {
		logUUID = channel.UUID
	}
	if err != nil {
		zap.L().Warn("支付回调验签失败",
			zap.String("payment_method", method),
			zap.String("payment_uuid", channelUUID),
			zap.Error(err))
		services.RecordPaymentCallback(logUUID, method, "", params, models.CallbackStatusFailed, "verify error")
		c.JSON(http.StatusUnprocessableEntity, utils.NewGatewayFail("verify error"))
		return
	}

	outcome, err := services.ReconcilePayment(result.TradeNo, result.CallbackNo)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			zap.L().Warn("支付回调对应订单不存在",
				zap.String("payment_method", method),
				zap.String("trade_no", result.TradeNo))
			services.RecordPaymentCallback(logUUID, method, result.TradeNo, params, models.CallbackStatusFailed, "order not found")
			c.JSON(http.StatusBadRequest, utils.NewGatewayFail("order not found"))
			return
		}
		zap.L().Error("支付回调处理失败",
			zap.String("payment_method", method),
			zap.String("trade_no", result.TradeNo),
			zap.Error(err))
		services.RecordPaymentCallback(logUUID, method, result.TradeNo, params, models.CallbackStatusFailed, "handle error")
		c.JSON(http.StatusInternalServerError, utils.NewGatewayFail("handle error"))
		return
	}

	status := models.CallbackStatusHandled
	detail := "order marked paid"
	if outcome == services.ReconcileAlreadyHandled {
		status = models.CallbackStatusDuplicate
		detail = "order already settled"
	}
	services.RecordPaymentCallback(logUUID, method, result.TradeNo, params, status, detail)

	if result.CustomResult != "" {
		c.String(http.StatusOK, result.CustomResult)
		return
	}
	c.String(http.StatusOK, "success")
}

// collectNotifyRequest 汇总回调请求的参数、原始报文和头部
//
// Query and body parameters merge into one flat map; JSON bodies only
// contribute their top level scalars. Header names are lowercased so
// drivers can look them up without caring about the gateway's casing.
func collectNotifyRequest(c *gin.Context) (*paymentdrv.NotifyRequest, map[string]string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	params := make(map[string]string)
	for k, v := range c.Request.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	if strings.Contains(c.ContentType(), "json") {
		var decoded map[string]interface{}
		if len(body) > 0 && json.Unmarshal(body, &decoded) == nil {
			for k, v := range decoded {
				switch val := v.(type) {
				case string:
					params[k] = val
				case float64:
					params[k] = strconv.FormatFloat(val, 'f', -1, 64)
				case bool:
					params[k] = strconv.FormatBool(val)
				}
			}
		}
	} else if c.Request.Method == http.MethodPost {
		c.Request.ParseForm()
		for k, v := range c.Request.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}

	headers := make(map[string]string)
	for k, v := range c.Request.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	return &paymentdrv.NotifyRequest{
		Params:  params,
		Body:    body,
		Headers: headers,
	}, params, nil
}
