package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	// 网关驱动通过 init 自注册
	_ "github.com/PalmTamino/Xboard/internal/payment/coinpay"
	_ "github.com/PalmTamino/Xboard/internal/payment/epay"
	_ "github.com/PalmTamino/Xboard/internal/payment/mgate"
)

var (
	ErrPaymentChannelNotFound = errors.New("payment channel not found")
	ErrPaymentChannelDisabled = errors.New("payment method is disabled")
)

// GetPaymentMethods 获取所有启用的支付渠道
func GetPaymentMethods() ([]models.Payment, error) {
	var channels []models.Payment
	if err := database.DB.Where("enable = ?", true).Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// GetAllPaymentChannels 获取全部支付渠道（含停用）
func GetAllPaymentChannels() ([]models.Payment, error) {
	var channels []models.Payment
	if err := database.DB.Find(&channels).Error; err != nil {
		return nil, err
	}
	return channels, nil
}

// CreatePaymentChannel 创建支付渠道
func CreatePaymentChannel(name string, method string, config map[string]interface{}, enable bool) (*models.Payment, error) {
	// 渠道必须对应一个已注册的网关驱动
	if _, err := payment.New(method); err != nil {
		return nil, err
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	channel := &models.Payment{
		UUID:          uuid.New().String(),
		Name:          name,
		PaymentMethod: method,
		Config:        datatypes.JSON(configJSON),
		Enable:        enable,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := database.DB.Create(channel).Error; err != nil {
		return nil, err
	}
	return channel, nil
}

// UpdatePaymentChannel 更新支付渠道
func UpdatePaymentChannel(id uint, name string, config map[string]interface{}, enable *bool) (*models.Payment, error) {
	var channel models.Payment
	if err := database.DB.First(&channel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentChannelNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if config != nil {
		configJSON, err := json.Marshal(config)
		if err != nil {
			return nil, err
		}
		updates["config"] = datatypes.JSON(configJSON)
	}
	if enable != nil {
		updates["enable"] = *enable
	}
	updates["updated_at"] = time.Now()

	if err := database.DB.Model(&channel).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &channel, nil
}

// DeletePaymentChannel 删除支付渠道
func DeletePaymentChannel(id uint) error {
	return database.DB.Delete(&models.Payment{}, id).Error
}

// resolvePaymentChannel 定位回调对应的支付渠道
//
// A correlation id in the notify URL pins the exact channel; without one
// the first enabled channel of the method takes the callback, which keeps
// URLs configured before per-channel ids were introduced working.
func resolvePaymentChannel(method, channelUUID string) (*models.Payment, error) {
	var channel models.Payment
	var err error
	if channelUUID != "" {
		err = database.DB.Where("uuid = ?", channelUUID).First(&channel).Error
	} else {
		err = database.DB.Where("payment_method = ? AND enable = ?", method, true).
			Order("id").First(&channel).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentChannelNotFound
		}
		return nil, err
	}

	if channel.PaymentMethod != method {
		return nil, ErrPaymentChannelNotFound
	}
	if !channel.Enable {
		return nil, ErrPaymentChannelDisabled
	}
	return &channel, nil
}

// newPaymentDriver 按渠道配置实例化网关驱动
func newPaymentDriver(channel *models.Payment) (payment.Driver, error) {
	driver, err := payment.New(channel.PaymentMethod)
	if err != nil {
		return nil, err
	}

	var configMap map[string]interface{}
	if err := json.Unmarshal(channel.Config, &configMap); err != nil {
		return nil, fmt.Errorf("invalid channel config: %w", err)
	}
	if err := driver.SetConfig(configMap); err != nil {
		return nil, err
	}
	return driver, nil
}

// VerifyPaymentNotify 验签支付回调并解析出订单信息
//
// Verification only reads: no order is touched here, whatever the gateway
// sent. The resolved channel comes back alongside the result so callers
// can log against it even when the URL carried no correlation id.
func VerifyPaymentNotify(method, channelUUID string, req *payment.NotifyRequest) (*payment.NotifyResult, *models.Payment, error) {
	channel, err := resolvePaymentChannel(method, channelUUID)
	if err != nil {
		return nil, nil, err
	}

	driver, err := newPaymentDriver(channel)
	if err != nil {
		return nil, channel, err
	}

	result, err := driver.Notify(req)
	if err != nil {
		return nil, channel, err
	}
	return result, channel, nil
}

// GetPaymentJumpURL 生成支付跳转链接
func GetPaymentJumpURL(tradeNo, channelUUID, payChannel, notifyBaseURL, returnURL string) (string, error) {
	var channel models.Payment
	if err := database.DB.Where("uuid = ?", channelUUID).First(&channel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrPaymentChannelNotFound
		}
		return "", err
	}
	if !channel.Enable {
		return "", ErrPaymentChannelDisabled
	}

	driver, err := newPaymentDriver(&channel)
	if err != nil {
		return "", err
	}

	order, err := GetOrderByTradeNo(tradeNo)
	if err != nil {
		return "", err
	}
	if order.Status != models.OrderStatusPending {
		return "", ErrInvalidOrderStatus
	}

	// 回调地址带上渠道 UUID
	fullNotifyURL := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(notifyBaseURL, "/"), channel.PaymentMethod, channel.UUID)

	return driver.Pay(&payment.PayRequest{
		TradeNo:     order.TradeNo,
		AmountMinor: order.TotalAmount,
		NotifyURL:   fullNotifyURL,
		ReturnURL:   returnURL,
		Channel:     payChannel,
	})
}

// CallbackFilter 回调日志查询过滤条件
type CallbackFilter struct {
	PaymentUUID *string
	Status      *models.CallbackStatus
	TradeNo     *string
	Page        int
	Limit       int
}

// RecordPaymentCallback 落一条回调处理日志,失败只记 warning 不影响主流程
func RecordPaymentCallback(channelUUID, method, tradeNo string, params map[string]string, status models.CallbackStatus, detail string) {
	data, err := json.Marshal(params)
	if err != nil {
		data = []byte("{}")
	}

	entry := models.PaymentCallbackLog{
		PaymentUUID:   channelUUID,
		PaymentMethod: method,
		TradeNo:       tradeNo,
		Params:        datatypes.JSON(data),
		Status:        status,
		Detail:        detail,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		zap.L().Warn("回调日志写入失败",
			zap.String("payment_method", method),
			zap.String("trade_no", tradeNo),
			zap.Error(err))
	}
}

// FindPaymentCallbacks 查询回调处理日志
func FindPaymentCallbacks(filter CallbackFilter) ([]models.PaymentCallbackLog, int64, error) {
	var logs []models.PaymentCallbackLog
	var total int64

	query := database.DB.Model(&models.PaymentCallbackLog{})

	if filter.PaymentUUID != nil {
		query = query.Where("payment_uuid = ?", *filter.PaymentUUID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.TradeNo != nil {
		query = query.Where("trade_no = ?", *filter.TradeNo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("created_at desc").Limit(filter.Limit).Offset(offset).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
