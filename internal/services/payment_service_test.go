package services

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/PalmTamino/Xboard/internal/database"
	"github.com/PalmTamino/Xboard/internal/models"
	"github.com/PalmTamino/Xboard/internal/payment"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPaymentChannelTestDB() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}

	db.Migrator().DropTable(&models.User{}, &models.Order{}, &models.Payment{}, &models.Transaction{}, &models.PaymentCallbackLog{})
	db.AutoMigrate(&models.User{}, &models.Order{}, &models.Payment{}, &models.Transaction{}, &models.PaymentCallbackLog{})

	database.DB = db
}

func setupPaymentChannelTestRedis() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	database.RedisClient = redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	return mr
}

// epaySign mirrors the epay signing rule for building test callbacks.
func epaySign(params map[string]string, key string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if params[k] == "" || k == "sign" || k == "sign_type" {
			continue
		}
		parts = append(parts, k+"="+params[k])
	}
	hash := md5.Sum([]byte(strings.Join(parts, "&") + key))
	return hex.EncodeToString(hash[:])
}

func seedEpayChannel(uuid, name string, enable bool) models.Payment {
	channel := models.Payment{
		UUID:          uuid,
		Name:          name,
		PaymentMethod: "epay",
		Config:        datatypes.JSON([]byte(`{"url":"https://epay.example.com","pid":"1001","key":"secret"}`)),
		Enable:        enable,
	}
	database.DB.Create(&channel)
	return channel
}

func TestPaymentChannelCRUD(t *testing.T) {
	setupPaymentChannelTestDB()
	mr := setupPaymentChannelTestRedis()
	defer mr.Close()

	// Case 1: create a channel for a registered gateway
	channel, err := CreatePaymentChannel("Alipay via EPay", "epay",
		map[string]interface{}{"url": "https://epay.example.com", "pid": "1001", "key": "secret"}, true)
	assert.NoError(t, err)
	assert.NotEmpty(t, channel.UUID)
	assert.Equal(t, "epay", channel.PaymentMethod)

	var configMap map[string]interface{}
	assert.NoError(t, json.Unmarshal(channel.Config, &configMap))
	assert.Equal(t, "1001", configMap["pid"])

	// Case 2: unknown gateways are rejected up front
	_, err = CreatePaymentChannel("PayPal", "paypal", map[string]interface{}{}, true)
	assert.EqualError(t, err, "unsupported payment method: paypal")

	// Case 3: only enabled channels are offered for checkout
	_, err = CreatePaymentChannel("Disabled CoinPay", "coinpay",
		map[string]interface{}{"merchant_id": "m", "ipn_secret": "s"}, false)
	assert.NoError(t, err)

	enabled, err := GetPaymentMethods()
	assert.NoError(t, err)
	assert.Len(t, enabled, 1)
	assert.Equal(t, "Alipay via EPay", enabled[0].Name)

	all, err := GetAllPaymentChannels()
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	// Case 4: update name and flip enable
	enable := false
	updated, err := UpdatePaymentChannel(channel.ID, "EPay Primary", nil, &enable)
	assert.NoError(t, err)
	assert.Equal(t, channel.UUID, updated.UUID)

	enabled, _ = GetPaymentMethods()
	assert.Empty(t, enabled)

	_, err = UpdatePaymentChannel(9999, "nope", nil, nil)
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)

	// Case 5: delete
	assert.NoError(t, DeletePaymentChannel(channel.ID))
	all, _ = GetAllPaymentChannels()
	assert.Len(t, all, 1)
}

func TestResolvePaymentChannel(t *testing.T) {
	setupPaymentChannelTestDB()
	mr := setupPaymentChannelTestRedis()
	defer mr.Close()

	disabled := seedEpayChannel("chan-epay-off", "EPay Old", false)
	primary := seedEpayChannel("chan-epay-1", "EPay Primary", true)

	mgateChannel := models.Payment{
		UUID:          "chan-mgate-1",
		Name:          "MGate",
		PaymentMethod: "mgate",
		Config:        datatypes.JSON([]byte(`{"url":"https://mgate.example.com","app_id":"a","secret":"s"}`)),
		Enable:        true,
	}
	database.DB.Create(&mgateChannel)

	// Case 1: correlation id pins the exact channel
	channel, err := resolvePaymentChannel("epay", "chan-epay-1")
	assert.NoError(t, err)
	assert.Equal(t, primary.ID, channel.ID)

	// Case 2: without an id the first enabled channel of the method answers
	channel, err = resolvePaymentChannel("epay", "")
	assert.NoError(t, err)
	assert.Equal(t, primary.ID, channel.ID)

	// Case 3: disabled channel
	_, err = resolvePaymentChannel("epay", disabled.UUID)
	assert.ErrorIs(t, err, ErrPaymentChannelDisabled)

	// Case 4: unknown id
	_, err = resolvePaymentChannel("epay", "no-such-uuid")
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)

	// Case 5: a channel id cannot be used under another method
	_, err = resolvePaymentChannel("epay", "chan-mgate-1")
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)

	// Case 6: method with no enabled channel
	_, err = resolvePaymentChannel("coinpay", "")
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)
}

func TestVerifyPaymentNotify(t *testing.T) {
	setupPaymentChannelTestDB()
	mr := setupPaymentChannelTestRedis()
	defer mr.Close()

	seedEpayChannel("chan-epay-1", "EPay Primary", true)

	user := models.User{Username: "verify_user", Password: "x", Role: "user", Balance: 0, Version: 1}
	database.DB.Create(&user)

	order := models.Order{
		TradeNo:     "TRADE-001",
		UserID:      user.ID,
		TotalAmount: 1999,
		Status:      models.OrderStatusPending,
		OrderType:   models.OrderTypeTopup,
		PaymentUUID: "chan-epay-1",
	}
	database.DB.Create(&order)

	signedParams := func() map[string]string {
		p := map[string]string{
			"pid":          "1001",
			"trade_no":     "EX-1",
			"out_trade_no": "TRADE-001",
			"money":        "19.99",
			"trade_status": "TRADE_SUCCESS",
		}
		p["sign"] = epaySign(p, "secret")
		return p
	}

	// Case 1: valid callback verifies and identifies the order
	result, channel, err := VerifyPaymentNotify("epay", "chan-epay-1", &payment.NotifyRequest{Params: signedParams()})
	assert.NoError(t, err)
	assert.Equal(t, "TRADE-001", result.TradeNo)
	assert.Equal(t, "EX-1", result.CallbackNo)
	assert.Equal(t, "chan-epay-1", channel.UUID)

	// Verification never touches the order
	var checkOrder models.Order
	database.DB.First(&checkOrder, "trade_no = ?", "TRADE-001")
	assert.Equal(t, models.OrderStatusPending, checkOrder.Status)

	// Case 2: tampered callback fails and still mutates nothing
	tampered := signedParams()
	tampered["money"] = "0.01"
	result, channel, err = VerifyPaymentNotify("epay", "chan-epay-1", &payment.NotifyRequest{Params: tampered})
	assert.Error(t, err)
	assert.Nil(t, result)
	assert.NotNil(t, channel) // resolved channel still reported for logging

	database.DB.First(&checkOrder, "trade_no = ?", "TRADE-001")
	assert.Equal(t, models.OrderStatusPending, checkOrder.Status)

	var updatedUser models.User
	database.DB.First(&updatedUser, user.ID)
	assert.Equal(t, int64(0), updatedUser.Balance)

	var transCount int64
	database.DB.Model(&models.Transaction{}).Count(&transCount)
	assert.Equal(t, int64(0), transCount)

	// Case 3: unknown channel
	_, _, err = VerifyPaymentNotify("epay", "no-such-uuid", &payment.NotifyRequest{Params: signedParams()})
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)

	// Case 4: channel with broken stored config
	broken := models.Payment{
		UUID:          "chan-broken",
		Name:          "Broken",
		PaymentMethod: "epay",
		Config:        datatypes.JSON([]byte(`not-json`)),
		Enable:        true,
	}
	database.DB.Create(&broken)

	_, _, err = VerifyPaymentNotify("epay", "chan-broken", &payment.NotifyRequest{Params: signedParams()})
	assert.ErrorContains(t, err, "invalid channel config")
}

func TestGetPaymentJumpURL(t *testing.T) {
	setupPaymentChannelTestDB()
	mr := setupPaymentChannelTestRedis()
	defer mr.Close()

	seedEpayChannel("chan-epay-1", "EPay Primary", true)
	seedEpayChannel("chan-epay-off", "EPay Old", false)

	user := models.User{Username: "jump_user", Password: "x", Role: "user", Version: 1}
	database.DB.Create(&user)

	order := models.Order{
		TradeNo:     "TRADE-001",
		UserID:      user.ID,
		TotalAmount: 1999,
		Status:      models.OrderStatusPending,
		OrderType:   models.OrderTypeTopup,
		PaymentUUID: "chan-epay-1",
	}
	database.DB.Create(&order)

	// Case 1: jump URL for a pending order
	jumpURL, err := GetPaymentJumpURL("TRADE-001", "chan-epay-1", "alipay",
		"https://panel.example.com/api/v1/payment/notify", "https://panel.example.com/topup")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(jumpURL, "https://epay.example.com/submit.php?"))

	parsed, err := url.Parse(jumpURL)
	assert.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "TRADE-001", q.Get("out_trade_no"))
	assert.Equal(t, "19.99", q.Get("money"))
	// 回调地址带渠道 UUID,回调能定位到同一渠道
	assert.Equal(t, "https://panel.example.com/api/v1/payment/notify/epay/chan-epay-1", q.Get("notify_url"))

	// Case 2: disabled channel
	_, err = GetPaymentJumpURL("TRADE-001", "chan-epay-off", "", "https://panel.example.com/api/v1/payment/notify", "https://panel.example.com/topup")
	assert.ErrorIs(t, err, ErrPaymentChannelDisabled)

	// Case 3: unknown channel
	_, err = GetPaymentJumpURL("TRADE-001", "no-such-uuid", "", "https://panel.example.com/api/v1/payment/notify", "https://panel.example.com/topup")
	assert.ErrorIs(t, err, ErrPaymentChannelNotFound)

	// Case 4: settled orders cannot start a new payment
	database.DB.Model(&models.Order{}).Where("trade_no = ?", "TRADE-001").Update("status", models.OrderStatusPaid)
	_, err = GetPaymentJumpURL("TRADE-001", "chan-epay-1", "", "https://panel.example.com/api/v1/payment/notify", "https://panel.example.com/topup")
	assert.ErrorIs(t, err, ErrInvalidOrderStatus)

	// Case 5: unknown order
	_, err = GetPaymentJumpURL("UNKNOWN-999", "chan-epay-1", "", "https://panel.example.com/api/v1/payment/notify", "https://panel.example.com/topup")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestPaymentCallbackLog(t *testing.T) {
	setupPaymentChannelTestDB()
	mr := setupPaymentChannelTestRedis()
	defer mr.Close()

	RecordPaymentCallback("chan-epay-1", "epay", "TRADE-001",
		map[string]string{"out_trade_no": "TRADE-001", "money": "19.99"},
		models.CallbackStatusHandled, "order marked paid")
	RecordPaymentCallback("chan-epay-1", "epay", "TRADE-001",
		map[string]string{"out_trade_no": "TRADE-001", "money": "19.99"},
		models.CallbackStatusDuplicate, "order already settled")
	RecordPaymentCallback("chan-mgate-1", "mgate", "",
		map[string]string{"out_trade_no": "TRADE-002"},
		models.CallbackStatusFailed, "verify error")

	// All entries
	logs, total, err := FindPaymentCallbacks(CallbackFilter{Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, logs, 3)

	// Raw params survive verbatim for dispute handling
	var params map[string]string
	var handledLog models.PaymentCallbackLog
	database.DB.First(&handledLog, "status = ?", models.CallbackStatusHandled)
	assert.NoError(t, json.Unmarshal(handledLog.Params, &params))
	assert.Equal(t, "19.99", params["money"])

	// By status
	failed := models.CallbackStatusFailed
	logs, total, err = FindPaymentCallbacks(CallbackFilter{Status: &failed, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "verify error", logs[0].Detail)

	// By trade no
	tradeNo := "TRADE-001"
	_, total, err = FindPaymentCallbacks(CallbackFilter{TradeNo: &tradeNo, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// By channel
	channelUUID := "chan-mgate-1"
	_, total, err = FindPaymentCallbacks(CallbackFilter{PaymentUUID: &channelUUID, Page: 1, Limit: 10})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
