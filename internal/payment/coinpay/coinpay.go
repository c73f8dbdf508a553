package coinpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PalmTamino/Xboard/internal/payment"
)

const checkoutURL = "https://www.coinpayments.net/index.php"

func init() {
	payment.Register("coinpay", func() payment.Driver { return NewCoinPayDriver() })
}

type CoinPayDriver struct {
	MerchantID string
	IPNSecret  string
	Currency   string
}

func NewCoinPayDriver() *CoinPayDriver {
	return &CoinPayDriver{}
}

func (d *CoinPayDriver) SetConfig(config map[string]interface{}) error {
	if val, ok := config["merchant_id"].(string); ok {
		d.MerchantID = val
	} else {
		return errors.New("missing merchant_id in config")
	}

	if val, ok := config["ipn_secret"].(string); ok {
		d.IPNSecret = val
	} else {
		return errors.New("missing ipn_secret in config")
	}

	d.Currency = "USD"
	if val, ok := config["currency"].(string); ok && val != "" {
		d.Currency = val
	}
	return nil
}

// Pay builds the offsite simple-checkout URL. The panel trade number rides
// in the "custom" field and comes back unchanged in the IPN.
func (d *CoinPayDriver) Pay(req *payment.PayRequest) (string, error) {
	subject := req.Subject
	if subject == "" {
		subject = "Topup " + req.TradeNo
	}

	q := url.Values{}
	q.Set("cmd", "_pay_simple")
	q.Set("reset", "1")
	q.Set("merchant", d.MerchantID)
	q.Set("item_name", subject)
	q.Set("currency", d.Currency)
	q.Set("amountf", fmt.Sprintf("%.2f", float64(req.AmountMinor)/100))
	q.Set("custom", req.TradeNo)
	q.Set("ipn_url", req.NotifyURL)
	q.Set("success_url", req.ReturnURL)
	q.Set("cancel_url", req.ReturnURL)

	return checkoutURL + "?" + q.Encode(), nil
}

// Notify verifies the IPN: the HMAC header is SHA-512 over the raw POST
// body keyed with the IPN secret. Status below 100 (other than 2) means the
// payment has not completed yet and must not pay an order.
func (d *CoinPayDriver) Notify(req *payment.NotifyRequest) (*payment.NotifyResult, error) {
	remote := req.Headers["hmac"]
	if remote == "" {
		return nil, errors.New("missing hmac header")
	}
	if req.Params["merchant"] == "" || req.Params["merchant"] != d.MerchantID {
		return nil, errors.New("merchant mismatch")
	}

	mac := hmac.New(sha512.New, []byte(strings.TrimSpace(d.IPNSecret)))
	mac.Write(req.Body)
	local := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(local), []byte(remote)) {
		return nil, errors.New("hmac mismatch")
	}

	status, err := strconv.Atoi(req.Params["status"])
	if err != nil {
		return nil, errors.New("missing status")
	}
	if status < 100 && status != 2 {
		return nil, errors.New("payment not complete")
	}

	return &payment.NotifyResult{
		TradeNo:      req.Params["custom"],
		CallbackNo:   req.Params["txn_id"],
		CustomResult: "IPN OK",
	}, nil
}
