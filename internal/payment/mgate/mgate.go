package mgate

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PalmTamino/Xboard/internal/payment"
	"github.com/PalmTamino/Xboard/internal/utils"
)

func init() {
	payment.Register("mgate", func() payment.Driver { return NewMGateDriver() })
}

type MGateDriver struct {
	GatewayURL string
	AppID      string
	AppSecret  string

	client *http.Client
}

func NewMGateDriver() *MGateDriver {
	return &MGateDriver{
		client: utils.NewHTTPClient(10 * time.Second),
	}
}

func (d *MGateDriver) SetConfig(config map[string]interface{}) error {
	if val, ok := config["url"].(string); ok {
		d.GatewayURL = strings.TrimRight(val, "/")
	} else {
		return errors.New("missing url in config")
	}

	if val, ok := config["app_id"].(string); ok {
		d.AppID = val
	} else {
		return errors.New("missing app_id in config")
	}

	if val, ok := config["secret"].(string); ok {
		d.AppSecret = val
	} else {
		return errors.New("missing secret in config")
	}
	return nil
}

type fetchResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		TradeNo string `json:"trade_no"`
		PayURL  string `json:"pay_url"`
	} `json:"data"`
}

// Pay creates an order on the MGate side and returns its hosted payment page.
func (d *MGateDriver) Pay(req *payment.PayRequest) (string, error) {
	params := url.Values{}
	params.Set("app_id", d.AppID)
	params.Set("out_trade_no", req.TradeNo)
	params.Set("total_amount", fmt.Sprintf("%d", req.AmountMinor))
	params.Set("notify_url", req.NotifyURL)
	params.Set("return_url", req.ReturnURL)
	params.Set("sign", d.sign(params))

	resp, err := d.client.Post(
		d.GatewayURL+"/v1/gateway/fetch",
		"application/x-www-form-urlencoded",
		strings.NewReader(params.Encode()),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var result fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.Code != 0 {
		return "", fmt.Errorf("mgate fetch failed: code %d", result.Code)
	}
	if result.Data.PayURL == "" {
		return "", errors.New("mgate fetch returned no pay url")
	}

	return result.Data.PayURL, nil
}

func (d *MGateDriver) Notify(req *payment.NotifyRequest) (*payment.NotifyResult, error) {
	params := url.Values{}
	var remoteSign string
	for k, v := range req.Params {
		if k == "sign" {
			remoteSign = v
			continue
		}
		params.Set(k, v)
	}

	if remoteSign == "" {
		return nil, errors.New("missing sign")
	}
	if d.sign(params) != remoteSign {
		return nil, errors.New("signature mismatch")
	}

	return &payment.NotifyResult{
		TradeNo:    req.Params["out_trade_no"],
		CallbackNo: req.Params["trade_no"],
	}, nil
}

// sign hashes the url-encoded, key-sorted params with the app secret
// appended. Values.Encode sorts by key, matching the gateway's ksort.
func (d *MGateDriver) sign(params url.Values) string {
	params.Del("sign")
	hash := md5.Sum([]byte(params.Encode() + d.AppSecret))
	return hex.EncodeToString(hash[:])
}
