package epay

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PalmTamino/Xboard/internal/payment"
)

func init() {
	payment.Register("epay", func() payment.Driver { return NewEpayDriver() })
}

type EpayDriver struct {
	GatewayURL string
	PID        string
	Key        string
}

func NewEpayDriver() *EpayDriver {
	return &EpayDriver{}
}

func (d *EpayDriver) SetConfig(config map[string]interface{}) error {
	if val, ok := config["url"].(string); ok {
		// Accept either the gateway base URL or a full submit.php URL
		baseURL := strings.TrimRight(val, "/")
		if !strings.HasSuffix(baseURL, "submit.php") {
			d.GatewayURL = baseURL + "/submit.php"
		} else {
			d.GatewayURL = baseURL
		}
	} else {
		return errors.New("missing url in config")
	}

	if val, ok := config["pid"].(string); ok {
		d.PID = val
	} else if val, ok := config["pid"].(float64); ok {
		// JSON numbers decode as float64
		d.PID = fmt.Sprintf("%.0f", val)
	} else {
		return errors.New("missing pid in config")
	}

	if val, ok := config["key"].(string); ok {
		d.Key = val
	} else {
		return errors.New("missing key in config")
	}
	return nil
}

func (d *EpayDriver) Pay(req *payment.PayRequest) (string, error) {
	data := map[string]string{
		"pid":          d.PID,
		"type":         "alipay", // Default
		"out_trade_no": req.TradeNo,
		"notify_url":   req.NotifyURL,
		"return_url":   req.ReturnURL,
		"name":         req.Subject,
		"money":        fmt.Sprintf("%.2f", float64(req.AmountMinor)/100),
	}

	if req.Channel != "" {
		data["type"] = req.Channel
	}
	if data["name"] == "" {
		data["name"] = "Topup " + req.TradeNo
	}

	sign := d.generateSign(data)
	data["sign"] = sign
	data["sign_type"] = "MD5"

	q := url.Values{}
	for k, v := range data {
		q.Set(k, v)
	}

	return d.GatewayURL + "?" + q.Encode(), nil
}

func (d *EpayDriver) Notify(req *payment.NotifyRequest) (*payment.NotifyResult, error) {
	data := make(map[string]string)
	var remoteSign string

	for k, v := range req.Params {
		if k == "sign" {
			remoteSign = v
			continue
		}
		if k == "sign_type" {
			continue
		}
		data[k] = v
	}

	if remoteSign == "" {
		return nil, errors.New("missing sign")
	}
	if d.generateSign(data) != remoteSign {
		return nil, errors.New("signature mismatch")
	}
	// EPay also re-notifies for non-final states; only a settled trade pays an order
	if data["trade_status"] != "TRADE_SUCCESS" {
		return nil, errors.New("trade not successful")
	}

	return &payment.NotifyResult{
		TradeNo:    data["out_trade_no"],
		CallbackNo: data["trade_no"],
	}, nil
}

func (d *EpayDriver) generateSign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var builder strings.Builder
	for _, k := range keys {
		v := params[k]
		if v == "" || k == "sign" || k == "sign_type" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("&")
		}
		builder.WriteString(k)
		builder.WriteString("=")
		builder.WriteString(v)
	}
	builder.WriteString(d.Key)

	hash := md5.Sum([]byte(builder.String()))
	return hex.EncodeToString(hash[:])
}
