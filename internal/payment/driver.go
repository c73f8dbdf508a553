package payment

// PayRequest carries everything a driver needs to start a payment.
type PayRequest struct {
	TradeNo     string
	AmountMinor int64  // minor currency units (cents)
	NotifyURL   string // full callback URL including the channel uuid
	ReturnURL   string
	Channel     string // gateway-specific sub-channel, e.g. "alipay"
	Subject     string
}

// NotifyRequest is the boundary's view of an inbound gateway callback.
// Params merges query, form and flattened JSON fields. Body and Headers are
// kept verbatim for gateways that sign the raw payload; header keys are
// lowercased.
type NotifyRequest struct {
	Params  map[string]string
	Body    []byte
	Headers map[string]string
}

// NotifyResult is what a driver reports once a callback authenticated.
type NotifyResult struct {
	TradeNo      string // panel-side order number
	CallbackNo   string // gateway-side transaction id
	CustomResult string // exact ack body the gateway expects, empty for the default
}

// Driver is the interface that all payment drivers must implement
type Driver interface {
	// SetConfig sets the channel credentials for the driver
	SetConfig(config map[string]interface{}) error

	// Pay initiates a payment and returns the URL the user is redirected to
	Pay(req *PayRequest) (string, error)

	// Notify authenticates a gateway callback. A non-nil error means the
	// payload failed verification; drivers never touch order state.
	Notify(req *NotifyRequest) (*NotifyResult, error)
}
