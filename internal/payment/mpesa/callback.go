package mpesa

import (
	"encoding/json"
	"fmt"
	"io"
)

// CallbackEnvelope is the provider's asynchronous result payload. The open
// key/value metadata bag is decoded into a typed result at this boundary so
// no domain code touches the raw shape.
type CallbackEnvelope struct {
	Body struct {
		StkCallback Callback `json:"stkCallback"`
	} `json:"Body"`
}

type Callback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// Ack is the fixed acknowledgement body the provider expects back on every
// callback, whatever happened internally.
type Ack struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func AcceptedAck() Ack {
	return Ack{ResultCode: 0, ResultDesc: "Accepted"}
}

func ParseCallback(r io.Reader) (*Callback, error) {
	var env CallbackEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	if env.Body.StkCallback.CheckoutRequestID == "" {
		return nil, fmt.Errorf("callback missing CheckoutRequestID")
	}
	return &env.Body.StkCallback, nil
}

func (cb *Callback) Success() bool {
	return cb.ResultCode == 0
}

// PaymentResult is the success metadata flattened out of the item bag.
type PaymentResult struct {
	Receipt   string
	Amount    float64
	Phone     string
	Timestamp string
}

func (cb *Callback) Result() PaymentResult {
	var res PaymentResult
	if cb.CallbackMetadata == nil {
		return res
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				res.Receipt = v
			}
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				res.Amount = v
			}
		case "PhoneNumber":
			// arrives as a JSON number
			switch v := item.Value.(type) {
			case float64:
				res.Phone = fmt.Sprintf("%.0f", v)
			case string:
				res.Phone = v
			}
		case "TransactionDate":
			switch v := item.Value.(type) {
			case float64:
				res.Timestamp = fmt.Sprintf("%.0f", v)
			case string:
				res.Timestamp = v
			}
		}
	}
	return res
}
