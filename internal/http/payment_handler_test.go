package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Paul-Karonji/framel-sub000/internal/order"
	"github.com/Paul-Karonji/framel-sub000/internal/payment"
	"github.com/Paul-Karonji/framel-sub000/internal/payment/mpesa"
)

func TestInitiatePayment_Success(t *testing.T) {
	f := newRouterFixture()
	f.payments.initiateFunc = func(_ context.Context, actor order.Actor, orderID, payerPhone string, amount float64) (string, error) {
		assert.Equal(t, "user-1", actor.ID)
		assert.Equal(t, "ord-1", orderID)
		assert.Equal(t, "0712345678", payerPhone)
		assert.Equal(t, 5200.0, amount)
		return "Success. Request accepted for processing", nil
	}

	body := bytes.NewBufferString(`{"phone":"0712345678","amount":5200}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/payment", body)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "initiated", resp["status"])
}

func TestInitiatePayment_AmountMismatch(t *testing.T) {
	f := newRouterFixture()
	f.payments.initiateFunc = func(context.Context, order.Actor, string, string, float64) (string, error) {
		return "", payment.ErrAmountMismatch
	}

	body := bytes.NewBufferString(`{"phone":"0712345678","amount":1}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/payment", body)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiatePayment_ProviderDown(t *testing.T) {
	f := newRouterFixture()
	f.payments.initiateFunc = func(context.Context, order.Actor, string, string, float64) (string, error) {
		return "", payment.ErrProvider
	}

	body := bytes.NewBufferString(`{"phone":"0712345678","amount":5200}`)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/ord-1/payment", body)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestQueryPayment_NotInitiated(t *testing.T) {
	f := newRouterFixture()
	f.payments.queryFunc = func(context.Context, order.Actor, string) (*mpesa.STKQueryResponse, error) {
		return nil, payment.ErrNotInitiated
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ord-1/payment", nil)
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

const successCallback = `{
	"Body": {
		"stkCallback": {
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResultCode": 0,
			"ResultDesc": "The service request is processed successfully.",
			"CallbackMetadata": {
				"Item": [
					{"Name": "Amount", "Value": 5200.00},
					{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
					{"Name": "PhoneNumber", "Value": 254712345678}
				]
			}
		}
	}
}`

func TestCallback_AcksAndProcessesAsync(t *testing.T) {
	f := newRouterFixture()

	processed := make(chan *mpesa.Callback, 1)
	f.payments.callbackFunc = func(_ context.Context, cb *mpesa.Callback) error {
		processed <- cb
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewBufferString(successCallback))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var ack mpesa.Ack
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	assert.Equal(t, 0, ack.ResultCode)
	assert.Equal(t, "Accepted", ack.ResultDesc)

	select {
	case cb := <-processed:
		assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
		assert.True(t, cb.Success())
	case <-time.After(2 * time.Second):
		t.Fatal("callback was never processed")
	}
}

func TestCallback_UnparseableStillAcked(t *testing.T) {
	f := newRouterFixture()

	called := make(chan struct{}, 1)
	f.payments.callbackFunc = func(context.Context, *mpesa.Callback) error {
		called <- struct{}{}
		return nil
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewBufferString(`{"Body":{}}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var ack mpesa.Ack
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ack))
	assert.Equal(t, 0, ack.ResultCode)

	select {
	case <-called:
		t.Fatal("unparseable callback must not reach processing")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCallback_ProcessingErrorStillAcked(t *testing.T) {
	f := newRouterFixture()

	done := make(chan struct{}, 1)
	f.payments.callbackFunc = func(context.Context, *mpesa.Callback) error {
		defer close(done)
		return assert.AnError
	}

	req := httptest.NewRequest(http.MethodPost, "/api/payments/callback", bytes.NewBufferString(successCallback))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("callback was never processed")
	}
}
