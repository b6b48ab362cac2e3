package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/config"
	"github.com/jafarshop/storefront/pkg/errors"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(config.BackendConfig{BaseURL: srv.URL + "/", Timeout: 5 * time.Second}, zap.NewNop())
}

func TestAddToCart_SendsDeltaAndCookie(t *testing.T) {
	var gotPath, gotCookie string
	var gotBody map[string]interface{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCookie = r.Header.Get("Cookie")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	ctx := WithSessionCookie(context.Background(), "connect.sid=abc")
	err := client.AddToCart(ctx, "cust-1", AddToCartRequest{
		ProductID:   "p-1",
		Quantity:    -2,
		PriceAtTime: 900,
	})
	require.NoError(t, err)

	assert.Equal(t, "/customer/cust-1/cart", gotPath)
	assert.Equal(t, "connect.sid=abc", gotCookie)
	assert.Equal(t, float64(-2), gotBody["quantity"])
	_, hasVariant := gotBody["variantId"]
	assert.False(t, hasVariant)
}

func TestClient_MapsErrorStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Invalid OTP"}`))
		}
	})

	_, err := client.ProductBySlug(context.Background(), "missing")
	var nf *errors.ErrNotFound
	assert.ErrorAs(t, err, &nf)

	_, err = client.VerifyOTP(context.Background(), "9876543210", "123456")
	var up *errors.ErrUpstream
	require.ErrorAs(t, err, &up)
	assert.Equal(t, http.StatusBadRequest, up.Status)
	assert.Equal(t, "Invalid OTP", up.Error())
}

func TestMe_DecodesPopulatedAndBareCartRefs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"_id": "cust-1",
			"name": "Asha",
			"cart": [
				{"productId": {"_id": "p-1", "name": "Fern", "price": 900, "mrp": 1200, "discount": 25, "stock": 4}, "quantity": 2, "priceAtTime": 900},
				{"productId": "p-2", "variantId": "v-9", "quantity": 1, "priceAtTime": 100}
			]
		}`))
	})

	customer, err := client.Me(context.Background())
	require.NoError(t, err)
	require.Len(t, customer.Cart, 2)

	first := customer.Cart[0]
	assert.Equal(t, "p-1", first.ProductID.ID)
	require.NotNil(t, first.ProductID.Product)
	assert.Equal(t, 4, first.ProductID.Stock())
	assert.Equal(t, "", first.VariantKey())

	second := customer.Cart[1]
	assert.Equal(t, "p-2", second.ProductID.ID)
	assert.Nil(t, second.ProductID.Product)
	assert.Equal(t, "v-9", second.VariantKey())
	assert.True(t, second.Matches("p-2", "v-9"))
}

func TestCreatePayment_SuccessFalseIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{Amount: 100, Currency: "INR"})
	var up *errors.ErrUpstream
	require.ErrorAs(t, err, &up)
	assert.Equal(t, "Failed to create Razorpay order", up.Message)
}

func TestPincodeLocation_AcceptsArrayShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"PostOffice":[{"Name":"Kothrud","District":"Pune","State":"Maharashtra"}]}]`))
	})

	offices, err := client.PincodeLocation(context.Background(), "411038")
	require.NoError(t, err)
	require.Len(t, offices, 1)
	assert.Equal(t, "Pune", offices[0].District)
}

func TestVerifyOTP_CapturesSetCookie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "token", Value: "jwt"})
		_, _ = w.Write([]byte(`{"success": true, "customer": {"_id": "cust-1"}}`))
	})

	resp, err := client.VerifyOTP(context.Background(), "9876543210", "123456")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.SetCookie, 1)
	assert.Contains(t, resp.SetCookie[0], "token=jwt")
}
