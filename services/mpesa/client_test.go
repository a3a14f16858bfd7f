package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"betpulse/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.MpesaConfig {
	return config.MpesaConfig{
		Environment:        "sandbox",
		ConsumerKey:        "key",
		ConsumerSecret:     "secret",
		Shortcode:          "174379",
		Passkey:            "passkey",
		InitiatorName:      "testapi",
		SecurityCredential: "precomputed-credential",
		CallbackBaseURL:    "https://betpulse.test",
		CountryCode:        "254",
	}
}

func TestNormalizeMsisdn(t *testing.T) {
	c := New(testConfig())

	cases := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"00254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"07 1234 5678", "254712345678"},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.NormalizeMsisdn(tc.in), "input %q", tc.in)
	}
}

func TestFormatInternationalMsisdn(t *testing.T) {
	c := New(testConfig())
	assert.Equal(t, "+254712345678", c.FormatInternationalMsisdn("0712345678"))
	assert.Equal(t, "", c.FormatInternationalMsisdn(""))
}

func TestExtractItems(t *testing.T) {
	items := []CallbackItem{
		{Name: "Amount", Value: 500.0},
		{Name: "MpesaReceiptNumber", Value: "RKT1"},
		{Name: "PhoneNumber", Value: 254712345678.0},
	}
	out := ExtractItems(items)
	assert.Equal(t, 500.0, out["Amount"])
	assert.Equal(t, "RKT1", out["MpesaReceiptNumber"])
	assert.Len(t, out, 3)

	assert.Empty(t, ExtractItems(nil))
}

func newDarajaStub(t *testing.T) (*httptest.Server, *[]map[string]interface{}) {
	t.Helper()
	var bodies []map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("key:secret"))
		if auth != want {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "stub-token",
			"expires_in":   "3599",
		})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer stub-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		json.NewEncoder(w).Encode(map[string]string{
			"MerchantRequestID": "merchant-1",
			"CheckoutRequestID": "checkout-1",
			"ResponseCode":      "0",
			"CustomerMessage":   "Success. Request accepted for processing",
		})
	})
	mux.HandleFunc("/mpesa/b2c/v1/paymentrequest", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		json.NewEncoder(w).Encode(map[string]string{
			"ConversationID":           "AG_20260829_001",
			"OriginatorConversationID": "29112-001-1",
			"ResponseCode":             "0",
			"ResponseDescription":      "Accept the service request successfully.",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestInitiateSTKPush(t *testing.T) {
	server, bodies := newDarajaStub(t)
	c := NewWithBaseURL(testConfig(), server.URL)

	resp, err := c.InitiateSTKPush(context.Background(), StkPushRequest{
		Amount:      500,
		PhoneNumber: "0712345678",
		Reference:   "DEP-ABC123",
		CallbackURL: "https://betpulse.test/api/v1/finance/mpesa/stk-callback",
	})
	require.NoError(t, err)
	assert.Equal(t, "checkout-1", resp.CheckoutRequestID)
	assert.Equal(t, "merchant-1", resp.MerchantRequestID)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, "254712345678", body["PhoneNumber"])
	assert.Equal(t, "174379", body["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", body["TransactionType"])
	assert.Equal(t, "DEP-ABC123", body["AccountReference"])
	assert.NotEmpty(t, body["Password"])
	assert.NotEmpty(t, body["Timestamp"])
}

func TestInitiateSTKPushInvalidNumber(t *testing.T) {
	server, _ := newDarajaStub(t)
	c := NewWithBaseURL(testConfig(), server.URL)

	_, err := c.InitiateSTKPush(context.Background(), StkPushRequest{
		Amount:      500,
		PhoneNumber: "not-a-number",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mpesa number")
}

func TestTriggerB2CPayout(t *testing.T) {
	server, bodies := newDarajaStub(t)
	c := NewWithBaseURL(testConfig(), server.URL)

	resp, err := c.TriggerB2CPayout(context.Background(), B2CRequest{
		Amount:      400,
		PhoneNumber: "0712345678",
		Reference:   "WDL-XYZ789",
	})
	require.NoError(t, err)
	assert.Equal(t, "AG_20260829_001", resp.ConversationID)
	assert.Equal(t, "29112-001-1", resp.OriginatorConversationID)

	require.Len(t, *bodies, 1)
	body := (*bodies)[0]
	assert.Equal(t, "254712345678", body["PartyB"])
	assert.Equal(t, "precomputed-credential", body["SecurityCredential"])
	assert.Equal(t, "BusinessPayment", body["CommandID"])
	assert.Equal(t, "https://betpulse.test/api/v1/finance/mpesa/b2c-result", body["ResultURL"])
	assert.Equal(t, "https://betpulse.test/api/v1/finance/mpesa/b2c-timeout", body["QueueTimeOutURL"])
	assert.Equal(t, "WDL-XYZ789", body["Occasion"])
}

func TestTriggerB2CPayoutWithoutCredential(t *testing.T) {
	cfg := testConfig()
	cfg.SecurityCredential = ""
	server, _ := newDarajaStub(t)
	c := NewWithBaseURL(cfg, server.URL)

	_, err := c.TriggerB2CPayout(context.Background(), B2CRequest{
		Amount:      400,
		PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "security credential not configured")
}

func TestAccessTokenCached(t *testing.T) {
	var tokenCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(map[string]string{"access_token": "stub-token", "expires_in": "3599"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"CheckoutRequestID": "checkout-1"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewWithBaseURL(testConfig(), server.URL)
	for i := 0; i < 3; i++ {
		_, err := c.InitiateSTKPush(context.Background(), StkPushRequest{
			Amount:      100,
			PhoneNumber: "0712345678",
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, tokenCalls, "token should be fetched once and cached")
}

func TestPostSurfacesProviderError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "stub-token"})
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"errorMessage": "Invalid Amount"})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c := NewWithBaseURL(testConfig(), server.URL)
	_, err := c.InitiateSTKPush(context.Background(), StkPushRequest{
		Amount:      -1,
		PhoneNumber: "0712345678",
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Invalid Amount"))
}
