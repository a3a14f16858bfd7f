// Package mpesa implements the Daraja API client used for STK push
// collections and B2C disbursements. The provider is treated as opaque:
// the client only knows the request shapes, the OAuth dance, and the
// correlation identifiers that come back.
package mpesa

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"betpulse/config"

	"github.com/sirupsen/logrus"
)

var baseURLs = map[string]string{
	"sandbox":    "https://sandbox.safaricom.co.ke",
	"production": "https://api.safaricom.co.ke",
}

type StkPushRequest struct {
	Amount      float64
	PhoneNumber string
	Reference   string
	Description string
	CallbackURL string
}

type StkPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	CustomerMessage   string `json:"CustomerMessage"`
}

type B2CRequest struct {
	Amount      float64
	PhoneNumber string
	Reference   string
	Remarks     string
}

type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             string `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

type accessToken struct {
	value     string
	expiresAt time.Time
}

// Client talks to the Daraja API. Construct it with New; the configuration
// is held by value so nothing mutates process-wide state.
type Client struct {
	cfg     config.MpesaConfig
	baseURL string
	http    *http.Client

	mu                 sync.Mutex
	token              *accessToken
	securityCredential string
}

func New(cfg config.MpesaConfig) *Client {
	base, ok := baseURLs[cfg.Environment]
	if !ok {
		base = baseURLs["sandbox"]
	}
	return &Client{
		cfg:     cfg,
		baseURL: base,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// NewWithBaseURL is used by tests to point the client at a local server.
func NewWithBaseURL(cfg config.MpesaConfig, baseURL string) *Client {
	c := New(cfg)
	c.baseURL = baseURL
	return c
}

// NormalizeMsisdn strips non-digits and rewrites local formats into the
// configured country prefix.
func (c *Client) NormalizeMsisdn(phoneNumber string) string {
	var digits strings.Builder
	for _, r := range phoneNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	s := digits.String()
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, c.cfg.CountryCode):
		return s
	case strings.HasPrefix(s, "00"):
		return s[2:]
	case strings.HasPrefix(s, "0"):
		return c.cfg.CountryCode + s[1:]
	case len(s) == 9:
		return c.cfg.CountryCode + s
	}
	return s
}

// FormatInternationalMsisdn renders a normalized number with a leading plus.
func (c *Client) FormatInternationalMsisdn(phoneNumber string) string {
	normalized := c.NormalizeMsisdn(phoneNumber)
	if normalized == "" {
		return ""
	}
	return "+" + normalized
}

func buildTimestamp(now time.Time) string {
	return now.Format("20060102150405")
}

func (c *Client) buildPassword(timestamp string) string {
	raw := c.cfg.Shortcode + c.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.token != nil && time.Now().Before(c.token.expiresAt) {
		token := c.token.value
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token request returned %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	expiresIn := 3600
	if payload.ExpiresIn != "" {
		fmt.Sscanf(payload.ExpiresIn, "%d", &expiresIn)
	}
	if expiresIn > 60 {
		expiresIn -= 60
	}

	c.mu.Lock()
	c.token = &accessToken{
		value:     payload.AccessToken,
		expiresAt: time.Now().Add(time.Duration(expiresIn) * time.Second),
	}
	c.mu.Unlock()

	return payload.AccessToken, nil
}

// resolveSecurityCredential returns the credential for B2C requests. Either
// the pre-computed value from configuration is used, or the initiator
// password is encrypted with the provider's public certificate. Which path
// runs is purely a configuration decision.
func (c *Client) resolveSecurityCredential() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.securityCredential != "" {
		return c.securityCredential, nil
	}
	if strings.TrimSpace(c.cfg.SecurityCredential) != "" {
		c.securityCredential = c.cfg.SecurityCredential
		return c.securityCredential, nil
	}
	if c.cfg.InitiatorPassword == "" || c.cfg.CertificatePath == "" {
		return "", fmt.Errorf("mpesa security credential not configured: set security_credential or initiator_password with certificate_path")
	}

	certPEM, err := os.ReadFile(c.cfg.CertificatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read mpesa certificate: %w", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return "", fmt.Errorf("failed to decode mpesa certificate %s", c.cfg.CertificatePath)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse mpesa certificate: %w", err)
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("mpesa certificate does not carry an RSA key")
	}

	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(c.cfg.InitiatorPassword))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt initiator password: %w", err)
	}

	c.securityCredential = base64.StdEncoding.EncodeToString(encrypted)
	return c.securityCredential, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mpesa request to %s failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			ErrorMessage string `json:"errorMessage"`
		}
		raw, _ := io.ReadAll(resp.Body)
		detail := string(raw)
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.ErrorMessage != "" {
			detail = apiErr.ErrorMessage
		}
		return fmt.Errorf("mpesa %s returned %d: %s", endpoint, resp.StatusCode, detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode mpesa response: %w", err)
	}
	return nil
}

// InitiateSTKPush prompts the customer's phone to authorize a collection.
func (c *Client) InitiateSTKPush(ctx context.Context, payload StkPushRequest) (*StkPushResponse, error) {
	msisdn := c.NormalizeMsisdn(payload.PhoneNumber)
	if msisdn == "" {
		return nil, fmt.Errorf("invalid mpesa number %q", payload.PhoneNumber)
	}

	timestamp := buildTimestamp(time.Now())
	description := payload.Description
	if description == "" {
		description = "BetPulse top-up"
	}

	body := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          c.buildPassword(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            payload.Amount,
		"PartyA":            msisdn,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       msisdn,
		"CallBackURL":       payload.CallbackURL,
		"AccountReference":  payload.Reference,
		"TransactionDesc":   description,
	}

	var out StkPushResponse
	if err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TriggerB2CPayout sends funds to the customer. The final status arrives
// later on the result webhook; this call only yields correlation ids.
func (c *Client) TriggerB2CPayout(ctx context.Context, payload B2CRequest) (*B2CResponse, error) {
	msisdn := c.NormalizeMsisdn(payload.PhoneNumber)
	if msisdn == "" {
		return nil, fmt.Errorf("invalid mpesa number %q for payout", payload.PhoneNumber)
	}

	credential, err := c.resolveSecurityCredential()
	if err != nil {
		return nil, err
	}

	remarks := payload.Remarks
	if remarks == "" {
		remarks = "BetPulse withdrawal"
	}

	callbackBase := strings.TrimSuffix(c.cfg.CallbackBaseURL, "/")
	body := map[string]interface{}{
		"InitiatorName":      c.cfg.InitiatorName,
		"SecurityCredential": credential,
		"CommandID":          "BusinessPayment",
		"Amount":             payload.Amount,
		"PartyA":             c.cfg.Shortcode,
		"PartyB":             msisdn,
		"Remarks":            remarks,
		"QueueTimeOutURL":    callbackBase + "/api/v1/finance/mpesa/b2c-timeout",
		"ResultURL":          callbackBase + "/api/v1/finance/mpesa/b2c-result",
		"Occasion":           payload.Reference,
	}

	var out B2CResponse
	if err := c.post(ctx, "/mpesa/b2c/v1/paymentrequest", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RegisterC2BURLs points the provider at our confirmation and validation
// webhooks. Failure here is logged and tolerated; deposits still work
// through STK push.
func (c *Client) RegisterC2BURLs(ctx context.Context) {
	callbackBase := strings.TrimSuffix(c.cfg.CallbackBaseURL, "/")
	if callbackBase == "" {
		return
	}

	body := map[string]interface{}{
		"ShortCode":       c.cfg.Shortcode,
		"ResponseType":    "Completed",
		"ConfirmationURL": callbackBase + "/api/v1/finance/mpesa/c2b-confirmation",
		"ValidationURL":   callbackBase + "/api/v1/finance/mpesa/c2b-validation",
	}

	var out map[string]interface{}
	if err := c.post(ctx, "/mpesa/c2b/v1/registerurl", body, &out); err != nil {
		logrus.Warnf("failed to register C2B urls: %v", err)
	}
}

// CallbackItem is one Name/Value pair from the STK callback metadata list.
type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// ExtractItems flattens the provider's Name/Value list into a map.
func ExtractItems(items []CallbackItem) map[string]interface{} {
	out := make(map[string]interface{}, len(items))
	for _, item := range items {
		out[item.Name] = item.Value
	}
	return out
}
