// Package mpesa is a typed client for the Safaricom Daraja API: OAuth
// token exchange with an in-client cache, STK push initiation, and push
// status queries.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tripplekay/KayCutts/utils"
)

const (
	authPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath = "/mpesa/stkpush/v1/processrequest"
	queryPath   = "/mpesa/stkpushquery/v1/query"

	// Daraja tokens live 3600s; refresh 100s early so a token never
	// expires mid-flight.
	defaultTokenTTL   = 3600 * time.Second
	tokenSafetyMargin = 100 * time.Second

	minAmount      = 1
	requestTimeout = 15 * time.Second
)

// Config carries the Daraja credentials and endpoints.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	Shortcode      string
	Passkey        string
	CallbackURL    string
	BaseURL        string
}

// Client is a Daraja API client with a single-slot token cache. The cache
// is owned by the client instance, not package state, so composers can
// inject it and tests can swap the clock.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a Daraja client.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

type darajaError struct {
	RequestID    string `json:"requestId"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Token returns the cached bearer token while it is still fresh, otherwise
// performs a basic-auth credential exchange. The mutex also serializes
// concurrent refreshes so at most one exchange is in flight at a time.
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+authPath, nil)
	if err != nil {
		return "", &GatewayError{Kind: KindAuth, Err: err}
	}
	req.SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &GatewayError{Kind: KindAuth, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &GatewayError{
			Kind:        KindAuth,
			Description: fmt.Sprintf("token exchange failed with status %d", resp.StatusCode),
		}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return "", &GatewayError{Kind: KindAuth, Description: "token exchange returned no access token", Err: err}
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(tok.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(ttl - tokenSafetyMargin)
	return c.token, nil
}

// STKPushRequest is a push-payment initiation. Amount is kept as a string
// so both numeric and quoted JSON inputs can be validated uniformly.
type STKPushRequest struct {
	Phone   string
	Amount  string
	OrderID string
}

// STKPushResult is a gateway-accepted initiation.
type STKPushResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
	Phone             string
	Amount            int
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int    `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkPushResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// InitiateSTKPush validates the request and asks the gateway to push a PIN
// prompt to the customer's phone. Validation failures return before any
// network call. The order id travels as the AccountReference, which the
// gateway will NOT echo on the asynchronous callback; the returned
// CheckoutRequestID is the only key that bridges that gap.
func (c *Client) InitiateSTKPush(ctx context.Context, push STKPushRequest) (*STKPushResult, error) {
	if push.Phone == "" || push.Amount == "" || push.OrderID == "" {
		return nil, ErrMissingFields
	}

	phone, ok := utils.NormalizePhone(push.Phone)
	if !ok {
		return nil, ErrInvalidPhone
	}

	amount, err := strconv.Atoi(push.Amount)
	if err != nil || amount < minAmount {
		return nil, ErrInvalidAmount
	}

	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format("20060102150405")
	payload := stkPushPayload{
		BusinessShortCode: c.cfg.Shortcode,
		Password:          c.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            c.cfg.Shortcode,
		PhoneNumber:       phone,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  push.OrderID,
		TransactionDesc:   fmt.Sprintf("Booking Payment - %s", push.OrderID),
	}

	body, status, err := c.post(ctx, stkPushPath, token, payload)
	if err != nil {
		return nil, &GatewayError{Kind: KindUnreachable, Err: err}
	}
	if status < 200 || status > 299 {
		var de darajaError
		_ = json.Unmarshal(body, &de)
		return nil, &GatewayError{Kind: KindUnreachable, Description: de.ErrorMessage}
	}

	var resp stkPushResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &GatewayError{Kind: KindUnreachable, Err: err}
	}
	if resp.ResponseCode != "0" {
		return nil, &GatewayError{Kind: KindRejected, Description: resp.ResponseDescription}
	}

	return &STKPushResult{
		CheckoutRequestID: resp.CheckoutRequestID,
		MerchantRequestID: resp.MerchantRequestID,
		CustomerMessage:   resp.CustomerMessage,
		Phone:             phone,
		Amount:            amount,
	}, nil
}

// QuerySTKPush asks the gateway for the current state of a push prompt and
// hands the provider response back untouched.
func (c *Client) QuerySTKPush(ctx context.Context, checkoutRequestID string) (map[string]interface{}, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format("20060102150405")
	payload := map[string]string{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	body, status, err := c.post(ctx, queryPath, token, payload)
	if err != nil {
		return nil, &GatewayError{Kind: KindUnreachable, Err: err}
	}
	if status < 200 || status > 299 {
		var de darajaError
		_ = json.Unmarshal(body, &de)
		return nil, &GatewayError{Kind: KindUnreachable, Description: de.ErrorMessage}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &GatewayError{Kind: KindUnreachable, Err: err}
	}
	return result, nil
}

// password builds the Daraja request signature:
// base64(shortcode + passkey + timestamp).
func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.Shortcode + c.cfg.Passkey + timestamp))
}

func (c *Client) post(ctx context.Context, path, token string, payload interface{}) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
