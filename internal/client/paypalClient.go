package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"apparel-checkout/internal/config"
	"apparel-checkout/internal/model"
)

const (
	CaptureStatusCompleted = "COMPLETED"
	CaptureStatusPending   = "PENDING"
)

// ErrOrderAlreadyCaptured is returned by CaptureOrder when PayPal reports the order was captured before.
var ErrOrderAlreadyCaptured = errors.New("paypal order already captured")

type PaypalClient interface {
	CreateOrder(ctx context.Context, order *PaypalOrderRequest) (*CreateOrderResponse, error)
	// CaptureOrder captures an approved order and returns the capture status.
	CaptureOrder(ctx context.Context, orderID string) (string, error)
	VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
	webhookID          string
}

type PaypalMoney struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type PaypalItem struct {
	Name       string      `json:"name"`
	SKU        string      `json:"sku,omitempty"`
	Quantity   string      `json:"quantity"`
	UnitAmount PaypalMoney `json:"unit_amount"`
}

type PaypalBreakdown struct {
	ItemTotal PaypalMoney  `json:"item_total"`
	Discount  *PaypalMoney `json:"discount,omitempty"`
}

type PaypalPurchaseAmount struct {
	PaypalMoney
	Breakdown PaypalBreakdown `json:"breakdown"`
}

type PaypalPurchaseUnit struct {
	ReferenceID string               `json:"reference_id"`
	CustomID    string               `json:"custom_id"`
	InvoiceID   string               `json:"invoice_id"`
	Amount      PaypalPurchaseAmount `json:"amount"`
	Items       []PaypalItem         `json:"items"`
}

type PaypalApplicationContext struct {
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	UserAction string `json:"user_action,omitempty"`
}

type PaypalOrderRequest struct {
	Intent             string                   `json:"intent"`
	PurchaseUnits      []PaypalPurchaseUnit     `json:"purchase_units"`
	ApplicationContext PaypalApplicationContext `json:"application_context"`
}

type PaypalCreateOrderResult struct {
	ID     string             `json:"id"`
	Links  []model.PaypalLink `json:"links"`
	Status string             `json:"status"`
}

type CreateOrderResponse struct {
	OrderID    string
	ApproveURL string
}

type PaypalCaptureResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// PaypalAPIError is a non-2xx answer from the PayPal REST API.
type PaypalAPIError struct {
	StatusCode int
	Body       string
}

func (e *PaypalAPIError) Error() string {
	return fmt.Sprintf("paypal error %d: %s", e.StatusCode, e.Body)
}

func NewPaypalClient(paypalCfg *config.Paypal) PaypalClient {
	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
		webhookID:          paypalCfg.WebhookID,
	}
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("paypal oauth error %d: %s", resp.StatusCode, string(b))
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	if res.AccessToken == "" {
		return "", fmt.Errorf("paypal returned empty access token")
	}

	return res.AccessToken, nil
}

func (c *paypalClientImpl) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("get paypal access token: %w", err)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal req payload: %w", err)
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseApiURL+path, body)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("paypal request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &PaypalAPIError{StatusCode: resp.StatusCode, Body: string(b)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode paypal response: %w", err)
	}

	return nil
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, order *PaypalOrderRequest) (*CreateOrderResponse, error) {
	var result PaypalCreateOrderResult
	if err := c.postJSON(ctx, "/v2/checkout/orders", order, &result); err != nil {
		return nil, err
	}

	approveURL := _extractApproveURL(result.Links)
	if result.ID == "" || approveURL == "" {
		return nil, fmt.Errorf("paypal order response missing id or approve link")
	}

	return &CreateOrderResponse{
		OrderID:    result.ID,
		ApproveURL: approveURL,
	}, nil
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) (string, error) {
	var result PaypalCaptureResult
	if err := c.postJSON(ctx, fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), nil, &result); err != nil {
		var apiErr *PaypalAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnprocessableEntity &&
			strings.Contains(apiErr.Body, "ORDER_ALREADY_CAPTURED") {
			return "", ErrOrderAlreadyCaptured
		}
		return "", fmt.Errorf("paypal capture failed: %w", err)
	}

	// the order can be COMPLETED while its capture is still held for review
	for _, unit := range result.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.Status != "" {
				return capture.Status, nil
			}
		}
	}

	return result.Status, nil
}

func (c *paypalClientImpl) VerifyWebhookSignature(ctx context.Context, headers http.Header, body []byte) error {
	payload := map[string]interface{}{
		"auth_algo":         headers.Get("PAYPAL-AUTH-ALGO"),
		"cert_url":          headers.Get("PAYPAL-CERT-URL"),
		"transmission_id":   headers.Get("PAYPAL-TRANSMISSION-ID"),
		"transmission_sig":  headers.Get("PAYPAL-TRANSMISSION-SIG"),
		"transmission_time": headers.Get("PAYPAL-TRANSMISSION-TIME"),
		"webhook_id":        c.webhookID,
		"webhook_event":     json.RawMessage(body),
	}

	var res struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.postJSON(ctx, "/v1/notifications/verify-webhook-signature", payload, &res); err != nil {
		return err
	}
	if res.VerificationStatus != "SUCCESS" {
		return fmt.Errorf("webhook signature verification status %q", res.VerificationStatus)
	}

	return nil
}

func _extractApproveURL(links []model.PaypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" || link.Rel == "payer-action" {
			return link.Href
		}
	}
	return ""
}
