package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/winova/contest-api/pkg/config"
)

// HTTPGateway talks to the payment provider over its REST API.
type HTTPGateway struct {
	baseURL      string
	clientID     string
	clientSecret string
	client       *http.Client
}

// NewHTTPGateway builds a client from gateway configuration.
func NewHTTPGateway(cfg config.GatewayConfig) *HTTPGateway {
	return &HTTPGateway{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		client:       &http.Client{Timeout: cfg.Timeout},
	}
}

type createChargeBody struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
}

type orderResponse struct {
	OrderID   string `json:"order_id"`
	CaptureID string `json:"capture_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// CreateCharge registers a pending charge with the provider.
func (g *HTTPGateway) CreateCharge(ctx context.Context, req ChargeRequest) (string, error) {
	body := createChargeBody{Amount: req.Amount, Currency: req.Currency, Description: req.Description}
	resp, err := g.post(ctx, "/v1/orders", body)
	if err != nil {
		return "", &Error{Op: "create", Reason: "request failed", Transient: true, Err: err}
	}
	if resp.OrderID == "" {
		reason := resp.Reason
		if reason == "" {
			reason = "provider returned no order id"
		}
		return "", &Error{Op: "create", Reason: reason, Transient: false}
	}
	return resp.OrderID, nil
}

// CaptureCharge finalises a charge previously created via CreateCharge.
func (g *HTTPGateway) CaptureCharge(ctx context.Context, orderID, token string) (string, error) {
	path := fmt.Sprintf("/v1/orders/%s/capture", orderID)
	resp, err := g.post(ctx, path, map[string]string{"token": token})
	if err != nil {
		return "", &Error{Op: "capture", Reason: "request failed", Transient: true, Err: err}
	}
	if resp.Status != "COMPLETED" {
		reason := resp.Reason
		if reason == "" {
			reason = "charge declined"
		}
		return "", &Error{Op: "capture", Reason: reason, Transient: false}
	}
	return resp.CaptureID, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload interface{}) (*orderResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.clientID, g.clientSecret)

	res, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if res.StatusCode >= 500 {
		return nil, fmt.Errorf("provider unavailable: status %d", res.StatusCode)
	}

	var parsed orderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if res.StatusCode >= 400 && parsed.Reason == "" {
		parsed.Reason = fmt.Sprintf("provider rejected request: status %d", res.StatusCode)
	}
	return &parsed, nil
}
