package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cabinbook/internal/pkg/logger"
)

const (
	defaultTimeout = 10 * time.Second
	ordersPath     = "/orders"
)

var ErrNotConfigured = errors.New("payment service url is not configured")

type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// CallbackURL is where the payment service reports confirmed payments.
	CallbackURL string
	Timeout     time.Duration
}

// Client opens payment orders on the external payment service. Signing and
// provider redirects are the service's concern; the reply carries only the
// URL the customer pays at.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, log: log}, nil
}

type orderRequest struct {
	OrderRef    string `json:"order_ref"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url,omitempty"`
}

type orderResponse struct {
	PaymentURL string `json:"payment_url"`
}

// FormatAmount renders an amount with two decimals, the precision payments
// are reconciled at.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

// CreateOrder asks the payment service for an order of amount and returns
// the payment URL. The order reference doubles as the idempotency key, so a
// retried call never opens a second order.
func (c *Client) CreateOrder(ctx context.Context, orderRef string, amount float64) (string, error) {
	if orderRef == "" || amount <= 0 {
		return "", fmt.Errorf("invalid order %q for amount %.2f", orderRef, amount)
	}

	body, err := json.Marshal(orderRequest{OrderRef: orderRef, Amount: FormatAmount(amount), CallbackURL: c.cfg.CallbackURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+ordersPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", orderRef)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("payment service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read payment service response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("payment service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out orderResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to decode payment service response: %w", err)
	}
	if out.PaymentURL == "" {
		return "", errors.New("payment service response has no payment_url")
	}

	c.log.Info("payment order created", "order_ref", orderRef, "amount", FormatAmount(amount))
	return out.PaymentURL, nil
}
