package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPProcessor calls a JSON payment gateway:
//
//	POST {base}/payments   {"amount","currency"}        -> {"transactionId"}
//	POST {base}/transfers  {"amount","transactionId"}   -> {"success"}
type HTTPProcessor struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProcessor(baseURL, apiKey string, timeout time.Duration) *HTTPProcessor {
	return &HTTPProcessor{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type chargeRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type chargeResponse struct {
	TransactionID string `json:"transactionId"`
	Status        string `json:"status"`
}

type transferRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
}

type transferResponse struct {
	Success bool `json:"success"`
}

func (p *HTTPProcessor) Charge(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	var resp chargeResponse
	if err := p.post(ctx, "/payments", "", chargeRequest{Amount: amount, Currency: currency}, &resp); err != nil {
		return "", err
	}
	if resp.Status == "declined" {
		return "", ErrDeclined
	}
	if resp.TransactionID == "" {
		return "", fmt.Errorf("payment gateway returned no transaction id")
	}
	return resp.TransactionID, nil
}

func (p *HTTPProcessor) Transfer(ctx context.Context, amount decimal.Decimal, txID string) (bool, error) {
	var resp transferResponse
	if err := p.post(ctx, "/transfers", txID, transferRequest{Amount: amount, TransactionID: txID}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (p *HTTPProcessor) post(ctx context.Context, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	res, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusPaymentRequired {
		return ErrDeclined
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("payment gateway %s: status %d: %s", path, res.StatusCode, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(res.Body).Decode(out)
}
