package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"shophand/apperr"
	"shophand/logging"
	"shophand/payment"
)

type ChargeRequest struct {
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	Currency string           `json:"currency" binding:"required,len=3,alpha"`
}

type TransferRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

type PaymentService struct {
	processor   payment.Processor
	idem        payment.Idempotency
	maxAttempts int
	// Backoff is the pause before retry n (1-based)
	Backoff func(attempt int) time.Duration
}

func NewPaymentService(p payment.Processor, idem payment.Idempotency, maxAttempts int) *PaymentService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &PaymentService{
		processor:   p,
		idem:        idem,
		maxAttempts: maxAttempts,
		Backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * 200 * time.Millisecond },
	}
}

// ProcessPayment charges once and returns the transaction id. Charges are
// not retried: without a key a repeat could charge twice.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ChargeRequest) (string, error) {
	if err := check(req); err != nil {
		return "", err
	}
	if !req.Amount.IsPositive() {
		return "", &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "amount", Rule: "gt", Param: "0"}}}
	}
	currency := strings.ToUpper(req.Currency)
	txID, err := s.processor.Charge(ctx, *req.Amount, currency)
	if err != nil {
		if errors.Is(err, payment.ErrDeclined) {
			return "", apperr.Conflict("payment declined")
		}
		return "", &apperr.UpstreamError{Service: "payment processor", Err: err}
	}
	logging.Audit(nil, "payment.processed", map[string]any{
		"tx_id": txID, "amount": req.Amount.StringFixed(2), "currency": currency,
	})
	return txID, nil
}

// TransferFunds pays amount out against txID, retrying upstream failures up
// to maxAttempts. A transfer already recorded as done returns true without
// calling the processor again.
func (s *PaymentService) TransferFunds(ctx context.Context, txID string, req TransferRequest) (bool, error) {
	if err := check(req); err != nil {
		return false, err
	}
	if strings.TrimSpace(txID) == "" {
		return false, apperr.Invalid("transactionId", "required")
	}
	if !req.Amount.IsPositive() {
		return false, &apperr.ValidationError{Fields: []apperr.FieldError{{Field: "amount", Rule: "gt", Param: "0"}}}
	}

	done, err := s.idem.Done(ctx, txID)
	if err != nil {
		return false, err
	}
	if done {
		logging.Info(nil, "payment.transfer_replayed", map[string]any{"tx_id": txID})
		return true, nil
	}
	claimed, err := s.idem.Claim(ctx, txID)
	if err != nil {
		return false, err
	}
	if !claimed {
		if done, err := s.idem.Done(ctx, txID); err == nil && done {
			return true, nil
		}
		return false, apperr.Conflict("transfer %s is already in progress", txID)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, s.Backoff(attempt-1)); err != nil {
				lastErr = err
				break
			}
		}
		ok, err := s.processor.Transfer(ctx, *req.Amount, txID)
		if err == nil {
			if ok {
				if err := s.idem.Complete(ctx, txID); err != nil {
					logging.Error(nil, "payment.transfer_mark_done", err, map[string]any{"tx_id": txID})
				}
			} else {
				s.release(ctx, txID)
			}
			logging.Audit(nil, "payment.transferred", map[string]any{
				"tx_id": txID, "amount": req.Amount.StringFixed(2), "success": ok, "attempts": attempt,
			})
			return ok, nil
		}
		lastErr = err
		logging.Warn(nil, "payment.transfer_retry", map[string]any{"tx_id": txID, "attempt": attempt, "err": err.Error()})
	}
	s.release(ctx, txID)
	return false, &apperr.UpstreamError{Service: "payment processor", Err: lastErr}
}

func (s *PaymentService) release(ctx context.Context, txID string) {
	if err := s.idem.Release(context.WithoutCancel(ctx), txID); err != nil {
		logging.Error(nil, "payment.transfer_release", err, map[string]any{"tx_id": txID})
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
