// Package payment talks to the external payment processor and remembers
// which transfers already went through.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrDeclined means the processor answered but refused the charge
var ErrDeclined = errors.New("payment declined")

// Processor is the external payment collaborator
type Processor interface {
	// Charge collects amount and returns the processor's transaction id
	Charge(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
	// Transfer pays amount out against txID. txID doubles as the idempotency
	// key, so repeating a call for the same txID must not pay twice.
	Transfer(ctx context.Context, amount decimal.Decimal, txID string) (bool, error)
}
