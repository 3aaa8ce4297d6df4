package payment

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errSimulatedOutage = errors.New("simulated processor outage")

// SimulatedProcessor approves every charge with a fresh uuid and pays each
// transaction id out at most once. FailNext makes the next n calls fail.
type SimulatedProcessor struct {
	mu        sync.Mutex
	charges   map[string]decimal.Decimal
	paid      map[string]bool
	failNext  int
	transfers int
}

func NewSimulatedProcessor() *SimulatedProcessor {
	return &SimulatedProcessor{charges: map[string]decimal.Decimal{}, paid: map[string]bool{}}
}

func (p *SimulatedProcessor) FailNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = n
}

// Transfers counts transfer calls that reached the processor
func (p *SimulatedProcessor) Transfers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.transfers
}

func (p *SimulatedProcessor) Charge(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failNext > 0 {
		p.failNext--
		return "", errSimulatedOutage
	}
	id := uuid.NewString()
	p.charges[id] = amount
	return id, nil
}

func (p *SimulatedProcessor) Transfer(ctx context.Context, amount decimal.Decimal, txID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transfers++
	if p.failNext > 0 {
		p.failNext--
		return false, errSimulatedOutage
	}
	if p.paid[txID] {
		return true, nil
	}
	charged, ok := p.charges[txID]
	if ok && amount.GreaterThan(charged) {
		return false, nil
	}
	p.paid[txID] = true
	return true, nil
}
