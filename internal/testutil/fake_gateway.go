package testutil

import (
	"context"
	"sync"
	"time"

	ierr "github.com/stackbill/stackbill/internal/errors"
	"github.com/stackbill/stackbill/internal/gateway"
)

// FakeGateway implements gateway.Client with scriptable per-tenant outcomes
// and captures every charge request it receives.
type FakeGateway struct {
	mu sync.Mutex

	// FailWith maps payer id to the error its charges should fail with.
	FailWith map[string]error

	// FailAll, when set, fails every charge regardless of payer.
	FailAll error

	charges []*gateway.ChargeRequest
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{FailWith: make(map[string]error)}
}

// FailTenant scripts a gateway-style failure for one payer.
func (g *FakeGateway) FailTenant(payerID string, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.FailWith[payerID] = ierr.NewError(reason).Mark(ierr.ErrGateway)
}

func (g *FakeGateway) Charge(ctx context.Context, req *gateway.ChargeRequest) (*gateway.ChargeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges = append(g.charges, req)

	if g.FailAll != nil {
		return nil, g.FailAll
	}
	if err, ok := g.FailWith[req.PayerID]; ok {
		return nil, err
	}

	return &gateway.ChargeResponse{
		Status:        gateway.ChargeStatusDone,
		TransactionID: "txn_" + req.OrderID,
		OrderID:       req.OrderID,
		Amount:        req.Amount,
		Method:        "card",
		ApprovedAt:    time.Now().UTC(),
	}, nil
}

func (g *FakeGateway) GetPayment(ctx context.Context, orderID string) (*gateway.ChargeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, req := range g.charges {
		if req.OrderID == orderID {
			return &gateway.ChargeResponse{
				Status:        gateway.ChargeStatusDone,
				TransactionID: "txn_" + orderID,
				OrderID:       orderID,
				Amount:        req.Amount,
			}, nil
		}
	}
	return nil, ierr.NewError("payment not found").Mark(ierr.ErrNotFound)
}

// Charges returns every charge request received, in order.
func (g *FakeGateway) Charges() []*gateway.ChargeRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*gateway.ChargeRequest, len(g.charges))
	copy(out, g.charges)
	return out
}

// ChargeCount returns the number of charge attempts for a payer.
func (g *FakeGateway) ChargeCount(payerID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, req := range g.charges {
		if req.PayerID == payerID {
			n++
		}
	}
	return n
}
