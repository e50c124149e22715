package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/pkg/database"
)

// Ledger exposes the derived quantity counters for a coupon definition.
// Counts are computed from claim rows on read; the ledger never writes.
// Mutation happens only as a side effect of claim issuance (issued count)
// and redemption (used count).
type Ledger struct {
	q      database.TxQuerier
	claims ClaimRepositoryInterface
}

// NewLedger creates a Ledger reading through the given querier.
func NewLedger(q database.TxQuerier, claims ClaimRepositoryInterface) *Ledger {
	return &Ledger{q: q, claims: claims}
}

// IssuedCount returns the number of claims issued against a definition.
func (l *Ledger) IssuedCount(ctx context.Context, definitionID uuid.UUID) (int64, error) {
	return l.claims.CountByDefinition(ctx, l.q, definitionID)
}

// UsedCount returns the number of redeemed claims for a definition.
func (l *Ledger) UsedCount(ctx context.Context, definitionID uuid.UUID) (int64, error) {
	return l.claims.CountUsedByDefinition(ctx, l.q, definitionID)
}

// Remaining returns the unclaimed capacity of a definition. The second
// return is false for unlimited definitions, whose remaining capacity is
// unbounded.
func (l *Ledger) Remaining(ctx context.Context, def *model.CouponDefinition) (int64, bool, error) {
	if def.TotalQuantity == nil {
		return 0, false, nil
	}
	issued, err := l.IssuedCount(ctx, def.ID)
	if err != nil {
		return 0, true, err
	}
	remaining := *def.TotalQuantity - issued
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true, nil
}
