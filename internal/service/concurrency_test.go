package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/pkg/database"
)

// memStore is an in-memory stand-in for both repositories. Begin takes the
// store mutex and holds it until Commit or Rollback, which mirrors how the
// row lock on the definition serializes concurrent issuance transactions.
type memStore struct {
	mu  sync.Mutex // held for the duration of an issuance transaction
	def *model.CouponDefinition

	claimsMu sync.Mutex
	claims   []*model.IssuedCoupon
}

type memTx struct {
	mockTx
	store *memStore
	done  bool
}

func (t *memTx) Commit(ctx context.Context) error {
	if !t.done {
		t.done = true
		t.store.mu.Unlock()
	}
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if !t.done {
		t.done = true
		t.store.mu.Unlock()
	}
	return nil
}

func (s *memStore) Begin(ctx context.Context) (pgx.Tx, error) {
	s.mu.Lock()
	return &memTx{store: s}, nil
}

// DefinitionRepositoryInterface

func (s *memStore) Insert(ctx context.Context, def *model.CouponDefinition) error {
	s.def = def
	return nil
}

func (s *memStore) GetByID(ctx context.Context, storeID string, id uuid.UUID) (*model.CouponDefinition, error) {
	return s.def, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, tx database.TxQuerier, storeID string, id uuid.UUID) (*model.CouponDefinition, error) {
	if s.def == nil {
		return nil, ErrCouponNotFound
	}
	return s.def, nil
}

func (s *memStore) ListByStore(ctx context.Context, storeID string) ([]model.CouponWithCounts, error) {
	return nil, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, storeID string, id uuid.UUID, st model.CouponStatus) error {
	return nil
}

// ClaimRepositoryInterface

func (s *memStore) InsertClaim(ctx context.Context, tx database.TxQuerier, claim *model.IssuedCoupon) error {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	s.claims = append(s.claims, claim)
	return nil
}

func (s *memStore) CountByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	var n int64
	for _, c := range s.claims {
		if c.CouponDefinitionID == definitionID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountUsedByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	var n int64
	for _, c := range s.claims {
		if c.CouponDefinitionID == definitionID && c.UsedAt != nil {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CountByUser(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID, userID string) (int64, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	var n int64
	for _, c := range s.claims {
		if c.CouponDefinitionID == definitionID && c.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CodeInUse(ctx context.Context, q database.TxQuerier, storeID, code string) (bool, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	for _, c := range s.claims {
		if c.StoreID == storeID && c.RedemptionCode == code && c.UsedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) FindUnusedByCode(ctx context.Context, storeID, code string) (*model.RedemptionCandidate, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	for _, c := range s.claims {
		if c.StoreID == storeID && c.RedemptionCode == code && c.UsedAt == nil {
			return &model.RedemptionCandidate{
				ClaimID:            c.ID,
				CouponDefinitionID: c.CouponDefinitionID,
				UserID:             c.UserID,
				IssuedAt:           c.IssuedAt,
				ExpiresAt:          c.ExpiresAt,
				Title:              s.def.Title,
				BenefitType:        s.def.BenefitType,
				BenefitValue:       s.def.BenefitValue,
			}, nil
		}
	}
	return nil, nil
}

func (s *memStore) MarkUsed(ctx context.Context, claimID uuid.UUID, usedAt time.Time) (bool, error) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	for _, c := range s.claims {
		if c.ID == claimID {
			if c.UsedAt != nil {
				return false, nil
			}
			t := usedAt
			c.UsedAt = &t
			return true, nil
		}
	}
	return false, nil
}

// memClaims adapts memStore to ClaimRepositoryInterface, whose Insert name
// collides with the definition Insert on the same struct.
type memClaims struct{ *memStore }

func (m memClaims) Insert(ctx context.Context, tx database.TxQuerier, claim *model.IssuedCoupon) error {
	return m.InsertClaim(ctx, tx, claim)
}

func newMemService(store *memStore) *CouponService {
	return NewCouponServiceWithDeps(store, nil, store, memClaims{store}, DefaultPolicy())
}

func TestIssueClaim_QuotaHoldsUnderConcurrency(t *testing.T) {
	const capacity = 5
	const patrons = 20

	store := &memStore{def: activeDefinition()}
	*store.def.TotalQuantity = capacity
	svc := newMemService(store)

	var wg sync.WaitGroup
	results := make(chan error, patrons)
	for i := 0; i < patrons; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := string(rune('A' + n))
			_, err := svc.IssueClaim(context.Background(), "store_001", store.def.ID, userID, testNow)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var issued, rejected int
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, ErrQuotaExceeded):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, capacity, issued, "exactly the capacity must be issued")
	assert.Equal(t, patrons-capacity, rejected)
	assert.Len(t, store.claims, capacity, "stored claims never exceed the capacity")

	// Codes of unused claims must be distinct within the store
	seen := map[string]bool{}
	for _, c := range store.claims {
		assert.False(t, seen[c.RedemptionCode], "duplicate code %s", c.RedemptionCode)
		seen[c.RedemptionCode] = true
	}
}

func TestIssueClaim_PerUserLimitHoldsUnderConcurrency(t *testing.T) {
	store := &memStore{def: activeDefinition()}
	store.def.TotalQuantity = nil
	store.def.LimitPerUser = 1
	svc := newMemService(store)

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IssueClaim(context.Background(), "store_001", store.def.ID, "user_001", testNow)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var issued, limited int
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, ErrPerUserLimitExceeded):
			limited++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, issued, "one user gets one claim no matter how often they tap")
	assert.Equal(t, attempts-1, limited)
}

func TestRedeem_SingleWinnerUnderConcurrency(t *testing.T) {
	store := &memStore{def: activeDefinition()}
	svc := newMemService(store)

	claim, err := svc.IssueClaim(context.Background(), "store_001", store.def.ID, "user_001", testNow)
	require.NoError(t, err)

	const staff = 8
	var wg sync.WaitGroup
	results := make(chan error, staff)
	for i := 0; i < staff; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Redeem(context.Background(), "store_001", claim.RedemptionCode, testNow)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrAlreadyUsed) || errors.Is(err, ErrCodeNotFound):
			// Late arrivals may no longer find the code unused at all
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 1, won, "exactly one redemption wins the race")
	assert.Equal(t, staff-1, lost)

	require.NotNil(t, store.claims[0].UsedAt)
	assert.Equal(t, testNow, *store.claims[0].UsedAt)
}

func TestRedeem_CodeReusableAfterUse(t *testing.T) {
	store := &memStore{def: activeDefinition()}
	svc := newMemService(store)

	claim, err := svc.IssueClaim(context.Background(), "store_001", store.def.ID, "user_001", testNow)
	require.NoError(t, err)

	_, err = svc.Redeem(context.Background(), "store_001", claim.RedemptionCode, testNow)
	require.NoError(t, err)

	// A used claim no longer blocks its code for new issuance
	inUse, err := store.CodeInUse(context.Background(), nil, "store_001", claim.RedemptionCode)
	require.NoError(t, err)
	assert.False(t, inUse)
}
