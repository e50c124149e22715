package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/localdeals/coupon-engine/internal/benefit"
	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/internal/status"
	"github.com/localdeals/coupon-engine/internal/validator"
	"github.com/localdeals/coupon-engine/pkg/database"
)

// DefinitionRepositoryInterface defines the interface for definition data access.
type DefinitionRepositoryInterface interface {
	Insert(ctx context.Context, def *model.CouponDefinition) error
	GetByID(ctx context.Context, storeID string, id uuid.UUID) (*model.CouponDefinition, error)
	GetForUpdate(ctx context.Context, tx database.TxQuerier, storeID string, id uuid.UUID) (*model.CouponDefinition, error)
	ListByStore(ctx context.Context, storeID string) ([]model.CouponWithCounts, error)
	UpdateStatus(ctx context.Context, storeID string, id uuid.UUID, st model.CouponStatus) error
}

// ClaimRepositoryInterface defines the interface for issued coupon data access.
type ClaimRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, claim *model.IssuedCoupon) error
	CountByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error)
	CountUsedByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error)
	CountByUser(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID, userID string) (int64, error)
	CodeInUse(ctx context.Context, q database.TxQuerier, storeID, code string) (bool, error)
	FindUnusedByCode(ctx context.Context, storeID, code string) (*model.RedemptionCandidate, error)
	MarkUsed(ctx context.Context, claimID uuid.UUID, usedAt time.Time) (bool, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Policy holds the engine's tunable rules.
type Policy struct {
	CodeLength          int
	CodeMaxAttempts     int
	MinWindowGap        time.Duration
	StartGrace          time.Duration
	DefaultLimitPerUser int
}

// DefaultPolicy returns the reference policy: 4-digit codes, 1h minimum
// window, one claim per user.
func DefaultPolicy() Policy {
	return Policy{
		CodeLength:          4,
		CodeMaxAttempts:     10,
		MinWindowGap:        time.Hour,
		StartGrace:          5 * time.Minute,
		DefaultLimitPerUser: 1,
	}
}

// CouponService provides the coupon lifecycle business logic: definition
// creation, claim issuance and redemption.
type CouponService struct {
	pool   TxBeginner
	defs   DefinitionRepositoryInterface
	claims ClaimRepositoryInterface
	ledger *Ledger
	policy Policy
}

// NewCouponService creates a CouponService with the given pool and repositories.
func NewCouponService(pool *pgxpool.Pool, defs DefinitionRepositoryInterface, claims ClaimRepositoryInterface, policy Policy) *CouponService {
	return &CouponService{
		pool:   pool,
		defs:   defs,
		claims: claims,
		ledger: NewLedger(pool, claims),
		policy: policy,
	}
}

// NewCouponServiceWithDeps creates a CouponService with custom transaction
// and querier seams. Primarily used for testing.
func NewCouponServiceWithDeps(txb TxBeginner, q database.TxQuerier, defs DefinitionRepositoryInterface, claims ClaimRepositoryInterface, policy Policy) *CouponService {
	return &CouponService{
		pool:   txb,
		defs:   defs,
		claims: claims,
		ledger: NewLedger(q, claims),
		policy: policy,
	}
}

// Ledger exposes the read-only quantity counters.
func (s *CouponService) Ledger() *Ledger {
	return s.ledger
}

// CreateDefinition validates and persists a new coupon definition for a
// store. A window shorter than the minimum gap is corrected, not rejected;
// the correction is surfaced via WindowAdjusted on the response.
// Returns ErrInvalidBenefit or ErrInvalidWindow on caller mistakes.
func (s *CouponService) CreateDefinition(ctx context.Context, storeID string, req *model.CreateCouponRequest, now time.Time) (*model.CouponResponse, error) {
	// Defense-in-depth: handler validates, but guard against nil anyway
	if req == nil || storeID == "" {
		return nil, ErrInvalidRequest
	}

	benefitType := model.BenefitType(req.BenefitType)
	b, err := benefit.Parse(benefitType, req.BenefitValue)
	if err != nil {
		return nil, err
	}

	if err := validator.ValidateStart(req.IssueStartsAt, now, s.policy.StartGrace, req.AllowPastStart); err != nil {
		return nil, err
	}

	endsAt, adjusted := validator.EnsureMinimumGap(req.IssueStartsAt, req.IssueEndsAt, s.policy.MinWindowGap)
	if err := validator.ValidateWindow(req.IssueStartsAt, endsAt); err != nil {
		return nil, err
	}

	def := &model.CouponDefinition{
		ID:            uuid.New(),
		StoreID:       storeID,
		Title:         req.Title,
		Description:   req.Description,
		BenefitType:   benefitType,
		BenefitValue:  req.BenefitValue,
		TotalQuantity: req.TotalQuantity,
		LimitPerUser:  s.policy.DefaultLimitPerUser,
		IssueStartsAt: req.IssueStartsAt,
		IssueEndsAt:   endsAt,
		Status:        model.StatusActive,
		CreatedAt:     now,
	}
	if req.MinOrderAmount != nil {
		def.MinOrderAmount = *req.MinOrderAmount
	}
	if req.LimitPerUser != nil {
		def.LimitPerUser = *req.LimitPerUser
	}
	if req.ValidDays != nil {
		def.ValidDays = *req.ValidDays
	}

	if err := s.defs.Insert(ctx, def); err != nil {
		return nil, err
	}

	resp := buildResponse(def, b, 0, 0, now)
	resp.WindowAdjusted = adjusted
	return resp, nil
}

// ListByStore returns all of a store's definitions annotated with derived
// status and progress. filter may be "live" (upcoming or active), "ended"
// (expired or stopped), or empty for everything.
func (s *CouponService) ListByStore(ctx context.Context, storeID, filter string, now time.Time) ([]model.CouponResponse, error) {
	rows, err := s.defs.ListByStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	responses := []model.CouponResponse{}
	for i := range rows {
		row := &rows[i]
		st := status.Classify(&row.CouponDefinition, now)
		switch filter {
		case "live":
			if !status.IsLive(st) {
				continue
			}
		case "ended":
			if status.IsLive(st) {
				continue
			}
		}
		b, _ := benefit.Parse(row.BenefitType, row.BenefitValue)
		responses = append(responses, *buildResponse(&row.CouponDefinition, b, row.IssuedCount, row.UsedCount, now))
	}
	return responses, nil
}

// GetByID returns a single definition with its derived counters.
// Returns ErrCouponNotFound if the definition doesn't exist in the store.
func (s *CouponService) GetByID(ctx context.Context, storeID string, id uuid.UUID, now time.Time) (*model.CouponResponse, error) {
	def, err := s.defs.GetByID(ctx, storeID, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if def == nil {
		return nil, ErrCouponNotFound
	}

	issued, err := s.ledger.IssuedCount(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("issued count: %w", err)
	}
	used, err := s.ledger.UsedCount(ctx, def.ID)
	if err != nil {
		return nil, fmt.Errorf("used count: %w", err)
	}

	b, _ := benefit.Parse(def.BenefitType, def.BenefitValue)
	return buildResponse(def, b, issued, used, now), nil
}

// StopCoupon marks a definition STOPPED. Stopping is an explicit owner
// action and overrides the issuance window from then on.
func (s *CouponService) StopCoupon(ctx context.Context, storeID string, id uuid.UUID) error {
	return s.defs.UpdateStatus(ctx, storeID, id, model.StatusStopped)
}

// IssueClaim creates an IssuedCoupon for a patron. The definition row is
// locked for the duration of the transaction so the quota check, the
// per-user limit check and the claim insert form one atomic unit; issued
// counts can never exceed the capacity even under concurrent claims.
// Returns:
//   - ErrCouponNotFound if the definition doesn't exist
//   - ErrNotIssuable outside the window or for a stopped definition
//   - ErrQuotaExceeded when capacity is fully issued
//   - ErrPerUserLimitExceeded when the user holds the maximum claims
//   - ErrCodeGenerationExhausted when no unused code could be generated
func (s *CouponService) IssueClaim(ctx context.Context, storeID string, couponID uuid.UUID, userID string, now time.Time) (*model.IssuedCoupon, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	// 1. Lock the definition row (SELECT FOR UPDATE)
	def, err := s.defs.GetForUpdate(ctx, tx, storeID, couponID)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("get definition for update: %w", err)
	}

	// 2. Issuable only while ACTIVE and inside the window
	if status.Classify(def, now) != status.Active {
		return nil, ErrNotIssuable
	}

	// 3. Quota check under the row lock
	if def.TotalQuantity != nil {
		issued, err := s.claims.CountByDefinition(ctx, tx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("count issued: %w", err)
		}
		if issued >= *def.TotalQuantity {
			return nil, ErrQuotaExceeded
		}
	}

	// 4. Per-user limit, counting all claims the user ever held
	mine, err := s.claims.CountByUser(ctx, tx, def.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("count user claims: %w", err)
	}
	if mine >= int64(def.LimitPerUser) {
		return nil, ErrPerUserLimitExceeded
	}

	// 5. Personal expiry: window end when validDays is 0, else N days from now
	expiresAt := def.IssueEndsAt
	if def.ValidDays > 0 {
		expiresAt = now.AddDate(0, 0, def.ValidDays)
	}

	// 6. Redemption code unique among unused codes in the store
	code, err := s.pickCode(ctx, tx, storeID)
	if err != nil {
		return nil, err
	}

	claim := &model.IssuedCoupon{
		ID:                 uuid.New(),
		CouponDefinitionID: def.ID,
		StoreID:            storeID,
		UserID:             userID,
		IssuedAt:           now,
		ExpiresAt:          expiresAt,
		RedemptionCode:     code,
	}
	if err := s.claims.Insert(ctx, tx, claim); err != nil {
		return nil, fmt.Errorf("insert claim: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return claim, nil
}

// pickCode generates a redemption code not currently in use by an unused
// claim in the store, with a bounded number of attempts. Exhaustion means
// the code space is saturated and is escalated via error-level logging.
func (s *CouponService) pickCode(ctx context.Context, tx database.TxQuerier, storeID string) (string, error) {
	for attempt := 0; attempt < s.policy.CodeMaxAttempts; attempt++ {
		candidate, err := generateCode(s.policy.CodeLength)
		if err != nil {
			return "", err
		}
		inUse, err := s.claims.CodeInUse(ctx, tx, storeID, candidate)
		if err != nil {
			return "", fmt.Errorf("check code in use: %w", err)
		}
		if !inUse {
			return candidate, nil
		}
	}
	log.Error().
		Str("store_id", storeID).
		Int("attempts", s.policy.CodeMaxAttempts).
		Int("code_length", s.policy.CodeLength).
		Msg("redemption code space exhausted")
	return "", ErrCodeGenerationExhausted
}

// Redeem performs the atomic verify-and-redeem operation at the point of
// sale. The unused-to-used transition is a single conditional write; under
// concurrent attempts on the same code exactly one caller succeeds and the
// rest get ErrAlreadyUsed.
// Returns:
//   - ErrCodeNotFound when no unused claim in the store carries the code
//   - ErrCodeExpired when the claim's personal expiry has passed
//   - ErrAlreadyUsed when another redemption won the race
func (s *CouponService) Redeem(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error) {
	cand, err := s.claims.FindUnusedByCode(ctx, storeID, code)
	if err != nil {
		return nil, fmt.Errorf("find claim by code: %w", err)
	}
	if cand == nil {
		return nil, ErrCodeNotFound
	}

	if cand.ExpiresAt.Before(now) {
		return nil, ErrCodeExpired
	}

	ok, err := s.claims.MarkUsed(ctx, cand.ClaimID, now)
	if err != nil {
		return nil, fmt.Errorf("mark claim used: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyUsed
	}

	b, _ := benefit.Parse(cand.BenefitType, cand.BenefitValue)
	return &model.RedemptionResult{
		CouponID:       cand.CouponDefinitionID,
		StoreID:        storeID,
		Title:          cand.Title,
		BenefitType:    string(cand.BenefitType),
		BenefitValue:   cand.BenefitValue,
		BenefitDisplay: b.Display(),
		ExpiresAt:      cand.ExpiresAt,
		UsedAt:         now,
	}, nil
}

// buildResponse assembles the API representation of a definition with its
// derived status and progress pairs.
func buildResponse(def *model.CouponDefinition, b benefit.Benefit, issued, used int64, now time.Time) *model.CouponResponse {
	resp := &model.CouponResponse{
		ID:             def.ID,
		StoreID:        def.StoreID,
		Title:          def.Title,
		Description:    def.Description,
		BenefitType:    string(def.BenefitType),
		BenefitValue:   def.BenefitValue,
		BenefitDisplay: b.Display(),
		MinOrderAmount: def.MinOrderAmount,
		TotalQuantity:  def.TotalQuantity,
		LimitPerUser:   def.LimitPerUser,
		ValidDays:      def.ValidDays,
		IssueStartsAt:  def.IssueStartsAt,
		IssueEndsAt:    def.IssueEndsAt,
		Status:         string(status.Classify(def, now)),
		IssuedCount:    issued,
		UsedCount:      used,
		UsageProgress:  status.UsageProgress(used, issued).String(),
	}
	if ip, bounded := status.IssuanceProgress(issued, def.TotalQuantity); bounded {
		resp.IssuanceProgress = ip.String()
		remaining := ip.Total - ip.Count
		if remaining < 0 {
			remaining = 0
		}
		resp.RemainingCount = &remaining
	}
	return resp
}
