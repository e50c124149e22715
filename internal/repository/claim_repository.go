package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/pkg/database"
)

// ClaimRepository provides data access for issued coupons using pgx.
type ClaimRepository struct {
	pool PoolInterface
}

// NewClaimRepository creates a ClaimRepository with the given pool.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// NewClaimRepositoryWithPool creates a ClaimRepository with a custom pool
// interface. This is primarily used for testing.
func NewClaimRepositoryWithPool(pool PoolInterface) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// Insert inserts a new issued coupon within a transaction.
func (r *ClaimRepository) Insert(ctx context.Context, tx database.TxQuerier, claim *model.IssuedCoupon) error {
	query := `INSERT INTO issued_coupons
			(id, coupon_definition_id, store_id, user_id, issued_at, expires_at, redemption_code, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`

	_, err := tx.Exec(ctx, query,
		claim.ID, claim.CouponDefinitionID, claim.StoreID, claim.UserID,
		claim.IssuedAt, claim.ExpiresAt, claim.RedemptionCode)
	if err != nil {
		return fmt.Errorf("insert issued coupon: %w", err)
	}
	return nil
}

// CountByDefinition returns the number of claims issued against a definition.
// Pass the issuance transaction as q so the count participates in the quota
// check's atomic unit.
func (r *ClaimRepository) CountByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error) {
	var count int64
	err := q.QueryRow(ctx,
		`SELECT count(*) FROM issued_coupons WHERE coupon_definition_id = $1`,
		definitionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims for definition %s: %w", definitionID, err)
	}
	return count, nil
}

// CountUsedByDefinition returns the number of redeemed claims for a definition.
func (r *ClaimRepository) CountUsedByDefinition(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID) (int64, error) {
	var count int64
	err := q.QueryRow(ctx,
		`SELECT count(*) FROM issued_coupons WHERE coupon_definition_id = $1 AND used_at IS NOT NULL`,
		definitionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count used claims for definition %s: %w", definitionID, err)
	}
	return count, nil
}

// CountByUser returns how many claims a user holds for a definition. Used
// and expired claims count; the per-user limit applies to lifetime claims.
func (r *ClaimRepository) CountByUser(ctx context.Context, q database.TxQuerier, definitionID uuid.UUID, userID string) (int64, error) {
	var count int64
	err := q.QueryRow(ctx,
		`SELECT count(*) FROM issued_coupons WHERE coupon_definition_id = $1 AND user_id = $2`,
		definitionID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count claims for user %s: %w", userID, err)
	}
	return count, nil
}

// CodeInUse reports whether a redemption code is carried by any currently
// unused claim in the store. Used claims do not block reuse of their code.
func (r *ClaimRepository) CodeInUse(ctx context.Context, q database.TxQuerier, storeID, code string) (bool, error) {
	var inUse bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM issued_coupons
			WHERE store_id = $1 AND redemption_code = $2 AND used_at IS NULL
		)`,
		storeID, code).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check redemption code: %w", err)
	}
	return inUse, nil
}

// FindUnusedByCode looks up the unused claim carrying a redemption code in a
// store, joined with the definition fields the point of sale displays.
// Returns nil, nil if no unused claim carries the code.
func (r *ClaimRepository) FindUnusedByCode(ctx context.Context, storeID, code string) (*model.RedemptionCandidate, error) {
	query := `SELECT c.id, c.coupon_definition_id, c.user_id, c.issued_at, c.expires_at,
			d.title, d.benefit_type, d.benefit_value
		FROM issued_coupons c
		JOIN coupon_definitions d ON d.id = c.coupon_definition_id
		WHERE c.store_id = $1 AND c.redemption_code = $2 AND c.used_at IS NULL`

	var cand model.RedemptionCandidate
	err := r.pool.QueryRow(ctx, query, storeID, code).Scan(
		&cand.ClaimID,
		&cand.CouponDefinitionID,
		&cand.UserID,
		&cand.IssuedAt,
		&cand.ExpiresAt,
		&cand.Title,
		&cand.BenefitType,
		&cand.BenefitValue,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("find unused claim by code: %w", err)
	}
	return &cand, nil
}

// MarkUsed transitions a claim to used only if it is still unused at the
// moment of the write. The conditional WHERE makes the check-then-set a
// single atomic statement; a zero row count means another redemption won
// the race.
func (r *ClaimRepository) MarkUsed(ctx context.Context, claimID uuid.UUID, usedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE issued_coupons SET used_at = $2 WHERE id = $1 AND used_at IS NULL`,
		claimID, usedAt)
	if err != nil {
		return false, fmt.Errorf("mark claim used %s: %w", claimID, err)
	}
	return tag.RowsAffected() == 1, nil
}
