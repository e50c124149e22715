package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/internal/service"
	"github.com/localdeals/coupon-engine/pkg/database"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// DefinitionRepository provides data access for coupon definitions using pgx.
type DefinitionRepository struct {
	pool PoolInterface
}

// NewDefinitionRepository creates a DefinitionRepository with the given pool.
func NewDefinitionRepository(pool *pgxpool.Pool) *DefinitionRepository {
	return &DefinitionRepository{pool: pool}
}

// NewDefinitionRepositoryWithPool creates a DefinitionRepository with a custom
// pool interface. This is primarily used for testing.
func NewDefinitionRepositoryWithPool(pool PoolInterface) *DefinitionRepository {
	return &DefinitionRepository{pool: pool}
}

const definitionColumns = `id, store_id, title, description, benefit_type, benefit_value,
	min_order_amount, total_quantity, limit_per_user, issue_starts_at, issue_ends_at,
	valid_days, status, created_at`

func scanDefinition(row pgx.Row) (*model.CouponDefinition, error) {
	var def model.CouponDefinition
	err := row.Scan(
		&def.ID,
		&def.StoreID,
		&def.Title,
		&def.Description,
		&def.BenefitType,
		&def.BenefitValue,
		&def.MinOrderAmount,
		&def.TotalQuantity,
		&def.LimitPerUser,
		&def.IssueStartsAt,
		&def.IssueEndsAt,
		&def.ValidDays,
		&def.Status,
		&def.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &def, nil
}

// Insert inserts a new coupon definition.
func (r *DefinitionRepository) Insert(ctx context.Context, def *model.CouponDefinition) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO coupon_definitions
			(id, store_id, title, description, benefit_type, benefit_value,
			 min_order_amount, total_quantity, limit_per_user, issue_starts_at,
			 issue_ends_at, valid_days, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		def.ID, def.StoreID, def.Title, def.Description, def.BenefitType, def.BenefitValue,
		def.MinOrderAmount, def.TotalQuantity, def.LimitPerUser, def.IssueStartsAt,
		def.IssueEndsAt, def.ValidDays, def.Status, def.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert coupon definition: %w", err)
	}
	return nil
}

// GetByID retrieves a definition scoped to a store.
// Returns nil, nil if not found (service layer handles this).
func (r *DefinitionRepository) GetByID(ctx context.Context, storeID string, id uuid.UUID) (*model.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupon_definitions WHERE store_id = $1 AND id = $2`

	def, err := scanDefinition(r.pool.QueryRow(ctx, query, storeID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found - let service handle
		}
		return nil, fmt.Errorf("get coupon definition %s: %w", id, err)
	}
	return def, nil
}

// GetForUpdate retrieves a definition with a row lock (SELECT FOR UPDATE),
// holding the lock until the transaction completes. Claim issuance locks the
// definition row so quota checks and claim inserts form one atomic unit.
// Returns service.ErrCouponNotFound if the definition doesn't exist.
func (r *DefinitionRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, storeID string, id uuid.UUID) (*model.CouponDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM coupon_definitions WHERE store_id = $1 AND id = $2 FOR UPDATE`

	def, err := scanDefinition(tx.QueryRow(ctx, query, storeID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon definition for update %s: %w", id, err)
	}
	return def, nil
}

// ListByStore retrieves all definitions for a store together with their
// derived claim counters, newest first. count(used_at) counts only non-null
// values, which is exactly the used counter.
func (r *DefinitionRepository) ListByStore(ctx context.Context, storeID string) ([]model.CouponWithCounts, error) {
	query := `SELECT d.id, d.store_id, d.title, d.description, d.benefit_type, d.benefit_value,
			d.min_order_amount, d.total_quantity, d.limit_per_user, d.issue_starts_at,
			d.issue_ends_at, d.valid_days, d.status, d.created_at,
			count(c.id) AS issued_count, count(c.used_at) AS used_count
		FROM coupon_definitions d
		LEFT JOIN issued_coupons c ON c.coupon_definition_id = d.id
		WHERE d.store_id = $1
		GROUP BY d.id
		ORDER BY d.created_at DESC`

	rows, err := r.pool.Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("list coupon definitions for store %s: %w", storeID, err)
	}
	defer rows.Close()

	coupons := []model.CouponWithCounts{}
	for rows.Next() {
		var c model.CouponWithCounts
		err := rows.Scan(
			&c.ID,
			&c.StoreID,
			&c.Title,
			&c.Description,
			&c.BenefitType,
			&c.BenefitValue,
			&c.MinOrderAmount,
			&c.TotalQuantity,
			&c.LimitPerUser,
			&c.IssueStartsAt,
			&c.IssueEndsAt,
			&c.ValidDays,
			&c.Status,
			&c.CreatedAt,
			&c.IssuedCount,
			&c.UsedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan coupon definition row: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon definition rows: %w", err)
	}

	return coupons, nil
}

// UpdateStatus sets the stored status of a definition (owner stop).
// Returns service.ErrCouponNotFound when no row matches.
func (r *DefinitionRepository) UpdateStatus(ctx context.Context, storeID string, id uuid.UUID, status model.CouponStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE coupon_definitions SET status = $3 WHERE store_id = $1 AND id = $2`,
		storeID, id, status)
	if err != nil {
		return fmt.Errorf("update coupon definition status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrCouponNotFound
	}
	return nil
}
