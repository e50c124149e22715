package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/internal/service"
)

// CouponServiceInterface defines the interface for coupon definition logic.
type CouponServiceInterface interface {
	CreateDefinition(ctx context.Context, storeID string, req *model.CreateCouponRequest, now time.Time) (*model.CouponResponse, error)
	ListByStore(ctx context.Context, storeID, filter string, now time.Time) ([]model.CouponResponse, error)
	GetByID(ctx context.Context, storeID string, id uuid.UUID, now time.Time) (*model.CouponResponse, error)
	StopCoupon(ctx context.Context, storeID string, id uuid.UUID) error
}

// CouponHandler handles HTTP requests for coupon definition operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// formatCouponValidationError converts validator errors to user-facing
// messages with snake_case field names matching the request body.
func formatCouponValidationError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			field := jsonFieldName(fe.Field())
			switch fe.Tag() {
			case "required":
				return "invalid request: " + field + " is required"
			case "notblank":
				return "invalid request: " + field + " cannot be whitespace only"
			case "max":
				return "invalid request: " + field + " exceeds maximum length"
			case "oneof":
				return "invalid request: " + field + " must be one of FIXED_DISCOUNT, PERCENTAGE_DISCOUNT, SERVICE_GIFT"
			case "gte":
				return "invalid request: " + field + " is below the minimum value"
			default:
				return "invalid request: " + field + " is invalid"
			}
		}
	}
	return "invalid request"
}

// jsonFieldName maps struct field names to their request body keys.
func jsonFieldName(field string) string {
	switch field {
	case "Title":
		return "title"
	case "Description":
		return "description"
	case "BenefitType":
		return "benefit_type"
	case "BenefitValue":
		return "benefit_value"
	case "MinOrderAmount":
		return "min_order_amount"
	case "TotalQuantity":
		return "total_quantity"
	case "LimitPerUser":
		return "limit_per_user"
	case "ValidDays":
		return "valid_days"
	case "IssueStartsAt":
		return "issue_starts_at"
	case "IssueEndsAt":
		return "issue_ends_at"
	case "UserID":
		return "user_id"
	case "Code":
		return "code"
	}
	return field
}

// CreateCoupon handles POST /api/stores/:storeId/coupons.
func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	storeID := c.Params("storeId")

	var req model.CreateCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatCouponValidationError(err)})
	}

	resp, err := h.service.CreateDefinition(c.Context(), storeID, &req, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrInvalidWindow) || errors.Is(err, service.ErrInvalidBenefit) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
		}
		log.Error().Err(err).Str("store_id", storeID).Str("title", req.Title).Msg("failed to create coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	if resp.WindowAdjusted {
		log.Info().
			Str("store_id", storeID).
			Str("coupon_id", resp.ID.String()).
			Time("issue_ends_at", resp.IssueEndsAt).
			Msg("issuance window end pushed forward to minimum gap")
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ListCoupons handles GET /api/stores/:storeId/coupons. The optional filter
// query selects the live (upcoming/active) or ended (expired/stopped) tab.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	storeID := c.Params("storeId")
	filter := c.Query("filter")
	if filter != "" && filter != "live" && filter != "ended" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request: filter must be live or ended",
		})
	}

	coupons, err := h.service.ListByStore(c.Context(), storeID, filter, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Str("store_id", storeID).Msg("failed to list coupons")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(fiber.Map{"coupons": coupons})
}

// GetCoupon handles GET /api/stores/:storeId/coupons/:couponId.
func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	storeID := c.Params("storeId")
	couponID, err := uuid.Parse(c.Params("couponId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	resp, err := h.service.GetByID(c.Context(), storeID, couponID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		log.Error().Err(err).Str("store_id", storeID).Str("coupon_id", couponID.String()).Msg("failed to get coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	return c.JSON(resp)
}

// StopCoupon handles POST /api/stores/:storeId/coupons/:couponId/stop.
func (h *CouponHandler) StopCoupon(c *fiber.Ctx) error {
	storeID := c.Params("storeId")
	couponID, err := uuid.Parse(c.Params("couponId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	if err := h.service.StopCoupon(c.Context(), storeID, couponID); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		}
		log.Error().Err(err).Str("store_id", storeID).Str("coupon_id", couponID.String()).Msg("failed to stop coupon")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().Str("store_id", storeID).Str("coupon_id", couponID.String()).Msg("coupon stopped by owner")
	return c.JSON(fiber.Map{"status": "STOPPED"})
}
