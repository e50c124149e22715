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

// ClaimServiceInterface defines the interface for claim issuance logic.
type ClaimServiceInterface interface {
	IssueClaim(ctx context.Context, storeID string, couponID uuid.UUID, userID string, now time.Time) (*model.IssuedCoupon, error)
}

// ClaimHandler handles HTTP requests for patron claims.
type ClaimHandler struct {
	service   ClaimServiceInterface
	validator *validator.Validate
}

// NewClaimHandler creates a ClaimHandler with the given service and validator.
func NewClaimHandler(svc ClaimServiceInterface, v *validator.Validate) *ClaimHandler {
	return &ClaimHandler{service: svc, validator: v}
}

// ClaimCoupon handles POST /api/stores/:storeId/coupons/:couponId/claims.
func (h *ClaimHandler) ClaimCoupon(c *fiber.Ctx) error {
	storeID := c.Params("storeId")
	couponID, err := uuid.Parse(c.Params("couponId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid coupon id"})
	}

	var req model.ClaimCouponRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatCouponValidationError(err)})
	}

	claim, err := h.service.IssueClaim(c.Context(), storeID, couponID, req.UserID, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouponNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "coupon not found"})
		case errors.Is(err, service.ErrNotIssuable):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "coupon is not issuable"})
		case errors.Is(err, service.ErrQuotaExceeded):
			log.Info().
				Str("store_id", storeID).
				Str("coupon_id", couponID.String()).
				Str("user_id", req.UserID).
				Msg("claim rejected: quota exceeded")
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon quota exceeded"})
		case errors.Is(err, service.ErrPerUserLimitExceeded):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "per-user claim limit exceeded"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("store_id", storeID).
			Str("coupon_id", couponID.String()).
			Str("user_id", req.UserID).
			Msg("failed to issue claim")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("store_id", storeID).
		Str("coupon_id", couponID.String()).
		Str("user_id", req.UserID).
		Str("claim_id", claim.ID.String()).
		Msg("claim issued")

	return c.Status(fiber.StatusCreated).JSON(model.ClaimResponse{
		ID:             claim.ID,
		CouponID:       claim.CouponDefinitionID,
		UserID:         claim.UserID,
		RedemptionCode: claim.RedemptionCode,
		IssuedAt:       claim.IssuedAt,
		ExpiresAt:      claim.ExpiresAt,
	})
}
