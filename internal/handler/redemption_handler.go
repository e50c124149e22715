package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/internal/service"
)

// RedemptionServiceInterface defines the interface for point-of-sale redemption.
type RedemptionServiceInterface interface {
	Redeem(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error)
}

// RedemptionHandler handles HTTP requests for code verification/redemption.
type RedemptionHandler struct {
	service   RedemptionServiceInterface
	validator *validator.Validate
}

// NewRedemptionHandler creates a RedemptionHandler with the given service and validator.
func NewRedemptionHandler(svc RedemptionServiceInterface, v *validator.Validate) *RedemptionHandler {
	return &RedemptionHandler{service: svc, validator: v}
}

// VerifyCode handles POST /api/stores/:storeId/coupons/verify. Expired and
// already-used codes are both conflicts to the caller, but logged under
// distinct reasons so they stay distinguishable in metrics.
func (h *RedemptionHandler) VerifyCode(c *fiber.Ctx) error {
	storeID := c.Params("storeId")

	var req model.VerifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatCouponValidationError(err)})
	}

	result, err := h.service.Redeem(c.Context(), storeID, req.Code, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCodeNotFound):
			log.Info().Str("store_id", storeID).Str("reason", "code_not_found").Msg("redemption rejected")
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "redemption code not found"})
		case errors.Is(err, service.ErrCodeExpired):
			log.Info().Str("store_id", storeID).Str("reason", "code_expired").Msg("redemption rejected")
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "redemption code expired"})
		case errors.Is(err, service.ErrAlreadyUsed):
			log.Info().Str("store_id", storeID).Str("reason", "already_used").Msg("redemption rejected")
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "coupon already used"})
		}
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader("X-Request-ID")).
			Str("store_id", storeID).
			Msg("failed to redeem code")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}

	log.Info().
		Str("request_id", c.GetRespHeader("X-Request-ID")).
		Str("store_id", storeID).
		Str("coupon_id", result.CouponID.String()).
		Msg("coupon redeemed")

	return c.JSON(result)
}
