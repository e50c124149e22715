package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localdeals/coupon-engine/internal/model"
	"github.com/localdeals/coupon-engine/internal/service"
	appvalidator "github.com/localdeals/coupon-engine/internal/validator"
)

// mockRedemptionService is a mock implementation of RedemptionServiceInterface.
type mockRedemptionService struct {
	redeemFn func(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error)
}

func (m *mockRedemptionService) Redeem(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error) {
	if m.redeemFn != nil {
		return m.redeemFn(ctx, storeID, code, now)
	}
	return nil, service.ErrCodeNotFound
}

func newRedemptionApp(svc RedemptionServiceInterface) *fiber.App {
	app := fiber.New()
	h := NewRedemptionHandler(svc, appvalidator.New())
	app.Post("/api/stores/:storeId/coupons/verify", h.VerifyCode)
	return app
}

func TestVerifyCode_Success(t *testing.T) {
	couponID := uuid.New()
	usedAt := time.Date(2026, 3, 3, 18, 30, 0, 0, time.UTC)

	var capturedCode string
	svc := &mockRedemptionService{
		redeemFn: func(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error) {
			assert.Equal(t, "store_001", storeID)
			capturedCode = code
			return &model.RedemptionResult{
				CouponID:       couponID,
				StoreID:        storeID,
				Title:          "Lunch Special",
				BenefitType:    "FIXED_DISCOUNT",
				BenefitValue:   "3000",
				BenefitDisplay: "3000 off",
				ExpiresAt:      usedAt.Add(24 * time.Hour),
				UsedAt:         usedAt,
			}, nil
		},
	}
	app := newRedemptionApp(svc)

	resp, body := doJSON(t, app, "POST", "/api/stores/store_001/coupons/verify",
		map[string]any{"code": "0427"})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "0427", capturedCode)
	assert.Equal(t, "Lunch Special", body["title"])
	assert.Equal(t, "3000 off", body["benefit_display"])
	assert.Equal(t, usedAt.Format(time.RFC3339), body["used_at"])
}

func TestVerifyCode_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		payload map[string]any
	}{
		{name: "missing code", payload: map[string]any{}},
		{name: "non-numeric code", payload: map[string]any{"code": "abcd"}},
		{name: "oversized code", payload: map[string]any{"code": "123456789"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			redeemed := false
			svc := &mockRedemptionService{
				redeemFn: func(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error) {
					redeemed = true
					return nil, nil
				},
			}
			app := newRedemptionApp(svc)

			resp, _ := doJSON(t, app, "POST", "/api/stores/store_001/coupons/verify", tc.payload)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.False(t, redeemed)
		})
	}
}

func TestVerifyCode_ErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unknown code", service.ErrCodeNotFound, fiber.StatusNotFound, "redemption code not found"},
		{"expired code", service.ErrCodeExpired, fiber.StatusConflict, "redemption code expired"},
		{"already used", service.ErrAlreadyUsed, fiber.StatusConflict, "coupon already used"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRedemptionService{
				redeemFn: func(ctx context.Context, storeID, code string, now time.Time) (*model.RedemptionResult, error) {
					return nil, tc.err
				},
			}
			app := newRedemptionApp(svc)

			resp, body := doJSON(t, app, "POST", "/api/stores/store_001/coupons/verify",
				map[string]any{"code": "0427"})

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			require.NotNil(t, body)
			assert.Equal(t, tc.wantError, body["error"])
		})
	}
}
