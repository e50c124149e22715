package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/localdeals/coupon-engine/internal/model"
)

func testDefinition() *model.CouponDefinition {
	return &model.CouponDefinition{
		Status:        model.StatusActive,
		IssueStartsAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		IssueEndsAt:   time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC),
	}
}

func TestClassify_WindowBoundaries(t *testing.T) {
	def := testDefinition()

	testCases := []struct {
		name string
		now  time.Time
		want State
	}{
		{name: "before_start", now: def.IssueStartsAt.Add(-time.Second), want: Upcoming},
		{name: "at_start_inclusive", now: def.IssueStartsAt, want: Active},
		{name: "mid_window", now: def.IssueStartsAt.Add(24 * time.Hour), want: Active},
		{name: "at_end_inclusive", now: def.IssueEndsAt, want: Active},
		{name: "one_second_after_end", now: def.IssueEndsAt.Add(time.Second), want: Expired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(def, tc.now))
		})
	}
}

func TestClassify_StoppedOverridesWindow(t *testing.T) {
	def := testDefinition()
	def.Status = model.StatusStopped

	assert.Equal(t, Stopped, Classify(def, def.IssueStartsAt.Add(time.Hour)),
		"an owner stop wins even inside the window")
	assert.Equal(t, Stopped, Classify(def, def.IssueEndsAt.Add(time.Hour)),
		"an owner stop wins even after the window")
}

func TestIsLive(t *testing.T) {
	assert.True(t, IsLive(Upcoming))
	assert.True(t, IsLive(Active))
	assert.False(t, IsLive(Expired))
	assert.False(t, IsLive(Stopped))
}

func TestProgress_ZeroDenominator(t *testing.T) {
	p := UsageProgress(0, 0)

	assert.Equal(t, float64(0), p.Ratio(), "0/0 must be 0, not NaN")
	assert.Equal(t, "0 / 0", p.String())
}

func TestProgress_Ratio(t *testing.T) {
	p := UsageProgress(3, 12)

	assert.InDelta(t, 0.25, p.Ratio(), 1e-9)
	assert.Equal(t, "3 / 12", p.String())
}

func TestProgress_RatioClampedAtOne(t *testing.T) {
	p := Progress{Count: 15, Total: 10}

	assert.Equal(t, float64(1), p.Ratio())
}

func TestIssuanceProgress_Bounded(t *testing.T) {
	total := int64(100)

	p, bounded := IssuanceProgress(40, &total)

	assert.True(t, bounded)
	assert.Equal(t, "40 / 100", p.String())
	assert.InDelta(t, 0.4, p.Ratio(), 1e-9)
}

func TestIssuanceProgress_Unlimited(t *testing.T) {
	p, bounded := IssuanceProgress(40, nil)

	assert.False(t, bounded, "unlimited definitions have an indeterminate issuance bar")
	assert.Equal(t, float64(0), p.Ratio())
}
