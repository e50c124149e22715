// Package status derives the presentation-facing classification of a coupon
// definition from its stored state and the clock. Classification is pure:
// nothing here is persisted or scheduled.
package status

import (
	"fmt"
	"time"

	"github.com/localdeals/coupon-engine/internal/model"
)

// State classifies a coupon definition at a given instant.
type State string

const (
	Stopped  State = "STOPPED"
	Upcoming State = "UPCOMING"
	Active   State = "ACTIVE"
	Expired  State = "EXPIRED"
)

// Classify derives the state of a definition at the given instant. An owner
// stop always wins over the clock; the issuance window is inclusive at both
// ends.
func Classify(def *model.CouponDefinition, now time.Time) State {
	if def.Status == model.StatusStopped {
		return Stopped
	}
	if now.Before(def.IssueStartsAt) {
		return Upcoming
	}
	if now.After(def.IssueEndsAt) {
		return Expired
	}
	return Active
}

// IsLive reports whether a state belongs on the live tab (upcoming or
// active) rather than the ended tab (expired or stopped).
func IsLive(s State) bool {
	return s == Upcoming || s == Active
}

// Progress is a count/total pair backing a progress bar.
type Progress struct {
	Count int64 `json:"count"`
	Total int64 `json:"total"`
}

// Ratio returns Count/Total in [0,1]. An empty pair is 0, never NaN.
func (p Progress) Ratio() float64 {
	if p.Total <= 0 {
		return 0
	}
	r := float64(p.Count) / float64(p.Total)
	if r > 1 {
		r = 1
	}
	return r
}

// String renders the pair as "count / total".
func (p Progress) String() string {
	return fmt.Sprintf("%d / %d", p.Count, p.Total)
}

// IssuanceProgress builds the issued/total pair. The second return is false
// for unlimited definitions, whose issuance bar is indeterminate.
func IssuanceProgress(issued int64, total *int64) (Progress, bool) {
	if total == nil {
		return Progress{Count: issued}, false
	}
	return Progress{Count: issued, Total: *total}, true
}

// UsageProgress builds the used/issued pair.
func UsageProgress(used, issued int64) Progress {
	return Progress{Count: used, Total: issued}
}
