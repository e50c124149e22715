package validator

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidWindow is returned when an issuance window is rejected.
var ErrInvalidWindow = errors.New("invalid issuance window")

// ValidateWindow rejects windows whose end is not strictly after the start.
func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end %s is not after start %s",
			ErrInvalidWindow, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return nil
}

// EnsureMinimumGap corrects an end that is less than minGap after the start,
// returning the effective end and whether a correction was applied. Callers
// must surface the correction to the user rather than absorb it silently.
func EnsureMinimumGap(start, end time.Time, minGap time.Duration) (time.Time, bool) {
	if end.Before(start.Add(minGap)) {
		return start.Add(minGap), true
	}
	return end, false
}

// ValidateStart rejects starts that lie in the past beyond the grace
// tolerance. adminOverride allows back-dated windows.
func ValidateStart(start, now time.Time, grace time.Duration, adminOverride bool) error {
	if adminOverride {
		return nil
	}
	if start.Before(now.Add(-grace)) {
		return fmt.Errorf("%w: start %s is in the past", ErrInvalidWindow, start.Format(time.RFC3339))
	}
	return nil
}
