package driver

import (
	"context"
	"errors"

	"github.com/kuitang/dms-e2e/internal/errs"
)

// NotFound builds the error a backend returns when loc matched nothing in time.
func NotFound(loc Locator, cause error) error {
	return errs.Wrap(errs.ElementNotFound, "element not found: "+loc.String(), cause)
}

// Timeout builds the error a backend returns when an explicit wait expired.
func Timeout(condition string, loc Locator, cause error) error {
	return errs.Wrap(errs.ConditionTimeout, "timed out waiting for "+condition+": "+loc.String(), cause)
}

// IsDeadline reports whether err is a context deadline.
func IsDeadline(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
