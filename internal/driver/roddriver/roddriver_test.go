package roddriver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
)

func TestLaunch_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Launcher{}.Launch(ctx, driver.DefaultLaunchOptions())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "rod", Launcher{}.Name())
}

func TestElementWrap_ClassifiesDeadlines(t *testing.T) {
	t.Parallel()

	e := &element{desc: driver.ByName("Email")}
	require.NoError(t, e.wrap("click", nil))

	err := e.wrap("click", fmt.Errorf("cdp: %w", context.DeadlineExceeded))
	require.Equal(t, errs.ConditionTimeout, errs.CodeOf(err))
	require.Contains(t, err.Error(), "click name=Email")

	err = e.wrap("click", errors.New("node detached"))
	require.Equal(t, errs.Internal, errs.CodeOf(err))
}

func TestExactLabel_MatchesWholeOptionText(t *testing.T) {
	t.Parallel()

	re := regexp.MustCompile(exactLabel("Москва"))
	require.True(t, re.MatchString("Москва"))
	require.False(t, re.MatchString("Новая Москва"))
	require.False(t, re.MatchString("Москва и область"))

	re = regexp.MustCompile(exactLabel("г. Москва (ЦАО)"))
	require.True(t, re.MatchString("г. Москва (ЦАО)"))
	require.False(t, re.MatchString("г! Москва (ЦАО)"))
}
