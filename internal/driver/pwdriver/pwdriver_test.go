package pwdriver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/dms-e2e/internal/driver"
)

func TestSelector(t *testing.T) {
	t.Parallel()

	require.Equal(t, `css=[name="FirstName"]`, selector(driver.ByName("FirstName")))
	require.Equal(t, "css=#button-m", selector(driver.ByCSS("#button-m")))
	require.Equal(t, "xpath=//input[@class='checkbox']", selector(driver.ByXPath("//input[@class='checkbox']")))
}

func TestBudget_ClampsToContext(t *testing.T) {
	t.Parallel()

	require.Equal(t, 10*time.Second, budget(context.Background(), 10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.LessOrEqual(t, budget(ctx, 10*time.Second), time.Second)

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	require.Equal(t, time.Millisecond, budget(expired, 10*time.Second))
}

func TestLaunch_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Launcher{}.Launch(ctx, driver.DefaultLaunchOptions())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, "playwright", Launcher{}.Name())
}
