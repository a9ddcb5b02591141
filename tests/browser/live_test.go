package browser

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/dms-e2e/internal/config"
	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/driver/pwdriver"
	"github.com/kuitang/dms-e2e/internal/driver/roddriver"
	"github.com/kuitang/dms-e2e/internal/workflow"
)

// TestDMSFlow_Live runs the check against the public site with the
// configured defaults. It needs network access and is opt-in.
func TestDMSFlow_Live(t *testing.T) {
	if os.Getenv("DMS_LIVE") != "1" {
		t.Skip("set DMS_LIVE=1 to run against the public site")
	}
	cfg, err := config.LoadConfig(config.Flags{})
	require.NoError(t, err)

	var l driver.Launcher = pwdriver.Launcher{}
	if cfg.Driver == config.DriverRod {
		l = roddriver.Launcher{}
	}
	RequireBrowser(t, l)

	r := &workflow.Runner{
		Launcher: l,
		Launch:   cfg.LaunchOptions(),
		BaseURL:  cfg.BaseURL,
		Site:     workflow.DefaultSite(),
		Data:     workflow.DefaultTestData(),
		Fill:     cfg.FillOptions(),
	}
	res, err := r.Run(context.Background())
	require.NoError(t, err, "last state %s", res.Last())
	require.Contains(t, res.States, workflow.StateVerified)
}
