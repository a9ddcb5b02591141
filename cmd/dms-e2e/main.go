// Command dms-e2e runs the DMS application check once against the insurer's
// site, or against the built-in replica with -fixture.
//
// Usage:
//
//	dms-e2e [-base-url URL] [-driver playwright|rod] [-headless true|false]
//	        [-date-mode direct|picker] [-strict-picker] [-fixture]
//
// Exit status is 0 when the check passes, 1 when it fails, 2 on a
// configuration error and 3 when no browser could be started.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/dms-e2e/internal/artifacts"
	"github.com/kuitang/dms-e2e/internal/config"
	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/driver/pwdriver"
	"github.com/kuitang/dms-e2e/internal/driver/roddriver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/fixturesite"
	"github.com/kuitang/dms-e2e/internal/obs"
	"github.com/kuitang/dms-e2e/internal/ratelimit"
	"github.com/kuitang/dms-e2e/internal/s3client"
	"github.com/kuitang/dms-e2e/internal/urlutil"
	"github.com/kuitang/dms-e2e/internal/workflow"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags, err := config.ParseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return errs.ExitCode(errs.InvalidArgument)
	}
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return errs.ExitCode(errs.InvalidArgument)
	}

	obs.Init()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Fixture {
		baseURL, shutdown, err := startFixture(ctx)
		if err != nil {
			fmt.Fprintln(stderr, "fixture site:", err)
			return errs.ExitCode(errs.Unavailable)
		}
		defer shutdown()
		cfg.BaseURL = baseURL
	}
	cfg.PrintStartupSummary(stdout)

	store, err := artifactStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "artifacts:", err)
		return errs.ExitCode(errs.Unavailable)
	}

	runner := &workflow.Runner{
		Launcher:  launcherFor(cfg.Driver),
		Launch:    cfg.LaunchOptions(),
		BaseURL:   cfg.BaseURL,
		Site:      workflow.DefaultSite(),
		Data:      workflow.DefaultTestData(),
		Fill:      cfg.FillOptions(),
		Pacer:     ratelimit.NewPacer(cfg.Pacing),
		Artifacts: store,
	}
	res, err := runner.Run(ctx)
	report(stdout, res)
	if err != nil {
		failure(stderr, cfg.Driver, res, err)
		return errs.ExitCode(errs.CodeOf(err))
	}
	fmt.Fprintf(stdout, "PASS run %s\n", res.RunID)
	return 0
}

func launcherFor(name string) driver.Launcher {
	if name == config.DriverRod {
		return roddriver.Launcher{}
	}
	return pwdriver.Launcher{}
}

// artifactStore returns nil when failure artifacts are off.
func artifactStore(ctx context.Context, cfg *config.Config) (artifacts.Store, error) {
	switch {
	case cfg.UseS3Artifacts():
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.AWSBucketName,
			UsePathStyle:    cfg.AWSEndpointS3 != "",
		})
		if err != nil {
			return nil, err
		}
		return artifacts.S3Store{Client: client, Prefix: cfg.ArtifactsPrefix}, nil
	case cfg.ArtifactsDir != "":
		return artifacts.FileStore{Dir: cfg.ArtifactsDir}, nil
	default:
		return nil, nil
	}
}

// startFixture serves the replica site on a loopback port.
func startFixture(ctx context.Context) (string, func(), error) {
	site, err := fixturesite.New()
	if err != nil {
		return "", nil, err
	}
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	srv := &http.Server{Handler: site.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			obs.From(ctx).Error("fixture_serve_failed", "pkg", "main", "error", err)
		}
	}()
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}
	return urlutil.Join("http://"+ln.Addr().String(), "/"), shutdown, nil
}

func lastReached(res workflow.Result) workflow.State {
	// The final state is always End; report the step before it.
	if len(res.States) >= 2 {
		return res.States[len(res.States)-2]
	}
	return res.Last()
}

// failure prints the coded message first and the full chain after it.
func failure(w io.Writer, driverName string, res workflow.Result, err error) {
	fmt.Fprintf(w, "FAIL run %s at %s [%s]: %s\n", res.RunID, lastReached(res), errs.CodeOf(err), errs.MessageOf(err))
	fmt.Fprintln(w, "  error:", err)
	if errs.Is(err, errs.Unavailable) {
		fmt.Fprintln(w, "  hint:", installHint(driverName))
	}
	for _, a := range res.Artifacts {
		fmt.Fprintln(w, "  artifact:", a)
	}
}

func installHint(driverName string) string {
	if driverName == config.DriverRod {
		return "rod downloads Chromium on first launch; check network access or point it at a local Chrome"
	}
	return "install the Playwright driver and Chromium: go run github.com/playwright-community/playwright-go/cmd/playwright install --with-deps chromium"
}

func report(w io.Writer, res workflow.Result) {
	for _, o := range res.Observations {
		mark := "ok"
		if o.Actual != o.Expected {
			mark = "MISMATCH"
		}
		fmt.Fprintf(w, "  %-12s %-9s %q\n", o.Field, mark, o.Actual)
	}
}
