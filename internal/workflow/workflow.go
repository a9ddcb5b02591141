// Package workflow runs the DMS application check: it opens the product page
// through the site menu, fills the application form, reads every field back,
// submits, and expects the invalid-email message.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kuitang/dms-e2e/internal/artifacts"
	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/fill"
	"github.com/kuitang/dms-e2e/internal/obs"
	"github.com/kuitang/dms-e2e/internal/ratelimit"
)

// State is a step of the check. States are reached strictly in order.
type State string

const (
	StateStart               State = "Start"
	StateNavigated           State = "Navigated"
	StateMenuOpened          State = "MenuOpened"
	StateProductPageOpen     State = "ProductPageOpen"
	StateApplicationFormOpen State = "ApplicationFormOpen"
	StateFieldsFilled        State = "FieldsFilled"
	StateSubmitted           State = "Submitted"
	StateVerified            State = "Verified"
	StateEnd                 State = "End"
)

// sourcePollInterval is how often the page source is re-read while waiting
// for the application form to render.
const sourcePollInterval = 100 * time.Millisecond

// Runner owns one browser session per Run.
type Runner struct {
	Launcher driver.Launcher
	Launch   driver.LaunchOptions
	BaseURL  string
	Site     Site
	Data     TestData
	Fill     fill.Options

	// Pacer, when set, spaces out browser actions per host.
	Pacer *ratelimit.Pacer
	// Artifacts, when set, receives a screenshot and page source on failure.
	Artifacts artifacts.Store
}

// Result describes a finished run.
type Result struct {
	RunID        string
	States       []State
	Observations []Observation
	Artifacts    []string
}

// Last returns the last state reached.
func (r Result) Last() State {
	if len(r.States) == 0 {
		return ""
	}
	return r.States[len(r.States)-1]
}

type run struct {
	r      *Runner
	sess   driver.Session
	opts   fill.Options
	result *Result
}

// Run executes the check once. The session is released on every path,
// including panics in the driver.
func (r *Runner) Run(ctx context.Context) (res Result, err error) {
	res.RunID = uuid.NewString()
	ctx = obs.WithRun(ctx, res.RunID, r.Launcher.Name())
	log := obs.From(ctx).With("pkg", "workflow")

	specs, err := BuildFields(r.Site, r.Data)
	if err != nil {
		return res, err
	}

	res.States = append(res.States, StateStart)
	sess, err := r.Launcher.Launch(ctx, r.Launch)
	if err != nil {
		return res, errs.Wrap(errs.Unavailable, "launch "+r.Launcher.Name()+" browser", err)
	}

	start := time.Now()
	defer func() {
		if err != nil {
			res.Artifacts = artifacts.Capture(ctx, r.Artifacts, sess, res.RunID)
		}
		if qerr := sess.Quit(); qerr != nil {
			log.Warn("session_quit_failed", "error", qerr)
		}
		res.States = append(res.States, StateEnd)
		if err != nil {
			log.Error("run_failed", "state", string(res.Last()), "code", string(errs.CodeOf(err)), "error", err, "dur_ms", time.Since(start).Milliseconds())
			return
		}
		log.Info("run_passed", "dur_ms", time.Since(start).Milliseconds())
	}()

	opts := r.Fill
	if r.Pacer != nil {
		hp := r.Pacer.ForURL(r.BaseURL)
		opts.Pacer = hp
		log.Debug("pacing_enabled", "host", hp.Host())
	}
	w := &run{r: r, sess: sess, opts: opts, result: &res}
	err = w.execute(ctx, specs)
	return res, err
}

func (w *run) reach(ctx context.Context, s State) context.Context {
	w.result.States = append(w.result.States, s)
	ctx = obs.WithState(ctx, string(s))
	obs.From(ctx).Info("state_reached", "pkg", "workflow", "url", w.sess.URL())
	return ctx
}

func (w *run) waitTimeout() time.Duration {
	if w.opts.WaitTimeout <= 0 {
		return 10 * time.Second
	}
	return w.opts.WaitTimeout
}

func (w *run) pace(ctx context.Context) error {
	if w.opts.Pacer == nil {
		return nil
	}
	return w.opts.Pacer.Wait(ctx)
}

func (w *run) click(ctx context.Context, loc driver.Locator) error {
	el, err := w.sess.WaitClickable(ctx, loc, w.waitTimeout())
	if err != nil {
		return err
	}
	if err := w.pace(ctx); err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return fmt.Errorf("click %s: %w", loc, err)
	}
	return nil
}

func (w *run) execute(ctx context.Context, specs []FieldSpec) error {
	site := w.r.Site

	if err := w.pace(ctx); err != nil {
		return err
	}
	if err := w.sess.Navigate(ctx, w.r.BaseURL); err != nil {
		return fmt.Errorf("open %s: %w", w.r.BaseURL, err)
	}
	ctx = w.reach(ctx, StateNavigated)

	if err := w.click(ctx, site.MainMenu); err != nil {
		return fmt.Errorf("open main menu: %w", err)
	}
	ctx = w.reach(ctx, StateMenuOpened)

	if err := w.click(ctx, site.DMSLink); err != nil {
		return fmt.Errorf("open DMS page: %w", err)
	}
	title, err := w.sess.WaitVisible(ctx, site.ProductTitle, w.waitTimeout())
	if err != nil {
		return fmt.Errorf("DMS page title: %w", err)
	}
	titleText, err := title.Text(ctx)
	if err != nil {
		return fmt.Errorf("read DMS page title: %w", err)
	}
	if !strings.Contains(titleText, site.ProductTitleText) {
		return errs.Mismatch("product title", "text containing "+site.ProductTitleText, titleText)
	}
	ctx = w.reach(ctx, StateProductPageOpen)

	if err := w.click(ctx, site.SendApplication); err != nil {
		return fmt.Errorf("open application form: %w", err)
	}
	if err := w.waitForSource(ctx, site.FormTitleText); err != nil {
		return err
	}
	ctx = w.reach(ctx, StateApplicationFormOpen)

	form, err := FillForm(ctx, w.sess, specs, w.opts)
	if err != nil {
		return err
	}
	ctx = w.reach(ctx, StateFieldsFilled)

	observed, err := form.Verify(ctx)
	w.result.Observations = observed
	if err != nil {
		return err
	}

	if err := w.click(ctx, site.Submit); err != nil {
		return fmt.Errorf("submit application: %w", err)
	}
	ctx = w.reach(ctx, StateSubmitted)

	if _, err := w.sess.WaitVisible(ctx, site.EmailValidation, w.waitTimeout()); err != nil {
		return fmt.Errorf("invalid email accepted without validation message: %w", err)
	}
	w.reach(ctx, StateVerified)
	return nil
}

// waitForSource polls the page markup until it contains want anywhere.
func (w *run) waitForSource(ctx context.Context, want string) error {
	deadline := time.Now().Add(w.waitTimeout())
	var last string
	for {
		src, err := w.sess.PageSource(ctx)
		if err != nil {
			return fmt.Errorf("read page source: %w", err)
		}
		if strings.Contains(src, want) {
			return nil
		}
		last = src
		if time.Now().After(deadline) {
			return errs.New(errs.AssertionMismatch, fmt.Sprintf("page source does not contain %q (%d bytes read)", want, len(last)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sourcePollInterval):
		}
	}
}
