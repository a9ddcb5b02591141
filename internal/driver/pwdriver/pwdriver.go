// Package pwdriver implements driver.Launcher on Playwright's Chromium.
package pwdriver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/obs"
)

const enabledPollInterval = 50 * time.Millisecond

// Launcher starts Chromium through a Playwright driver process.
type Launcher struct {
	// RunOptions is passed to playwright.Run. Nil uses the installed driver.
	RunOptions *playwright.RunOptions
}

func (Launcher) Name() string { return "playwright" }

// Launch starts the Playwright driver, a browser and one page. On error
// everything started so far is stopped.
func (l Launcher) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var runOpts []*playwright.RunOptions
	if l.RunOptions != nil {
		runOpts = append(runOpts, l.RunOptions)
	}
	pw, err := playwright.Run(runOpts...)
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: opts.WindowWidth, Height: opts.WindowHeight},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if opts.PageLoadTimeout > 0 {
		page.SetDefaultNavigationTimeout(ms(opts.PageLoadTimeout))
	}

	obs.From(ctx).Debug("browser_launched", "pkg", "pwdriver", "headless", opts.Headless)
	return &Session{pw: pw, browser: browser, page: page, loadTimeout: opts.PageLoadTimeout}, nil
}

// Session is one Playwright page in its own browser.
type Session struct {
	pw          *playwright.Playwright
	browser     playwright.Browser
	page        playwright.Page
	loadTimeout time.Duration

	quitOnce sync.Once
	quitErr  error
}

func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// budget clamps timeout to what is left of ctx.
func budget(ctx context.Context, timeout time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	return timeout
}

func selector(loc driver.Locator) string {
	if css, ok := loc.CSS(); ok {
		return "css=" + css
	}
	return "xpath=" + loc.Query
}

func (s *Session) locate(loc driver.Locator) playwright.Locator {
	return s.page.Locator(selector(loc))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := s.loadTimeout
	if timeout <= 0 {
		timeout = driver.DefaultLaunchOptions().PageLoadTimeout
	}
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(ms(budget(ctx, timeout))),
	})
	if err != nil {
		return errs.Wrap(errs.Unavailable, "navigate to "+url, err)
	}
	return nil
}

func (s *Session) waitFor(ctx context.Context, loc driver.Locator, state *playwright.WaitForSelectorState, timeout time.Duration) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	first := s.locate(loc).First()
	err := first.WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: playwright.Float(ms(budget(ctx, timeout))),
	})
	return first, err
}

func (s *Session) Find(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	first, err := s.waitFor(ctx, loc, playwright.WaitForSelectorStateAttached, timeout)
	if err != nil {
		return nil, driver.NotFound(loc, err)
	}
	return &element{loc: first, desc: loc}, nil
}

func (s *Session) FindAll(ctx context.Context, loc driver.Locator, timeout time.Duration) ([]driver.Element, error) {
	_, err := s.waitFor(ctx, loc, playwright.WaitForSelectorStateAttached, timeout)
	if errors.Is(err, playwright.ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", loc, err)
	}
	all, err := s.locate(loc).All()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", loc, err)
	}
	out := make([]driver.Element, 0, len(all))
	for _, l := range all {
		out = append(out, &element{loc: l, desc: loc})
	}
	return out, nil
}

func (s *Session) WaitVisible(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	first, err := s.waitFor(ctx, loc, playwright.WaitForSelectorStateVisible, timeout)
	if err != nil {
		return nil, driver.Timeout("visibility", loc, err)
	}
	return &element{loc: first, desc: loc}, nil
}

func (s *Session) WaitClickable(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	deadline := time.Now().Add(budget(ctx, timeout))
	first, err := s.waitFor(ctx, loc, playwright.WaitForSelectorStateVisible, timeout)
	if err != nil {
		return nil, driver.Timeout("clickability", loc, err)
	}
	for {
		enabled, err := first.IsEnabled()
		if err != nil {
			return nil, driver.Timeout("clickability", loc, err)
		}
		if enabled {
			return &element{loc: first, desc: loc}, nil
		}
		if time.Now().After(deadline) {
			return nil, driver.Timeout("clickability", loc, errors.New("element stayed disabled"))
		}
		select {
		case <-ctx.Done():
			return nil, driver.Timeout("clickability", loc, ctx.Err())
		case <-time.After(enabledPollInterval):
		}
	}
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(true)})
}

func (s *Session) URL() string {
	return s.page.URL()
}

// Quit closes the browser and stops the driver process. Later calls return
// the first result.
func (s *Session) Quit() error {
	s.quitOnce.Do(func() {
		if err := s.browser.Close(); err != nil {
			s.quitErr = fmt.Errorf("close browser: %w", err)
		}
		if err := s.pw.Stop(); err != nil && s.quitErr == nil {
			s.quitErr = fmt.Errorf("stop playwright: %w", err)
		}
	})
	return s.quitErr
}

// element wraps a locator resolved to a single node.
type element struct {
	loc  playwright.Locator
	desc driver.Locator
}

func (e *element) wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.ConditionTimeout, action+" "+e.desc.String(), err)
	}
	return errs.Wrap(errs.Internal, action+" "+e.desc.String(), err)
}

func (e *element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.wrap("click", e.loc.Click())
}

func (e *element) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.wrap("type into", e.loc.PressSequentially(text))
}

func (e *element) Attribute(_ context.Context, name string) (string, error) {
	v, err := e.loc.GetAttribute(name)
	return v, e.wrap("read attribute "+name+" of", err)
}

func (e *element) Value(context.Context) (string, error) {
	v, err := e.loc.InputValue()
	return v, e.wrap("read value of", err)
}

func (e *element) Text(context.Context) (string, error) {
	v, err := e.loc.TextContent()
	return strings.TrimSpace(v), e.wrap("read text of", err)
}

func (e *element) SelectByVisibleText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{text}})
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Wrap(errs.ElementNotFound, "no option "+text+" in "+e.desc.String(), err)
	}
	return e.wrap("select "+text+" in", err)
}

const selectedTextJS = `el => el.selectedIndex >= 0 ? el.options[el.selectedIndex].text : ""`

func (e *element) SelectedText(context.Context) (string, error) {
	v, err := e.loc.Evaluate(selectedTextJS, nil)
	if err != nil {
		return "", e.wrap("read selection of", err)
	}
	text, _ := v.(string)
	return text, nil
}

func (e *element) Visible(context.Context) (bool, error) {
	v, err := e.loc.IsVisible()
	return v, e.wrap("check visibility of", err)
}

var (
	_ driver.Launcher = Launcher{}
	_ driver.Session  = (*Session)(nil)
	_ driver.Element  = (*element)(nil)
)
