// Package roddriver implements driver.Launcher on go-rod, talking to Chrome
// over the DevTools protocol without a separate driver process.
package roddriver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/obs"
)

// Launcher starts a local Chrome, downloading one if none is installed.
type Launcher struct {
	// Bin overrides the browser binary.
	Bin string
}

func (Launcher) Name() string { return "rod" }

func (l Launcher) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ln := launcher.New().Context(ctx).Headless(opts.Headless)
	if l.Bin != "" {
		ln = ln.Bin(l.Bin)
	}
	u, err := ln.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		ln.Kill()
		ln.Cleanup()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		ln.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}
	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.WindowWidth,
		Height:            opts.WindowHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		browser.Close()
		ln.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	obs.From(ctx).Debug("browser_launched", "pkg", "roddriver", "headless", opts.Headless, "control_url", u)
	return &Session{launcher: ln, browser: browser, page: page, loadTimeout: opts.PageLoadTimeout}, nil
}

// Session is one rod page in its own Chrome process.
type Session struct {
	launcher    *launcher.Launcher
	browser     *rod.Browser
	page        *rod.Page
	loadTimeout time.Duration

	quitOnce sync.Once
	quitErr  error
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.loadTimeout
	if timeout <= 0 {
		timeout = driver.DefaultLaunchOptions().PageLoadTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(cctx)
	if err := p.Navigate(url); err != nil {
		return errs.Wrap(errs.Unavailable, "navigate to "+url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return errs.Wrap(errs.Unavailable, "load "+url, err)
	}
	return nil
}

// find waits for loc to attach within timeout. The returned element is
// detached from the wait's context.
func (s *Session) find(ctx context.Context, loc driver.Locator, timeout time.Duration) (*rod.Element, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := s.page.Context(cctx)
	var (
		el  *rod.Element
		err error
	)
	if css, ok := loc.CSS(); ok {
		el, err = p.Element(css)
	} else {
		el, err = p.ElementX(loc.Query)
	}
	if err != nil {
		return nil, err
	}
	return el.Context(context.Background()), nil
}

func (s *Session) Find(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	el, err := s.find(ctx, loc, timeout)
	if err != nil {
		return nil, driver.NotFound(loc, err)
	}
	return &element{el: el, desc: loc}, nil
}

func (s *Session) FindAll(ctx context.Context, loc driver.Locator, timeout time.Duration) ([]driver.Element, error) {
	if _, err := s.find(ctx, loc, timeout); err != nil {
		if ctx.Err() == nil && driver.IsDeadline(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wait for %s: %w", loc, err)
	}
	p := s.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if css, ok := loc.CSS(); ok {
		els, err = p.Elements(css)
	} else {
		els, err = p.ElementsX(loc.Query)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", loc, err)
	}
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &element{el: el.Context(context.Background()), desc: loc})
	}
	return out, nil
}

// waitUntil finds loc and then runs cond on it, all within one timeout.
func (s *Session) waitUntil(ctx context.Context, loc driver.Locator, timeout time.Duration, condition string, cond func(*rod.Element) error) (driver.Element, error) {
	deadline := time.Now().Add(timeout)
	el, err := s.find(ctx, loc, timeout)
	if err != nil {
		return nil, driver.Timeout(condition, loc, err)
	}
	cctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	if err := cond(el.Context(cctx)); err != nil {
		return nil, driver.Timeout(condition, loc, err)
	}
	return &element{el: el, desc: loc}, nil
}

func (s *Session) WaitVisible(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	return s.waitUntil(ctx, loc, timeout, "visibility", func(el *rod.Element) error {
		return el.WaitVisible()
	})
}

func (s *Session) WaitClickable(ctx context.Context, loc driver.Locator, timeout time.Duration) (driver.Element, error) {
	return s.waitUntil(ctx, loc, timeout, "clickability", func(el *rod.Element) error {
		if err := el.WaitVisible(); err != nil {
			return err
		}
		return el.WaitEnabled()
	})
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	return s.page.Context(ctx).Screenshot(true, nil)
}

func (s *Session) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Quit closes Chrome and removes its profile directory. Later calls return
// the first result.
func (s *Session) Quit() error {
	s.quitOnce.Do(func() {
		if err := s.browser.Close(); err != nil {
			s.quitErr = fmt.Errorf("close chrome: %w", err)
			s.launcher.Kill()
		}
		s.launcher.Cleanup()
	})
	return s.quitErr
}

type element struct {
	el   *rod.Element
	desc driver.Locator
}

func (e *element) wrap(action string, err error) error {
	if err == nil {
		return nil
	}
	if driver.IsDeadline(err) {
		return errs.Wrap(errs.ConditionTimeout, action+" "+e.desc.String(), err)
	}
	return errs.Wrap(errs.Internal, action+" "+e.desc.String(), err)
}

func (e *element) Click(ctx context.Context) error {
	return e.wrap("click", e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1))
}

// SendKeys inserts text one character at a time so input handlers run per
// keystroke.
func (e *element) SendKeys(ctx context.Context, text string) error {
	el := e.el.Context(ctx)
	for _, r := range text {
		if err := el.Input(string(r)); err != nil {
			return e.wrap("type into", err)
		}
	}
	return nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, error) {
	v, err := e.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", e.wrap("read attribute "+name+" of", err)
	}
	if v == nil {
		return "", nil
	}
	return *v, nil
}

func (e *element) Value(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Property("value")
	if err != nil {
		return "", e.wrap("read value of", err)
	}
	return v.String(), nil
}

func (e *element) Text(ctx context.Context) (string, error) {
	v, err := e.el.Context(ctx).Text()
	return strings.TrimSpace(v), e.wrap("read text of", err)
}

func (e *element) SelectByVisibleText(ctx context.Context, text string) error {
	err := e.el.Context(ctx).Select([]string{exactLabel(text)}, true, rod.SelectorTypeRegex)
	if err != nil {
		return errs.Wrap(errs.ElementNotFound, "no option "+text+" in "+e.desc.String(), err)
	}
	return nil
}

// exactLabel anchors text so only an option with exactly that label matches.
func exactLabel(text string) string {
	return "^" + regexp.QuoteMeta(text) + "$"
}

const selectedTextJS = `() => this.selectedIndex >= 0 ? this.options[this.selectedIndex].text : ""`

func (e *element) SelectedText(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(selectedTextJS)
	if err != nil {
		return "", e.wrap("read selection of", err)
	}
	return res.Value.String(), nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	v, err := e.el.Context(ctx).Visible()
	return v, e.wrap("check visibility of", err)
}

var (
	_ driver.Launcher = Launcher{}
	_ driver.Session  = (*Session)(nil)
	_ driver.Element  = (*element)(nil)
)
