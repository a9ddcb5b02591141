// Package drivertest provides an in-memory browser for tests of code that
// drives a driver.Session. Pages are built by hand; clicks run Go callbacks.
package drivertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
)

const pollInterval = 5 * time.Millisecond

// Site is a set of pages addressed by URL.
type Site struct {
	Pages map[string]*Page
}

// NewSite returns an empty site.
func NewSite() *Site {
	return &Site{Pages: make(map[string]*Page)}
}

// AddPage registers a page under url and returns it.
func (s *Site) AddPage(url string) *Page {
	p := &Page{URL: url, elements: make(map[driver.Locator][]*Element)}
	s.Pages[url] = p
	return p
}

// Page is one document of the fake site.
type Page struct {
	URL    string
	Source string

	elements map[driver.Locator][]*Element
}

// Add attaches elements under loc, in document order.
func (p *Page) Add(loc driver.Locator, els ...*Element) *Page {
	p.elements[loc] = append(p.elements[loc], els...)
	return p
}

// AddAfter attaches elements under loc once delay has passed, the way a
// script renders nodes some time after an event.
func (p *Page) AddAfter(delay time.Duration, loc driver.Locator, els ...*Element) *Page {
	at := time.Now().Add(delay)
	for _, el := range els {
		el.attachAt = at
	}
	return p.Add(loc, els...)
}

// Element is a fake DOM node. Zero values mean: hidden, disabled, empty.
type Element struct {
	Name     string
	Text     string
	Value    string
	Attrs    map[string]string
	Visible  bool
	Enabled  bool
	Checkbox bool
	Checked  bool
	Options  []string
	Selected int

	// Mask, when set, rewrites the value after every keystroke the way a
	// page-side input mask does.
	Mask func(value string) string
	// OnClick runs after the click is recorded.
	OnClick func(s *Session)

	attachAt time.Time
}

func (e *Element) attached(now time.Time) bool {
	return !now.Before(e.attachAt)
}

// NewInput returns a visible, enabled input.
func NewInput(name string) *Element {
	return &Element{Name: name, Visible: true, Enabled: true}
}

// NewLink returns a visible, enabled element with text that runs onClick.
func NewLink(text string, onClick func(s *Session)) *Element {
	return &Element{Name: text, Text: text, Visible: true, Enabled: true, OnClick: onClick}
}

// NewSelect returns a visible, enabled select with the given option labels.
func NewSelect(name string, options ...string) *Element {
	return &Element{Name: name, Visible: true, Enabled: true, Options: options, Selected: 0}
}

// Launcher hands out sessions over a Site.
type Launcher struct {
	Site     *Site
	StartURL string
	Err      error

	mu       sync.Mutex
	sessions []*Session
}

// Name implements driver.Launcher.
func (l *Launcher) Name() string { return "fake" }

// Launch implements driver.Launcher.
func (l *Launcher) Launch(_ context.Context, opts driver.LaunchOptions) (driver.Session, error) {
	if l.Err != nil {
		return nil, l.Err
	}
	s := &Session{site: l.Site, Options: opts}
	if l.StartURL != "" {
		s.current = l.Site.Pages[l.StartURL]
	}
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

// Sessions returns every session launched so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// Session is a fake driver.Session.
type Session struct {
	Options driver.LaunchOptions

	site    *Site
	current *Page
	quits   int
	actions []string
}

// NewSession opens a session directly on url.
func NewSession(site *Site, url string) *Session {
	return &Session{site: site, current: site.Pages[url]}
}

// Goto switches the current page without recording a navigation.
func (s *Session) Goto(url string) {
	s.current = s.site.Pages[url]
}

// Current returns the current page, or nil.
func (s *Session) Current() *Page { return s.current }

// Quits counts Quit calls.
func (s *Session) Quits() int { return s.quits }

// Actions lists recorded actions such as "click:name" or "keys:name=value".
func (s *Session) Actions() []string { return append([]string(nil), s.actions...) }

func (s *Session) record(format string, args ...any) {
	s.actions = append(s.actions, fmt.Sprintf(format, args...))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := s.site.Pages[url]
	if !ok {
		return errs.New(errs.Unavailable, "navigation failed: no page at "+url)
	}
	s.current = p
	s.record("navigate:%s", url)
	return nil
}

// lookup returns the elements under loc attached by now, and whether more
// are still due to attach.
func (s *Session) lookup(loc driver.Locator) (els []*Element, pending bool) {
	if s.current == nil {
		return nil, false
	}
	now := time.Now()
	for _, el := range s.current.elements[loc] {
		if el.attached(now) {
			els = append(els, el)
		} else {
			pending = true
		}
	}
	return els, pending
}

func (s *Session) Find(ctx context.Context, loc driver.Locator, _ time.Duration) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.NotFound(loc, err)
	}
	els, _ := s.lookup(loc)
	if len(els) == 0 {
		return nil, driver.NotFound(loc, nil)
	}
	return &handle{s: s, el: els[0]}, nil
}

// FindAll polls for elements added with AddAfter until timeout. It returns
// at once when nothing under loc is pending.
func (s *Session) FindAll(ctx context.Context, loc driver.Locator, timeout time.Duration) ([]driver.Element, error) {
	deadline := time.Now().Add(timeout)
	var els []*Element
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var pending bool
		els, pending = s.lookup(loc)
		if len(els) > 0 || !pending || !time.Now().Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(pollInterval):
		}
	}
	out := make([]driver.Element, 0, len(els))
	for _, el := range els {
		out = append(out, &handle{s: s, el: el})
	}
	return out, nil
}

func (s *Session) WaitVisible(ctx context.Context, loc driver.Locator, _ time.Duration) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.Timeout("visibility", loc, err)
	}
	els, _ := s.lookup(loc)
	for _, el := range els {
		if el.Visible {
			return &handle{s: s, el: el}, nil
		}
	}
	return nil, driver.Timeout("visibility", loc, nil)
}

func (s *Session) WaitClickable(ctx context.Context, loc driver.Locator, _ time.Duration) (driver.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, driver.Timeout("clickability", loc, err)
	}
	els, _ := s.lookup(loc)
	for _, el := range els {
		if el.Visible && el.Enabled {
			return &handle{s: s, el: el}, nil
		}
	}
	return nil, driver.Timeout("clickability", loc, nil)
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.current == nil {
		return "", nil
	}
	return s.current.Source, nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte("fake-png:" + s.URL()), nil
}

func (s *Session) URL() string {
	if s.current == nil {
		return "about:blank"
	}
	return s.current.URL
}

func (s *Session) Quit() error {
	s.quits++
	s.record("quit")
	return nil
}

type handle struct {
	s  *Session
	el *Element
}

func (h *handle) interactable(action string) error {
	if !h.el.Visible || !h.el.Enabled {
		return errs.New(errs.Internal, action+": element not interactable: "+h.el.Name)
	}
	return nil
}

func (h *handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.interactable("click"); err != nil {
		return err
	}
	if h.el.Checkbox {
		h.el.Checked = !h.el.Checked
	}
	h.s.record("click:%s", h.el.Name)
	if h.el.OnClick != nil {
		h.el.OnClick(h.s)
	}
	return nil
}

func (h *handle) SendKeys(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.interactable("send keys"); err != nil {
		return err
	}
	for _, r := range text {
		h.el.Value += string(r)
		if h.el.Mask != nil {
			h.el.Value = h.el.Mask(h.el.Value)
		}
	}
	h.s.record("keys:%s=%s", h.el.Name, text)
	return nil
}

func (h *handle) Attribute(_ context.Context, name string) (string, error) {
	if name == "value" {
		return h.el.Value, nil
	}
	return h.el.Attrs[name], nil
}

func (h *handle) Value(context.Context) (string, error) {
	if len(h.el.Options) > 0 {
		return h.el.Options[h.el.Selected], nil
	}
	return h.el.Value, nil
}

func (h *handle) Text(context.Context) (string, error) {
	return h.el.Text, nil
}

func (h *handle) SelectByVisibleText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, opt := range h.el.Options {
		if opt == text {
			h.el.Selected = i
			h.s.record("select:%s=%s", h.el.Name, text)
			return nil
		}
	}
	return errs.New(errs.ElementNotFound, "no option with visible text "+text+" in "+h.el.Name)
}

func (h *handle) SelectedText(context.Context) (string, error) {
	if len(h.el.Options) == 0 {
		return "", errs.New(errs.InvalidArgument, h.el.Name+" is not a select")
	}
	return h.el.Options[h.el.Selected], nil
}

func (h *handle) Visible(context.Context) (bool, error) {
	return h.el.Visible, nil
}

var (
	_ driver.Launcher = (*Launcher)(nil)
	_ driver.Session  = (*Session)(nil)
	_ driver.Element  = (*handle)(nil)
)
