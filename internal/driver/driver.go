// Package driver defines the browser boundary the workflow drives: locating
// elements, reading and writing their state, bounded waits, and session
// release. Backends live in sub-packages (pwdriver, roddriver); drivertest
// provides an in-memory fake.
package driver

import (
	"context"
	"time"
)

// Launcher starts a browser session.
type Launcher interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// LaunchOptions configures a new session.
type LaunchOptions struct {
	Headless        bool
	WindowWidth     int
	WindowHeight    int
	PageLoadTimeout time.Duration
}

// DefaultLaunchOptions mirror a maximized desktop window with a 10s page load.
func DefaultLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:        true,
		WindowWidth:     1920,
		WindowHeight:    1080,
		PageLoadTimeout: 10 * time.Second,
	}
}

// Session is one exclusively owned browser page. Every lookup takes its own
// timeout; there is no session-wide implicit wait.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Find returns the first element matching loc once it is attached to the
	// DOM, or an errs.ElementNotFound error after timeout.
	Find(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// FindAll waits up to timeout for a first match to attach and then
	// returns every element matching loc. It returns none, without error,
	// when nothing attaches in time.
	FindAll(ctx context.Context, loc Locator, timeout time.Duration) ([]Element, error)
	// WaitVisible waits for loc to be visible, failing with errs.ConditionTimeout.
	WaitVisible(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	// WaitClickable waits for loc to be visible and enabled, failing with
	// errs.ConditionTimeout.
	WaitClickable(ctx context.Context, loc Locator, timeout time.Duration) (Element, error)
	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	URL() string
	// Quit releases the browser. It is safe to call more than once.
	Quit() error
}

// Element is a located DOM node.
type Element interface {
	Click(ctx context.Context) error
	// SendKeys types text key by key so page-side masks run as they would
	// for a user.
	SendKeys(ctx context.Context, text string) error
	Attribute(ctx context.Context, name string) (string, error)
	// Value reads the live value property of an input, select or textarea.
	Value(ctx context.Context) (string, error)
	// Text is the element's text with surrounding whitespace trimmed.
	Text(ctx context.Context) (string, error)
	SelectByVisibleText(ctx context.Context, text string) error
	// SelectedText is the visible label of the first selected option.
	SelectedText(ctx context.Context) (string, error)
	Visible(ctx context.Context) (bool, error)
}
