// Package fill writes one form field at a time through a driver.Session.
package fill

import (
	"context"
	"fmt"
	"time"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/mask"
	"github.com/kuitang/dms-e2e/internal/obs"
)

// DateMode selects how a date field is filled.
type DateMode string

const (
	// DateModeDirect types DDMMYYYY and lets the field mask insert dots.
	DateModeDirect DateMode = "direct"
	// DateModePicker opens the calendar popup and clicks the day cell.
	DateModePicker DateMode = "picker"
)

// ParseDateMode validates a mode name.
func ParseDateMode(s string) (DateMode, error) {
	switch DateMode(s) {
	case DateModeDirect, DateModePicker:
		return DateMode(s), nil
	default:
		return "", errs.New(errs.InvalidArgument, fmt.Sprintf("unknown date mode %q (want direct or picker)", s))
	}
}

// DefaultDayCells matches the enabled day cells of the calendar popup.
var DefaultDayCells = driver.ByXPath("//table[@class='table-condensed']//tbody//td[@class='datepicker-day']")

// Pacer blocks until the next browser action may run.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Options tune every fill call.
type Options struct {
	// WaitTimeout bounds how long a field may take to become interactable.
	WaitTimeout time.Duration
	DateMode    DateMode
	// StrictPicker turns a calendar miss into an errs.PickerMiss error
	// instead of a logged no-op.
	StrictPicker bool
	// DayCells overrides DefaultDayCells.
	DayCells driver.Locator
	Pacer    Pacer
}

func (o Options) waitTimeout() time.Duration {
	if o.WaitTimeout <= 0 {
		return 10 * time.Second
	}
	return o.WaitTimeout
}

func (o Options) dayCells() driver.Locator {
	if o.DayCells.Query == "" {
		return DefaultDayCells
	}
	return o.DayCells
}

func (o Options) pace(ctx context.Context) error {
	if o.Pacer == nil {
		return nil
	}
	return o.Pacer.Wait(ctx)
}

// Text waits for the field to be interactable and types value into it.
func Text(ctx context.Context, s driver.Session, loc driver.Locator, value string, opts Options) (driver.Element, error) {
	el, err := s.WaitClickable(ctx, loc, opts.waitTimeout())
	if err != nil {
		return nil, err
	}
	if err := opts.pace(ctx); err != nil {
		return nil, err
	}
	if err := el.SendKeys(ctx, value); err != nil {
		return nil, fmt.Errorf("type into %s: %w", loc, err)
	}
	obs.From(ctx).Debug("field_filled", "pkg", "fill", "locator", loc.String(), "chars", len([]rune(value)))
	return el, nil
}

// Select chooses the option of a select element by its visible label.
func Select(ctx context.Context, s driver.Session, loc driver.Locator, label string, opts Options) (driver.Element, error) {
	el, err := s.Find(ctx, loc, opts.waitTimeout())
	if err != nil {
		return nil, err
	}
	if err := opts.pace(ctx); err != nil {
		return nil, err
	}
	if err := el.SelectByVisibleText(ctx, label); err != nil {
		return nil, fmt.Errorf("select %q in %s: %w", label, loc, err)
	}
	obs.From(ctx).Debug("option_selected", "pkg", "fill", "locator", loc.String(), "label", label)
	return el, nil
}

// Toggle clicks a checkbox once.
func Toggle(ctx context.Context, s driver.Session, loc driver.Locator, opts Options) (driver.Element, error) {
	el, err := s.WaitClickable(ctx, loc, opts.waitTimeout())
	if err != nil {
		return nil, err
	}
	if err := opts.pace(ctx); err != nil {
		return nil, err
	}
	if err := el.Click(ctx); err != nil {
		return nil, fmt.Errorf("toggle %s: %w", loc, err)
	}
	return el, nil
}

// Date fills a date field with target (DD.MM.YYYY) using opts.DateMode.
func Date(ctx context.Context, s driver.Session, loc driver.Locator, target string, opts Options) (driver.Element, error) {
	switch opts.DateMode {
	case DateModePicker:
		return pickDate(ctx, s, loc, target, opts)
	case DateModeDirect, "":
		digits, err := mask.DateDirectEntry(target)
		if err != nil {
			return nil, err
		}
		return Text(ctx, s, loc, digits, opts)
	default:
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("unknown date mode %q", opts.DateMode))
	}
}

func pickDate(ctx context.Context, s driver.Session, loc driver.Locator, target string, opts Options) (driver.Element, error) {
	day, err := mask.DayToken(target)
	if err != nil {
		return nil, err
	}

	el, err := s.WaitClickable(ctx, loc, opts.waitTimeout())
	if err != nil {
		return nil, err
	}
	if err := opts.pace(ctx); err != nil {
		return nil, err
	}
	if err := el.Click(ctx); err != nil {
		return nil, fmt.Errorf("open date picker %s: %w", loc, err)
	}

	cells, err := s.FindAll(ctx, opts.dayCells(), opts.waitTimeout())
	if err != nil {
		return nil, fmt.Errorf("list calendar days: %w", err)
	}
	for _, cell := range cells {
		label, err := cell.Text(ctx)
		if err != nil {
			return nil, fmt.Errorf("read calendar day: %w", err)
		}
		if label != day {
			continue
		}
		if err := opts.pace(ctx); err != nil {
			return nil, err
		}
		if err := cell.Click(ctx); err != nil {
			return nil, fmt.Errorf("click calendar day %s: %w", day, err)
		}
		return el, nil
	}

	if opts.StrictPicker {
		return nil, errs.New(errs.PickerMiss, fmt.Sprintf("no enabled calendar day %q among %d cells", day, len(cells)))
	}
	obs.From(ctx).Warn("calendar_day_missing", "pkg", "fill", "day", day, "cells", len(cells))
	return el, nil
}
