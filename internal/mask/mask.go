// Package mask holds the display rules the application form applies to raw
// input: the Russian phone mask and the DD.MM.YYYY date mask.
package mask

import (
	"regexp"
	"strconv"

	"github.com/kuitang/dms-e2e/internal/errs"
)

var (
	phonePattern     = regexp.MustCompile(`^(\d{3})(\d{3})(\d{2})(\d{2})$`)
	dateDigitPattern = regexp.MustCompile(`^(\d{2})(\d{2})(\d{4})$`)
	datePattern      = regexp.MustCompile(`^(\d{2})\.(\d{2})\.(\d{4})$`)
)

// Phone formats exactly ten ASCII digits as "+7 (XXX) XXX-XX-XX".
// Any other input is rejected; the form defines no mask for it.
func Phone(raw string) (string, error) {
	if !phonePattern.MatchString(raw) {
		return "", errs.New(errs.InvalidArgument, "phone must be exactly 10 digits, got "+strconv.Quote(raw))
	}
	return phonePattern.ReplaceAllString(raw, "+7 ($1) $2-$3-$4"), nil
}

// DateDisplay turns the eight digits typed into a date field ("24072020")
// into the value the field shows afterwards ("24.07.2020").
func DateDisplay(digits string) (string, error) {
	if !dateDigitPattern.MatchString(digits) {
		return "", errs.New(errs.InvalidArgument, "date entry must be 8 digits DDMMYYYY, got "+strconv.Quote(digits))
	}
	return dateDigitPattern.ReplaceAllString(digits, "$1.$2.$3"), nil
}

// DateDirectEntry returns the digits to type for a DD.MM.YYYY target.
func DateDirectEntry(target string) (string, error) {
	if !datePattern.MatchString(target) {
		return "", errs.New(errs.InvalidArgument, "date must be DD.MM.YYYY, got "+strconv.Quote(target))
	}
	return datePattern.ReplaceAllString(target, "$1$2$3"), nil
}

// DayToken is the calendar cell label for a DD.MM.YYYY target: its first two
// characters.
func DayToken(target string) (string, error) {
	if !datePattern.MatchString(target) {
		return "", errs.New(errs.InvalidArgument, "date must be DD.MM.YYYY, got "+strconv.Quote(target))
	}
	return target[:2], nil
}
