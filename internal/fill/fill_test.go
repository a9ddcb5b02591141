package fill

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/driver/drivertest"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/mask"
)

const formURL = "http://fixture/form"

var contactDate = driver.ByName("ContactDate")

// dateMask mimics the form: keep digits, insert dots after DD and MM.
func dateMask(value string) string {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 8 {
		d = d[:8]
	}
	switch {
	case len(d) > 4:
		return d[:2] + "." + d[2:4] + "." + d[4:]
	case len(d) > 2:
		return d[:2] + "." + d[2:]
	default:
		return d
	}
}

// newDateForm builds a form whose date input opens a July 2020 calendar
// listing the given days.
func newDateForm(days ...int) (*drivertest.Session, *drivertest.Element) {
	site := drivertest.NewSite()
	page := site.AddPage(formURL)

	input := drivertest.NewInput("ContactDate")
	input.Mask = dateMask
	page.Add(contactDate, input)

	var cells []*drivertest.Element
	for _, d := range days {
		label := fmt.Sprintf("%02d", d)
		cell := &drivertest.Element{Name: "day-" + label, Text: label, Enabled: true}
		cell.OnClick = func(*drivertest.Session) {
			input.Value = label + ".07.2020"
		}
		cells = append(cells, cell)
	}
	input.OnClick = func(*drivertest.Session) {
		for _, c := range cells {
			c.Visible = true
		}
	}
	page.Add(DefaultDayCells, cells...)

	return drivertest.NewSession(site, formURL), input
}

func TestText_TypesIntoInteractableField(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	site := drivertest.NewSite()
	input := drivertest.NewInput("LastName")
	site.AddPage(formURL).Add(driver.ByName("LastName"), input)
	s := drivertest.NewSession(site, formURL)

	el, err := Text(ctx, s, driver.ByName("LastName"), "Эйнштейн", Options{})
	require.NoError(t, err)

	got, err := el.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "Эйнштейн", got)
}

func TestText_HiddenFieldTimesOut(t *testing.T) {
	t.Parallel()

	site := drivertest.NewSite()
	input := drivertest.NewInput("Comment")
	input.Visible = false
	site.AddPage(formURL).Add(driver.ByName("Comment"), input)
	s := drivertest.NewSession(site, formURL)

	_, err := Text(context.Background(), s, driver.ByName("Comment"), "x", Options{})
	require.Equal(t, errs.ConditionTimeout, errs.CodeOf(err))
	require.Empty(t, input.Value)
}

func TestText_PhoneMaskAppliedByPage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	phoneLoc := driver.ByXPath("//label[text()='Телефон']/following-sibling::input")
	site := drivertest.NewSite()
	input := drivertest.NewInput("Phone")
	input.Mask = func(v string) string {
		var digits strings.Builder
		for _, r := range v {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		d := strings.TrimPrefix(digits.String(), "7")
		if len(d) < 10 {
			return d
		}
		masked, _ := mask.Phone(d[:10])
		return masked
	}
	site.AddPage(formURL).Add(phoneLoc, input)
	s := drivertest.NewSession(site, formURL)

	el, err := Text(ctx, s, phoneLoc, "9259252525", Options{})
	require.NoError(t, err)
	got, err := el.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "+7 (925) 925-25-25", got)
}

func TestSelect_ByVisibleText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	site := drivertest.NewSite()
	region := drivertest.NewSelect("Region", "-- выберите --", "Москва", "Магаданская область")
	site.AddPage(formURL).Add(driver.ByName("Region"), region)
	s := drivertest.NewSession(site, formURL)

	el, err := Select(ctx, s, driver.ByName("Region"), "Магаданская область", Options{})
	require.NoError(t, err)
	got, err := el.SelectedText(ctx)
	require.NoError(t, err)
	require.Equal(t, "Магаданская область", got)

	_, err = Select(ctx, s, driver.ByName("Region"), "Атлантида", Options{})
	require.Equal(t, errs.ElementNotFound, errs.CodeOf(err))
}

func TestToggle_FlipsCheckbox(t *testing.T) {
	t.Parallel()

	site := drivertest.NewSite()
	box := &drivertest.Element{Name: "agree", Visible: true, Enabled: true, Checkbox: true}
	site.AddPage(formURL).Add(driver.ByXPath("//input[@class='checkbox']"), box)
	s := drivertest.NewSession(site, formURL)

	_, err := Toggle(context.Background(), s, driver.ByXPath("//input[@class='checkbox']"), Options{})
	require.NoError(t, err)
	require.True(t, box.Checked)
}

func TestDate_DirectEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, input := newDateForm()
	_, err := Date(ctx, s, contactDate, "24.07.2020", Options{DateMode: DateModeDirect})
	require.NoError(t, err)
	require.Equal(t, "24.07.2020", input.Value)
	require.Contains(t, s.Actions(), "keys:ContactDate=24072020")
}

func TestDate_PickerSelectsMatchingDay(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, input := newDateForm(22, 23, 24, 25)
	el, err := Date(ctx, s, contactDate, "24.07.2020", Options{DateMode: DateModePicker})
	require.NoError(t, err)

	got, err := el.Value(ctx)
	require.NoError(t, err)
	require.Equal(t, "24.07.2020", got)
	require.Equal(t, "24.07.2020", input.Value)
	require.Contains(t, s.Actions(), "click:day-24")
	require.NotContains(t, s.Actions(), "click:day-25")
}

func TestDate_PickerWaitsForCalendarRenderedAfterClick(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	site := drivertest.NewSite()
	page := site.AddPage(formURL)
	input := drivertest.NewInput("ContactDate")
	page.Add(contactDate, input)

	input.OnClick = func(*drivertest.Session) {
		var cells []*drivertest.Element
		for _, label := range []string{"23", "24", "25"} {
			cell := &drivertest.Element{Name: "day-" + label, Text: label, Visible: true, Enabled: true}
			cell.OnClick = func(*drivertest.Session) {
				input.Value = label + ".07.2020"
			}
			cells = append(cells, cell)
		}
		page.AddAfter(50*time.Millisecond, DefaultDayCells, cells...)
	}
	s := drivertest.NewSession(site, formURL)

	_, err := Date(ctx, s, contactDate, "24.07.2020", Options{DateMode: DateModePicker, StrictPicker: true, WaitTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, "24.07.2020", input.Value)
	require.Contains(t, s.Actions(), "click:day-24")
}

func TestDate_PickerGivesUpWhenCalendarNeverRenders(t *testing.T) {
	t.Parallel()

	site := drivertest.NewSite()
	page := site.AddPage(formURL)
	input := drivertest.NewInput("ContactDate")
	page.Add(contactDate, input)
	input.OnClick = func(*drivertest.Session) {
		page.AddAfter(time.Hour, DefaultDayCells, &drivertest.Element{Name: "day-24", Text: "24", Visible: true, Enabled: true})
	}
	s := drivertest.NewSession(site, formURL)

	start := time.Now()
	_, err := Date(context.Background(), s, contactDate, "24.07.2020", Options{DateMode: DateModePicker, StrictPicker: true, WaitTimeout: 100 * time.Millisecond})
	require.Equal(t, errs.PickerMiss, errs.CodeOf(err))
	require.Less(t, time.Since(start), 5*time.Second)
	require.Empty(t, input.Value)
}

func TestDate_PickerMissIsSilentByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, input := newDateForm(1, 2, 3)
	_, err := Date(ctx, s, contactDate, "24.07.2020", Options{DateMode: DateModePicker})
	require.NoError(t, err)
	require.Empty(t, input.Value)
}

func TestDate_PickerMissFailsWhenStrict(t *testing.T) {
	t.Parallel()

	s, _ := newDateForm(1, 2, 3)
	_, err := Date(context.Background(), s, contactDate, "24.07.2020", Options{DateMode: DateModePicker, StrictPicker: true})
	require.Equal(t, errs.PickerMiss, errs.CodeOf(err))
}

func TestDate_RejectsMalformedTarget(t *testing.T) {
	t.Parallel()

	s, _ := newDateForm(24)
	for _, mode := range []DateMode{DateModeDirect, DateModePicker} {
		_, err := Date(context.Background(), s, contactDate, "2020-07-24", Options{DateMode: mode})
		require.Equal(t, errs.InvalidArgument, errs.CodeOf(err), "mode %s", mode)
	}
}

func TestParseDateMode(t *testing.T) {
	t.Parallel()

	m, err := ParseDateMode("picker")
	require.NoError(t, err)
	require.Equal(t, DateModePicker, m)

	_, err = ParseDateMode("calendar")
	require.Equal(t, errs.InvalidArgument, errs.CodeOf(err))
}

type countingPacer struct{ n int }

func (p *countingPacer) Wait(context.Context) error {
	p.n++
	return nil
}

func TestOptions_PacerRunsBeforeEachAction(t *testing.T) {
	t.Parallel()

	s, _ := newDateForm(24)
	pacer := &countingPacer{}
	_, err := Date(context.Background(), s, contactDate, "24.07.2020", Options{DateMode: DateModePicker, Pacer: pacer})
	require.NoError(t, err)
	require.Equal(t, 2, pacer.n, "open picker + click day")
}
