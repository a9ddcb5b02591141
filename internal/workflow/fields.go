package workflow

import (
	"context"
	"fmt"

	"github.com/kuitang/dms-e2e/internal/driver"
	"github.com/kuitang/dms-e2e/internal/errs"
	"github.com/kuitang/dms-e2e/internal/fill"
	"github.com/kuitang/dms-e2e/internal/mask"
)

// Kind says how a field is filled and read back.
type Kind int

const (
	KindText Kind = iota + 1
	KindSelect
	KindPhone
	KindDate
	KindCheckbox
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindSelect:
		return "select"
	case KindPhone:
		return "phone"
	case KindDate:
		return "date"
	case KindCheckbox:
		return "checkbox"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldSpec is one form field: what to enter and what it must show after.
type FieldSpec struct {
	Name     string
	Locator  driver.Locator
	Kind     Kind
	Raw      string
	Expected string
}

// TestData is the synthetic applicant.
type TestData struct {
	FirstName   string
	MiddleName  string
	LastName    string
	Region      string
	Phone       string
	Email       string
	ContactDate string
	Comment     string
}

// DefaultTestData returns the fixed applicant. The email is malformed on
// purpose: submission must be refused by client-side validation.
func DefaultTestData() TestData {
	return TestData{
		FirstName:   "Альберт",
		MiddleName:  "Германович",
		LastName:    "Эйнштейн",
		Region:      "Магаданская область",
		Phone:       "9259252525",
		Email:       "qwertyqwerty",
		ContactDate: "24.07.2020",
		Comment:     "Black holes are where God divided by zero",
	}
}

// BuildFields returns the form fields in fill order with expected values
// computed from data.
func BuildFields(site Site, data TestData) ([]FieldSpec, error) {
	phone, err := mask.Phone(data.Phone)
	if err != nil {
		return nil, err
	}
	if _, err := mask.DayToken(data.ContactDate); err != nil {
		return nil, err
	}

	return []FieldSpec{
		{Name: "LastName", Locator: site.LastName, Kind: KindText, Raw: data.LastName, Expected: data.LastName},
		{Name: "FirstName", Locator: site.FirstName, Kind: KindText, Raw: data.FirstName, Expected: data.FirstName},
		{Name: "MiddleName", Locator: site.MiddleName, Kind: KindText, Raw: data.MiddleName, Expected: data.MiddleName},
		{Name: "Region", Locator: site.Region, Kind: KindSelect, Raw: data.Region, Expected: data.Region},
		{Name: "Phone", Locator: site.Phone, Kind: KindPhone, Raw: data.Phone, Expected: phone},
		{Name: "Email", Locator: site.Email, Kind: KindText, Raw: data.Email, Expected: data.Email},
		{Name: "ContactDate", Locator: site.ContactDate, Kind: KindDate, Raw: data.ContactDate, Expected: data.ContactDate},
		{Name: "Comment", Locator: site.Comment, Kind: KindText, Raw: data.Comment, Expected: data.Comment},
		{Name: "Consent", Locator: site.Consent, Kind: KindCheckbox},
	}, nil
}

// Observation is one read-back value.
type Observation struct {
	Field    string
	Expected string
	Actual   string
}

// Form is a filled form whose fields can be read back.
type Form struct {
	specs    []FieldSpec
	elements []driver.Element
}

// FillForm fills every field in order and stops at the first failure.
func FillForm(ctx context.Context, s driver.Session, specs []FieldSpec, opts fill.Options) (*Form, error) {
	form := &Form{specs: specs, elements: make([]driver.Element, len(specs))}
	for i, spec := range specs {
		var (
			el  driver.Element
			err error
		)
		switch spec.Kind {
		case KindText, KindPhone:
			el, err = fill.Text(ctx, s, spec.Locator, spec.Raw, opts)
		case KindSelect:
			el, err = fill.Select(ctx, s, spec.Locator, spec.Raw, opts)
		case KindDate:
			el, err = fill.Date(ctx, s, spec.Locator, spec.Raw, opts)
		case KindCheckbox:
			el, err = fill.Toggle(ctx, s, spec.Locator, opts)
		default:
			err = errs.New(errs.InvalidArgument, fmt.Sprintf("field %s has unknown kind %s", spec.Name, spec.Kind))
		}
		if err != nil {
			return nil, fmt.Errorf("fill %s: %w", spec.Name, err)
		}
		form.elements[i] = el
	}
	return form, nil
}

// Verify reads every valued field back and compares it with its expected
// value. The first mismatch aborts with errs.AssertionMismatch; the
// observations made up to and including it are returned.
func (f *Form) Verify(ctx context.Context) ([]Observation, error) {
	var out []Observation
	for i, spec := range f.specs {
		if spec.Kind == KindCheckbox {
			continue
		}
		el := f.elements[i]

		var (
			actual string
			err    error
		)
		if spec.Kind == KindSelect {
			actual, err = el.SelectedText(ctx)
		} else {
			actual, err = el.Value(ctx)
		}
		if err != nil {
			return out, fmt.Errorf("read back %s: %w", spec.Name, err)
		}

		out = append(out, Observation{Field: spec.Name, Expected: spec.Expected, Actual: actual})
		if actual != spec.Expected {
			return out, errs.Mismatch(spec.Name, spec.Expected, actual)
		}
	}
	return out, nil
}
