package rainlog

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrIDRequired           = errors.New("id is required")
	ErrDateRequired         = errors.New("date is required")
	ErrInvalidDate          = errors.New("date must be YYYY-MM-DD")
	ErrMeasurementRequired  = errors.New("measurement is required")
	ErrInvalidMeasurement   = errors.New("measurement must be a number")
	ErrNegativeMeasurement  = errors.New("measurement must be non-negative")
	ErrMeasurementPrecision = errors.New("measurement must have at most 2 decimals")
	ErrLocationRequired     = errors.New("location is required")
	ErrInvalidYear          = errors.New("year must be 1970 or later")
	ErrInvalidMonth         = errors.New("month must be between 1 and 12")
)

// fieldRules maps "<StructField>.<tag>" to the sentinel reported for it.
var fieldRules = map[string]error{
	"ID.required":           ErrIDRequired,
	"Date.required":         ErrDateRequired,
	"Date.isodate":          ErrInvalidDate,
	"Measurement.gte":       ErrNegativeMeasurement,
	"Measurement.decimals2": ErrMeasurementPrecision,
	"Location.required":     ErrLocationRequired,
	"Year.gte":              ErrInvalidYear,
	"Month.gte":             ErrInvalidMonth,
	"Month.lte":             ErrInvalidMonth,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return IsDate(fl.Field().String())
	})
	_ = v.RegisterValidation("decimals2", func(fl validator.FieldLevel) bool {
		return hasAtMostTwoDecimals(fl.Field().Float())
	})

	return v
}

// ValidationError lists every rule an input broke. errors.Is matches each
// of the wrapped sentinels.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is one broken rule.
type FieldError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Errors[0].Err.Error()
	default:
		msgs := make([]string, len(e.Errors))
		for i, fe := range e.Errors {
			msgs[i] = fe.Err.Error()
		}
		return "validation failed: " + strings.Join(msgs, "; ")
	}
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, fe := range e.Errors {
		errs[i] = fe.Err
	}
	return errs
}

// Validate checks one of the request types of this package.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		sentinel, ok := fieldRules[fe.StructField()+"."+fe.Tag()]
		if !ok {
			sentinel = fmt.Errorf("%s failed %q", fe.Field(), fe.Tag())
		}
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Err: sentinel})
	}
	return out
}

// ParseMeasurement parses a measurement typed by a user. The text must be
// a non-negative number with at most two decimals.
func ParseMeasurement(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrMeasurementRequired
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMeasurement, s)
	}
	if v < 0 {
		return 0, ErrNegativeMeasurement
	}
	if _, frac, ok := strings.Cut(s, "."); ok && len(frac) > 2 {
		return 0, ErrMeasurementPrecision
	}
	return v, nil
}

// IsDate reports whether s starts with a valid YYYY-MM-DD date. A time
// part after the date is allowed.
func IsDate(s string) bool {
	if len(s) < len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s[:len(DateLayout)])
	return err == nil
}

func hasAtMostTwoDecimals(v float64) bool {
	scaled := v * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}
