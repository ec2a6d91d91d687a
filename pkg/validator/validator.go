package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(obj interface{}) error
	ValidatePartial(obj interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type fieldRule struct {
	code    string
	message string
}

// rules maps a validator tag onto an error code and a message. %s is the tag param.
var rules = map[string]fieldRule{
	"required": {"required", "This field is required."},
	"max":      {"max_length", "Ensure this field has no more than %s characters."},
	"min":      {"min_length", "Ensure this field has at least %s characters."},
	"gte":      {"min_value", "Ensure this value is greater than or equal to %s."},
	"lte":      {"max_value", "Ensure this value is less than or equal to %s."},
	"gt":       {"min_value", "Ensure this value is greater than %s."},
	"numeric":  {"invalid", "A valid number is required."},
	"email":    {"invalid", "Enter a valid email address."},
	"oneof":    {"invalid_choice", "Select one of: %s."},
	"notblank": {"blank", "This field may not be blank."},
	"decimal":  {"invalid", "Ensure that there are no more than %s digits (total:decimal places)."},
}

type validatorImpl struct {
	v *validator.Validate
}

var std = New()

func New() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", notBlank)
	_ = v.RegisterValidation("decimal", decimal)
	return &validatorImpl{v: v}
}

// Validate runs every struct tag on obj.
func (v *validatorImpl) Validate(obj interface{}) error {
	return toFieldErrors(v.v.Struct(obj))
}

// ValidatePartial only checks pointer fields that are set on obj, so a
// partial update is not rejected for the fields it leaves out.
func (v *validatorImpl) ValidatePartial(obj interface{}) error {
	fields := SetFields(obj)
	if len(fields) == 0 {
		return nil
	}
	return toFieldErrors(v.v.StructPartial(obj, fields...))
}

func (v *validatorImpl) ValidateField(field string, value interface{}, rules ...string) error {
	err := v.v.Var(value, strings.Join(rules, ","))
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}
	out := apperrors.FieldErrors{}
	for _, e := range verrs {
		r := describe(e)
		out.Add(field, r.code, r.message)
	}
	return out
}

func Validate(obj interface{}) error        { return std.Validate(obj) }
func ValidatePartial(obj interface{}) error { return std.ValidatePartial(obj) }

// Var checks a single value against a tag expression such as "numeric".
func Var(value interface{}, tag string) error {
	return std.ValidateField("value", value, tag)
}

// SetFields returns the Go names of the non-nil pointer fields of a struct.
func SetFields(obj interface{}) []string {
	rv := reflect.ValueOf(obj)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var names []string
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if rt.Field(i).PkgPath != "" {
			continue
		}
		if f.Kind() == reflect.Ptr && !f.IsNil() {
			names = append(names, rt.Field(i).Name)
		}
	}
	return names
}

func toFieldErrors(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return err
	}

	out := apperrors.FieldErrors{}
	for _, e := range verrs {
		r := describe(e)
		out.Add(e.Field(), r.code, r.message)
	}
	return out
}

func describe(e validator.FieldError) fieldRule {
	r, ok := rules[e.Tag()]
	if !ok {
		return fieldRule{code: "invalid", message: fmt.Sprintf("Failed on the '%s' rule.", e.Tag())}
	}
	if strings.Contains(r.message, "%s") {
		r.message = fmt.Sprintf(r.message, e.Param())
	}
	return r
}

func notBlank(fl validator.FieldLevel) bool {
	f := fl.Field()
	if f.Kind() != reflect.String {
		return true
	}
	return strings.TrimSpace(f.String()) != ""
}

// decimal checks a numeric string against "digits:places", e.g. decimal=10:2
// accepts at most 8 digits before the point and 2 after it.
func decimal(fl validator.FieldLevel) bool {
	digits, places, ok := strings.Cut(fl.Param(), ":")
	if !ok {
		return false
	}
	maxDigits, err := strconv.Atoi(digits)
	if err != nil {
		return false
	}
	maxPlaces, err := strconv.Atoi(places)
	if err != nil {
		return false
	}

	s := strings.TrimPrefix(fl.Field().String(), "-")
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || !allDigits(whole) || !allDigits(frac) {
		return false
	}
	whole = strings.TrimLeft(whole, "0")
	return len(frac) <= maxPlaces && len(whole) <= maxDigits-maxPlaces
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
