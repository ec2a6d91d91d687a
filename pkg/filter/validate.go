package filter

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
	"github.com/jwalitptl/orders-api/pkg/validator"
)

// Validation error codes and messages
const (
	CodeUnknown       = "unknown_field"
	CodeInvalid       = "invalid"
	CodeInvalidChoice = "invalid_choice"

	msgUnknown = "Unknown filter field."
	msgNumber  = "Enter a number."
	msgInteger = "Enter a whole number."
	msgDate    = "Enter a valid date/time."
	msgBool    = "Select a valid choice. That choice is not one of the available choices."
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var boolLiterals = map[string]bool{
	"true":  true,
	"True":  true,
	"1":     true,
	"false": false,
	"False": false,
	"0":     false,
}

// Value is a validated, coerced filter value.
type Value struct {
	Field Field
	Value interface{}
}

// Values holds validated filter values in field declaration order.
type Values []Value

// Get returns the coerced value for a logical field name.
func (vs Values) Get(name string) (interface{}, bool) {
	for _, v := range vs {
		if v.Field.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// FromQuery collects the parameters carrying prefix, with the prefix stripped.
// Repeated keys keep their last value.
func FromQuery(q url.Values, prefix string) map[string]string {
	raw := make(map[string]string)
	for key, vals := range q {
		if len(vals) == 0 || !strings.HasPrefix(key, prefix) {
			continue
		}
		raw[strings.TrimPrefix(key, prefix)] = vals[len(vals)-1]
	}
	return raw
}

// Validate checks raw against the spec. Any undeclared key or malformed
// value fails the whole call with a field-keyed validation error. Empty
// values are dropped; a boolean false is kept.
func (s *Spec) Validate(raw map[string]string) (Values, error) {
	errs := apperrors.FieldErrors{}
	coerced := make(map[string]interface{}, len(raw))

	for name, rawValue := range raw {
		field, ok := s.Field(name)
		if !ok {
			errs.Add(name, CodeUnknown, msgUnknown)
			continue
		}
		if rawValue == "" {
			continue
		}

		value, code, msg := coerce(field.Type, rawValue)
		if code != "" {
			errs.Add(name, code, msg)
			continue
		}
		coerced[name] = value
	}

	if len(errs) > 0 {
		return nil, apperrors.Validation(errs)
	}

	values := make(Values, 0, len(coerced))
	for _, f := range s.fields {
		if v, ok := coerced[f.Name]; ok {
			values = append(values, Value{Field: f, Value: v})
		}
	}
	return values, nil
}

func coerce(t FieldType, raw string) (interface{}, string, string) {
	switch t {
	case TypeNumber:
		if err := validator.Var(raw, "numeric"); err != nil {
			return nil, CodeInvalid, msgNumber
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, CodeInvalid, msgNumber
		}
		return f, "", ""
	case TypeInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, CodeInvalid, msgInteger
		}
		return n, "", ""
	case TypeDate:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, "", ""
			}
		}
		return nil, CodeInvalid, msgDate
	case TypeBool:
		b, ok := boolLiterals[raw]
		if !ok {
			return nil, CodeInvalidChoice, msgBool
		}
		return b, "", ""
	default:
		return raw, "", ""
	}
}
