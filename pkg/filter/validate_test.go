package filter

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

func testSpec() *Spec {
	return NewSpec().
		Text("customer").
		Range("amount", TypeNumber).
		Range("date_created", TypeDate).
		Exact("deleted", TypeBool).
		Exact("id", TypeInteger)
}

func TestFromQuery(t *testing.T) {
	q := url.Values{
		"filter_customer": {"a", "acme"},
		"page":            {"2"},
		"filter_":         {"x"},
	}
	raw := FromQuery(q, "filter_")
	assert.Equal(t, map[string]string{"customer": "acme", "": "x"}, raw)
}

func TestValidateCoercesTypes(t *testing.T) {
	values, err := testSpec().Validate(map[string]string{
		"customer":         "Acme",
		"amount_min":       "10",
		"amount_max":       "50.5",
		"date_created_min": "2024-01-02",
		"deleted":          "false",
		"id":               "7",
	})
	require.NoError(t, err)
	require.Len(t, values, 6)

	// declaration order
	names := make([]string, 0, len(values))
	for _, v := range values {
		names = append(names, v.Field.Name)
	}
	assert.Equal(t, []string{"customer", "amount_min", "amount_max", "date_created_min", "deleted", "id"}, names)

	v, _ := values.Get("amount_max")
	assert.Equal(t, 50.5, v)
	v, _ = values.Get("date_created_min")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), v)
	v, ok := values.Get("deleted")
	assert.True(t, ok)
	assert.Equal(t, false, v)
	v, _ = values.Get("id")
	assert.Equal(t, int64(7), v)
}

func TestValidateDropsEmptyValues(t *testing.T) {
	values, err := testSpec().Validate(map[string]string{"customer": "", "amount_min": ""})
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]string
		field string
		code  string
	}{
		{"unknown key", map[string]string{"colour": "red"}, "colour", CodeUnknown},
		{"unknown key with empty value", map[string]string{"colour": ""}, "colour", CodeUnknown},
		{"bad number", map[string]string{"amount_min": "ten"}, "amount_min", CodeInvalid},
		{"bad integer", map[string]string{"id": "1.5"}, "id", CodeInvalid},
		{"bad date", map[string]string{"date_created_max": "yesterday"}, "date_created_max", CodeInvalid},
		{"bad bool", map[string]string{"deleted": "maybe"}, "deleted", CodeInvalidChoice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := testSpec().Validate(tt.raw)
			require.Error(t, err)
			assert.Nil(t, values)

			appErr := apperrors.Classify(err)
			assert.Equal(t, apperrors.KindValidation, appErr.Kind)

			details, ok := appErr.Details.(apperrors.FieldErrors)
			require.True(t, ok)
			require.Len(t, details[tt.field], 1)
			assert.Equal(t, tt.code, details[tt.field][0].Code)
		})
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	_, err := testSpec().Validate(map[string]string{"colour": "red", "amount_min": "x", "customer": "ok"})
	require.Error(t, err)

	details := apperrors.Classify(err).Details.(apperrors.FieldErrors)
	assert.Len(t, details, 2)
	assert.Contains(t, details, "colour")
	assert.Contains(t, details, "amount_min")
}

func TestSpecRejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() { NewSpec().Text("a").Text("a") })
	assert.Panics(t, func() { NewSpec().Text("amount_min").Range("amount", TypeNumber) })
	assert.Panics(t, func() { NewSpec().Add(Field{}) })
}

func TestRangeDeclaresBounds(t *testing.T) {
	s := NewSpec().Range("price", TypeNumber)

	lo, ok := s.Field("price_min")
	require.True(t, ok)
	assert.Equal(t, BoundLower, lo.Bound)
	assert.Equal(t, "price", lo.TargetName())

	hi, ok := s.Field("price_max")
	require.True(t, ok)
	assert.Equal(t, BoundUpper, hi.Bound)

	_, ok = s.Field("price")
	assert.False(t, ok)
}
