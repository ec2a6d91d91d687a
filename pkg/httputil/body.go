package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mitchellh/mapstructure"

	apperrors "github.com/jwalitptl/orders-api/pkg/errors"
)

// DataField is the multipart field that carries the JSON payload
const DataField = "data"

const (
	codeParse   = "parse_error"
	codeInvalid = "invalid"
)

const (
	msgIncorrectType = "Incorrect type."
	msgNotInteger    = "A valid integer is required."
)

// ReadBody returns the request payload as a map. A multipart form with a
// "data" field yields the decoded JSON of that field with every uploaded
// file merged in by field name; JSON fields win on collision. Any other
// request is read as a JSON object. An empty body yields an empty map.
func ReadBody(c *gin.Context) (map[string]interface{}, error) {
	if strings.HasPrefix(c.ContentType(), gin.MIMEMultipartPOSTForm) {
		return readMultipart(c)
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if tooLarge := bodyTooLarge(err); tooLarge != nil {
			return nil, tooLarge
		}
		return nil, apperrors.ValidationMessage(codeParse, fmt.Sprintf("Could not read request body: %v", err))
	}
	return decodeObject(raw)
}

func readMultipart(c *gin.Context) (map[string]interface{}, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if tooLarge := bodyTooLarge(err); tooLarge != nil {
			return nil, tooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, apperrors.ValidationMessage(codeParse, "Multipart form parse error.")
		}
		return nil, apperrors.ValidationMessage(codeParse, fmt.Sprintf("Multipart form parse error - %v", err))
	}

	data := make(map[string]interface{})
	vals, ok := form.Value[DataField]
	if !ok || len(vals) == 0 {
		for key, v := range form.Value {
			if len(v) > 0 {
				data[key] = v[len(v)-1]
			}
		}
	}
	for key, files := range form.File {
		if len(files) > 0 {
			data[key] = files[0]
		}
	}
	if !ok || len(vals) == 0 {
		return data, nil
	}

	payload, err := decodeObject([]byte(vals[0]))
	if err != nil {
		return nil, err
	}
	for k, v := range payload {
		data[k] = v
	}
	return data, nil
}

func decodeObject(raw []byte) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if len(strings.TrimSpace(string(raw))) == 0 {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, apperrors.ValidationMessage(codeParse, fmt.Sprintf("JSON parse error - %v", err))
	}
	if dec.More() {
		return nil, apperrors.ValidationMessage(codeParse, "JSON parse error - unexpected data after the object")
	}
	return data, nil
}

// bodyTooLarge reports a body cut off by http.MaxBytesReader.
func bodyTooLarge(err error) *apperrors.AppError {
	var maxErr *http.MaxBytesError
	if !errors.As(err, &maxErr) {
		return nil
	}
	return apperrors.TooLarge(fmt.Sprintf("Request body exceeds %d bytes.", maxErr.Limit), err)
}

// integral accepts numbers such as 30.0 or 3.5e1 that carry no fraction.
func integral(n json.Number) (int64, bool) {
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func isInteger(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// Decode copies the payload into dst, a pointer to a write schema struct
// whose fields carry json tags. Unknown keys are ignored; a value that
// cannot be converted to its field type is reported against that key.
func Decode(payload map[string]interface{}, dst interface{}) error {
	errs := apperrors.FieldErrors{}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		notInteger := false
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           dst,
			// mapstructure flattens hook errors to text, so the hook flags them here.
			DecodeHook: func(_, to reflect.Type, data interface{}) (interface{}, error) {
				n, ok := data.(json.Number)
				if !ok || !isInteger(to) {
					return data, nil
				}
				if _, err := n.Int64(); err == nil {
					return data, nil
				}
				if i, ok := integral(n); ok {
					return json.Number(strconv.FormatInt(i, 10)), nil
				}
				notInteger = true
				return nil, fmt.Errorf("%s is not an integer", n)
			},
		})
		if err != nil {
			return fmt.Errorf("failed to build decoder: %w", err)
		}
		if err := dec.Decode(map[string]interface{}{key: payload[key]}); err != nil {
			if notInteger {
				errs.Add(key, codeInvalid, msgNotInteger)
			} else {
				errs.Add(key, codeInvalid, msgIncorrectType)
			}
		}
	}

	if len(errs) > 0 {
		return apperrors.Validation(errs)
	}
	return nil
}

// BindBody reads the request payload and decodes it into dst.
func BindBody(c *gin.Context, dst interface{}) error {
	payload, err := ReadBody(c)
	if err != nil {
		return err
	}
	return Decode(payload, dst)
}
