package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// requestError is a malformed or invalid request body. Fields is set when the
// body decoded but failed struct validation.
type requestError struct {
	Fields map[string]string
	err    error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return "request validation failed"
}

func (e *requestError) Unwrap() error { return e.err }

// decodeJSON decodes the request body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return &requestError{err: fmt.Errorf("decode body: %w", err)}
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &requestError{err: errors.New("decode body: trailing data")}
	}
	return validateStruct(dst)
}

func validateStruct(dst any) error {
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &requestError{err: err}
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fieldKey(fe.Namespace())] = fieldMessage(fe.Tag())
		}
		return &requestError{Fields: fields}
	}
	return nil
}

// fieldKey drops the struct type name from a validator namespace so keys
// read like the JSON path, e.g. "rule.start_date" or "slots[0].end".
func fieldKey(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "datetime":
		return "has an invalid format"
	case "oneof":
		return "is not an allowed value"
	case "min", "max", "gte", "lte":
		return "is out of range"
	default:
		return "is invalid"
	}
}

// writeRequestError renders a decode or validation failure.
func (r responder) writeRequestError(w http.ResponseWriter, req *http.Request, err error) {
	var rErr *requestError
	if errors.As(err, &rErr) && len(rErr.Fields) > 0 {
		r.writeValidation(req.Context(), w, rErr.Fields)
		return
	}
	r.loggerFor(req.Context()).WarnContext(req.Context(), "invalid request body", "error", err)
	r.writeJSON(req.Context(), w, http.StatusBadRequest, errorResponse{Message: errBadRequestBody.Error()})
}
