package api

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/warp/leave-engine/generic"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError is one entry of INVALID_INPUT details.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// decodeBody reads a JSON body into dst and runs its validate tags.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return generic.Validation("invalid JSON body: %v", err)
	}
	return mapValidationError(validate.Struct(dst))
}

func mapValidationError(err error) error {
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return generic.Validation("invalid input")
	}

	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, FieldError{Field: e.Field(), Rule: e.Tag()})
	}

	first := errs[0]
	var appErr *generic.AppError
	switch first.Tag() {
	case "required":
		appErr = generic.Validation("%s is required", first.Field())
	case "oneof":
		appErr = generic.Validation("%s must be one of: %s", first.Field(), first.Param())
	default:
		appErr = generic.Validation("%s is invalid", first.Field())
	}
	return appErr.WithDetails(fields)
}
