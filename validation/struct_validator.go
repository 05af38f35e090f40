package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/colpipe/errors"
)

var (
	structValidator *validator.Validate
	initOnce        sync.Once
)

// tagMessages maps validator tags to message prefixes. Tags with a
// parameter get it appended.
var tagMessages = map[string]string{
	"required":    "is required",
	"required_if": "is required",
	"min":         "must be at least ",
	"max":         "must be at most ",
	"gte":         "must be greater than or equal to ",
	"lte":         "must be less than or equal to ",
	"uuid":        "must be a valid UUID",
	"oneof":       "must be one of: ",
}

func instance() *validator.Validate {
	initOnce.Do(func() {
		structValidator = validator.New(validator.WithRequiredStructEnabled())
		// Report configuration keys rather than Go field names.
		structValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				return toSnakeCase(fld.Name)
			}
			return name
		})
	})
	return structValidator
}

// Validate checks s against its `validate` struct tags and reports every
// failure as one INVALID_INPUT error keyed by configuration path, e.g.
// "process.grace_period: must be greater than or equal to 0".
func Validate(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Validation("validation failed").WithCause(err)
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(e.Namespace()), Message: message(e)})
	}
	return newValidationError(fields)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(e validator.FieldError) string {
	msg, ok := tagMessages[e.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + e.Param()
	}
	return msg
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
