package validation

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"delivery_api/pkg/apperrors"

	"github.com/go-playground/validator/v10"
)

// TagName matches the tag gin's binding engine reads, so one set of struct
// tags serves both request binding and direct service calls.
const TagName = "binding"

var zipCodePattern = regexp.MustCompile(`^\d{5}-?\d{3}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName(TagName)
	Configure(v)
	return v
}

// Configure registers the custom tags and json field naming on v. It is
// applied to the package validator and to gin's binding engine.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("zipcode", func(fl validator.FieldLevel) bool {
		return zipCodePattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("trimmedlen", func(fl validator.FieldLevel) bool {
		bounds := strings.SplitN(fl.Param(), "-", 2)
		if len(bounds) != 2 {
			return false
		}
		lo, errLo := strconv.Atoi(bounds[0])
		hi, errHi := strconv.Atoi(bounds[1])
		if errLo != nil || errHi != nil {
			return false
		}
		n := utf8.RuneCountInString(strings.TrimSpace(fl.Field().String()))
		return n >= lo && n <= hi
	})
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

// Struct validates s against its binding tags and reports every failing
// field at once.
func Struct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		if appErr, ok := Translate(err); ok {
			return appErr
		}
		return apperrors.NewValidationError(err.Error())
	}
	return nil
}

// Translate turns validator field errors into a VALIDATION_FAILED error
// whose details map each json field path to its problem.
func Translate(err error) (*apperrors.AppError, bool) {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return nil, false
	}

	appErr := apperrors.NewValidationError("")
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		path := fieldPath(fe)
		if _, seen := appErr.Details[path]; seen {
			continue
		}
		appErr.WithDetail(path, describe(fe))
		fields = append(fields, path)
	}
	sort.Strings(fields)
	appErr.Message = "invalid fields: " + strings.Join(fields, ", ")
	return appErr, true
}

// fieldPath drops the root struct name from the namespace, so
// CartSubmission.items[0].quantity becomes items[0].quantity.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "zipcode":
		return "must look like 12345-678"
	case "oneof":
		return "must be one of " + fe.Param()
	case "trimmedlen":
		return "must be between " + strings.Replace(fe.Param(), "-", " and ", 1) + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "alpha":
		return "must contain letters only"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " entries"
		}
		return "must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	}
	return "is invalid"
}
