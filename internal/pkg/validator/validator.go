package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"cabinbook/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// report json field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("duration_type", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDurationType(fl.Field().String())
		return err == nil
	})
}

// Validate checks struct tags and returns a field to failed-tag map, or nil.
func Validate(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = e.Tag()
	}
	return out
}
