package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator envuelve go-playground/validator con mensajes legibles.
type Validator struct {
	validate *validator.Validate
}

// NewValidator crea un validador que nombra los campos por su clave YAML.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate valida un struct según sus tags.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return v.formatValidationError(err)
	}
	return nil
}

// formatValidationError convierte los errores del validador en un mensaje por campo.
func (v *Validator) formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, fmt.Sprintf(
			"field '%s' failed validation: %s (value: '%v')",
			strings.TrimPrefix(e.Namespace(), "Config."),
			tagWithParam(e),
			e.Value(),
		))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}

func tagWithParam(e validator.FieldError) string {
	if e.Param() == "" {
		return e.Tag()
	}
	return e.Tag() + "=" + e.Param()
}

// ValidateConfig valida la configuración completa.
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
