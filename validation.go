package sceneloader

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxTemplateNameLen = 255

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// validatorInstance returns the shared validator with the custom rules used
// by templates, configuration entries and settings.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("template_name", func(fl validator.FieldLevel) bool {
			return isValidTemplateName(fl.Field().String())
		})
		_ = validate.RegisterValidation("log_level", func(fl validator.FieldLevel) bool {
			_, ok := parseLevel(fl.Field().String())
			return ok
		})
	})
	return validate
}

// isValidTemplateName accepts any printable name of at most
// maxTemplateNameLen runes with no surrounding whitespace.
func isValidTemplateName(name string) bool {
	if name == "" || name != strings.TrimSpace(name) {
		return false
	}
	if utf8.RuneCountInString(name) > maxTemplateNameLen {
		return false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
