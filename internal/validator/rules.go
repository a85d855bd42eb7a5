package validator

import (
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var categoryPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	// 'image-category': the label that prefixes generated filenames
	mustRegister("image-category", validateImageCategory)

	// 'original-name': the client's file name, never a path
	mustRegister("original-name", validateOriginalName)
}

func validateImageCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return categoryPattern.MatchString(value)
}

func validateOriginalName(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if len(value) > 255 || strings.ContainsAny(value, `/\`) {
		return false
	}
	for _, r := range value {
		if unicode.IsControl(r) {
			return false
		}
	}
	return true
}
