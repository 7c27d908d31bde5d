package waitlistform

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const emailTag = "waitlist_email"

// Each part excludes any Unicode whitespace (\p{Z}, \v, BOM) as well as '@'.
var emailPattern = regexp.MustCompile(`^[^\s\v\p{Z}\x{FEFF}@]+@[^\s\v\p{Z}\x{FEFF}@]+\.[^\s\v\p{Z}\x{FEFF}@]+$`)

// trimSpace strips Unicode whitespace and the byte order mark from both ends, leaving U+0085.
func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return r == '\uFEFF' || (r != '\u0085' && unicode.IsSpace(r))
	})
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation(emailTag, func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsValidEmail applies the form's email shape check to the trimmed value.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(trimSpace(email))
}

// validateFields returns the user-facing message for the first failing stage, or "".
// Required checks run over all fields before any format check.
func validateFields(v *validator.Validate, def Definition, fields Fields) string {
	data := make(map[string]interface{}, len(def.Fields))
	required := map[string]interface{}{}
	formats := map[string]interface{}{}

	for _, field := range def.Fields {
		data[field.Key] = trimSpace(fields.Get(field.Key))
		if field.Required {
			required[field.Key] = "required"
		}
		if field.Validate != "" {
			formats[field.Key] = field.Validate
		}
	}

	if errs := v.ValidateMap(data, required); len(errs) > 0 {
		return MessageMissingRequired
	}
	if errs := v.ValidateMap(data, formats); len(errs) > 0 {
		return MessageInvalidEmail
	}

	return ""
}
