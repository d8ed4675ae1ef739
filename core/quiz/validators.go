package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/mathinsight/core"
)

var (
	optionTag  = "option"
	optionText = "{0} must be A, B, C, or D"

	deadlineTag  = "deadline"
	deadlineText = "{0} must be formatted as YYYY-MM-DDTHH:MM, YYYY-MM-DD HH:MM or RFC 3339"

	futureTag  = "future"
	futureText = "{0} must be in the future"
)

// InitValidators registers the quiz validators on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(optionTag, optionValidation)
	core.RegisterCustomTranslation(validate, translator, optionTag, optionText)

	_ = validate.RegisterValidation(deadlineTag, deadlineValidation)
	core.RegisterCustomTranslation(validate, translator, deadlineTag, deadlineText)

	_ = validate.RegisterValidation(futureTag, futureValidation)
	core.RegisterCustomTranslation(validate, translator, futureTag, futureText)
}

// optionValidation only allows the letters A to D.
func optionValidation(fl validator.FieldLevel) bool {
	return Option(fl.Field().String()).Valid()
}

// deadlineValidation checks that the string is a deadline ParseDeadline understands.
func deadlineValidation(fl validator.FieldLevel) bool {
	_, err := ParseDeadline(fl.Field().String())
	return err == nil
}

// futureValidation checks that the deadline string is after now.
// Unparseable values pass: `deadline` reports those.
func futureValidation(fl validator.FieldLevel) bool {
	t, err := ParseDeadline(fl.Field().String())
	if err != nil {
		return true
	}
	return t.After(nowFunc())
}
