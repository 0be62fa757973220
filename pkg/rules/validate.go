package rules

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// ruleValidator returns the shared validator with the regexp tag registered.
func ruleValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterValidation("regexp", func(fl validator.FieldLevel) bool {
			_, err := regexp.Compile(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks a rule's fields and compiles its patterns. Invalid regexes
// are rejected here, at load time, so matching never sees them.
func (r *LinkRule) Validate() error {
	if err := ruleValidator().Struct(r); err != nil {
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return r.Compile()
}

// ValidateAll validates every rule in the list and reports the first failure
// with its position.
func ValidateAll(list []LinkRule) error {
	for i := range list {
		if err := list[i].Validate(); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
