package seed

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("seedrole", roleValidation)
}

// roleValidation only allows members of the fixed role enumeration.
func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

// Validate checks the entry against the seed invariants: required fields,
// address and password shape, a known role, and a non-empty schoolId for every
// role except system-admin.
func (u User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return &ValidationError{ID: u.ID, Err: err}
	}
	return nil
}
