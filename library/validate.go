package library

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// singleline values fit in one field of one stored line.
	_ = v.RegisterValidation("singleline", func(fl validator.FieldLevel) bool {
		return !strings.ContainsAny(fl.Field().String(), fieldSep+"\r\n")
	})
	return v
}

// check runs the struct tags of v and maps a failure onto ErrInvalid.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return errors.Wrapf(ErrInvalid, "%s failed %q", fe.Field(), fe.Tag())
		}
		return errors.Wrap(ErrInvalid, err.Error())
	}
	return nil
}
