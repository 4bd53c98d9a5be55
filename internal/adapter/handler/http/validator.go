package http

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/wekeepgrowing/billing-gateway/pkg/errors"
)

// RequestValidator plugs go-playground/validator into echo.
type RequestValidator struct {
	validate *validator.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *RequestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// bindAndValidate decodes the body into req and validates it. Failures come
// back as INVALID_ARGUMENT errors naming the offending fields.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return errors.NewAppError(errors.ErrInvalidArgument, "invalid request body", err).
			WithUserMessage("Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return errors.NewAppError(errors.ErrInvalidArgument, "request validation failed", err).
			WithUserMessage(validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return "Invalid fields: " + strings.Join(fields, ", ")
}
