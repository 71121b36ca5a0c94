package validator

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator wraps go-playground validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(400, TranslateValidationError(err))
	}
	return nil
}

// New creates a new custom validator instance with game rules registered
func New() echo.Validator {
	v := validator.New()
	registerGameRules(v)
	return &CustomValidator{
		validator: v,
	}
}
