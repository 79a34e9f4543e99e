package api

import (
	qr "github.com/Badsnus/qr-studio/pkg/qrcode"
	"github.com/go-playground/validator/v10"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("preset", validatePreset)
	_ = v.RegisterValidation("format", validateFormat)

	return &Validator{
		validate: v,
	}
}

func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func validatePreset(fl validator.FieldLevel) bool {
	_, ok := qr.Preset(fl.Field().String())
	return ok
}

func validateFormat(fl validator.FieldLevel) bool {
	_, err := qr.ParseFormat(fl.Field().String())
	return err == nil
}
