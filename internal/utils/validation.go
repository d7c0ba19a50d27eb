package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"merchant-order-api/internal/constant"
)

// ValidationMsg validator 错误转为字段明细，字段名取 json tag
func ValidationMsg(err error) []constant.FieldError {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return []constant.FieldError{{Field: "", Error: err.Error()}}
	}
	out := make([]constant.FieldError, 0, len(ves))
	for _, fe := range ves {
		out = append(out, constant.FieldError{Field: fe.Field(), Error: ruleMsg(fe)})
	}
	return out
}

func ruleMsg(fe validator.FieldError) string {
	name := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return "The " + name + " field is required."
	case "number", "numeric":
		return "The " + name + " must be a number."
	case "url":
		return "The " + name + " format is invalid."
	case "max":
		return "The " + name + " may not be greater than " + fe.Param() + " characters."
	default:
		return "The " + name + " is invalid."
	}
}
