package handler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"storefront/shared/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerValidatorsOnce sync.Once

// registerValidators добавляет тег permcode в валидатор gin. Движок глобальный, поэтому только один раз.
// Ошибка регистрации - это ошибка сборки сервиса, поэтому паникуем при старте, а не на запросе.
func registerValidators() {
	registerValidatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("unexpected gin validator engine %T", binding.Validator.Engine()))
		}
		if err := registerPermissionCode(v); err != nil {
			panic(fmt.Sprintf("register permcode validation: %v", err))
		}
	})
}

func registerPermissionCode(v *validator.Validate) error {
	return v.RegisterValidation("permcode", func(fl validator.FieldLevel) bool {
		return models.IsValidPermissionCode(fl.Field().String())
	})
}

// describeBindError turns validator errors into "field: rule" pairs instead of the raw struct dump.
func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
