// Package inputval validates decoded request bodies with struct tags.
package inputval

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dalemusser/taskhub/internal/app/system/apperr"
	"github.com/dalemusser/taskhub/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

// V is the shared validator. Field names in messages use the json tag.
var V = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	enum := func(ok func(string) bool) validator.Func {
		return func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return s == "" || ok(s)
		}
	}
	_ = v.RegisterValidation("role", enum(models.IsValidRole))
	_ = v.RegisterValidation("task_status", enum(models.IsValidTaskStatus))
	_ = v.RegisterValidation("task_category", enum(models.IsValidTaskCategory))
	_ = v.RegisterValidation("task_priority", enum(models.IsValidTaskPriority))
	_ = v.RegisterValidation("theme", enum(models.IsValidTheme))
	// maxbytes bounds the UTF-8 length; bcrypt rejects passwords over 72 bytes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

// Struct validates s and returns a VALIDATION_ERROR describing the first
// failing field, or nil.
func Struct(s any) error {
	err := V.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation(message(verrs[0].Field(), verrs[0]))
	}
	return apperr.Validation("invalid input")
}

// Var validates a single value against tag and names it field in the
// VALIDATION_ERROR message.
func Var(field string, v any, tag string) error {
	err := V.Var(v, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.Validation(message(field, verrs[0]))
	}
	return apperr.Validation(field + " is invalid")
}

// IsValidEmail reports whether s is a syntactically valid address.
func IsValidEmail(s string) bool {
	return V.Var(s, "required,email") == nil
}

func message(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s must be at most %s bytes", field, fe.Param())
	case "role":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(models.Roles, ", "))
	case "task_status":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(models.TaskStatuses, ", "))
	case "task_category":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(models.TaskCategories, ", "))
	case "task_priority":
		return fmt.Sprintf("%s must be one of %s", field, strings.Join(models.TaskPriorities, ", "))
	case "theme":
		return fmt.Sprintf("%s must be one of light, dark, system", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
