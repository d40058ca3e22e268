package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xiaot623/rolo/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checker is implemented by argument structs with rules struct tags cannot
// express.
type checker interface {
	Check() error
}

// TypedHandler decodes arguments into A before running fn.
type TypedHandler[A any] struct {
	fn func(ctx context.Context, args A) (interface{}, error)
}

// Typed wraps fn as a Handler. Arguments are decoded into A, validated with
// its struct tags and, if A implements Check, checked again.
func Typed[A any](fn func(ctx context.Context, args A) (interface{}, error)) *TypedHandler[A] {
	return &TypedHandler[A]{fn: fn}
}

// Bind implements Handler.
func (h *TypedHandler[A]) Bind(args map[string]interface{}) (Call, error) {
	var a A
	if args == nil {
		args = map[string]interface{}{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, domain.ValidationError("arguments are not valid JSON: %v", err)
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, domain.ValidationError("invalid arguments: %v", err)
	}
	if err := validate.Struct(a); err != nil {
		return nil, validationError(err)
	}
	if c, ok := any(a).(checker); ok {
		if err := c.Check(); err != nil {
			return nil, domain.ValidationError("%v", err)
		}
	}
	return func(ctx context.Context) (interface{}, error) {
		return h.fn(ctx, a)
	}, nil
}

func validationError(err error) *domain.ToolError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ValidationError("invalid arguments: %v", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be an email address", fe.Field()))
		default:
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
		}
	}
	return domain.ValidationError("%s", strings.Join(msgs, "; "))
}
