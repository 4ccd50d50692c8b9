package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator engine:
//
//	invitecode  six ASCII letters or digits (case-insensitive)
//	isodate     calendar date in YYYY-MM-DD form
//	expotoken   Expo push token (ExponentPushToken[...])
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		tags := map[string]validator.Func{
			"invitecode": func(fl validator.FieldLevel) bool {
				return IsInviteCodeShape(strings.TrimSpace(fl.Field().String()))
			},
			"isodate": func(fl validator.FieldLevel) bool {
				_, err := time.Parse("2006-01-02", fl.Field().String())
				return err == nil
			},
			"expotoken": func(fl validator.FieldLevel) bool {
				return IsExpoPushToken(strings.TrimSpace(fl.Field().String()))
			},
		}
		for tag, fn := range tags {
			if err := v.RegisterValidation(tag, fn); err != nil {
				L().Error("register validator failed", zap.String("tag", tag), zap.Error(err))
			}
		}
	})
}

// IsExpoPushToken reports whether token looks like an Expo push token.
func IsExpoPushToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") && strings.HasSuffix(token, "]")
}

// ValidationMessage turns a binding error into a short client-facing message.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request body"
	}
	fe := verrs[0]
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "max", "len":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "invitecode":
		return "invite code must be 6 letters or digits"
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD form", field)
	case "expotoken":
		return "invalid Expo push token format"
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
