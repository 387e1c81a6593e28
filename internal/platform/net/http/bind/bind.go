// Package bind decodes and validates JSON request bodies
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"

	perr "cancioneiro/internal/platform/errors"
	"cancioneiro/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

type engine struct {
	v     *validator.Validate
	trans ut.Translator
}

// message overrides for built in tags, plus the word tag
var messages = []struct {
	tag, text string
	param     bool
}{
	{"min", "{0} must be at least {1}", true},
	{"max", "{0} must be at most {1}", true},
	{"word", "{0} must be a single word", false},
}

// validate is the process wide validator, english messages, json field names
var validate = sync.OnceValue(func() *engine {
	loc := en.New()
	trans, _ := ut.New(loc, loc).GetTranslator("en")

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	_ = v.RegisterValidation("word", isWord)

	for _, m := range messages {
		_ = v.RegisterTranslation(m.tag, trans,
			func(t ut.Translator) error { return t.Add(m.tag, m.text, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				params := []string{fe.Field()}
				if m.param {
					params = append(params, fe.Param())
				}
				msg, _ := t.T(m.tag, params...)
				return msg
			},
		)
	}
	return &engine{v: v, trans: trans}
})

// jsonName names fields by their json tag, the Go name when there is none
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

// isWord accepts one lyric token: letters with inner hyphens or apostrophes, like "guarda-chuva" or "d'água"
func isWord(fl validator.FieldLevel) bool {
	w := fl.Field().String()
	if w == "" {
		return false
	}
	prevJoin := true
	for _, r := range w {
		switch {
		case unicode.IsLetter(r) || unicode.IsMark(r):
			prevJoin = false
		case r == '-' || r == '\'' || r == '’':
			if prevJoin {
				return false
			}
			prevJoin = true
		default:
			return false
		}
	}
	return !prevJoin
}

// JSONOptions controls parsing. The zero value reads at most 1MB, rejects unknown
// fields and requires a body on methods that carry one
type JSONOptions struct {
	MaxBytes       int64
	AllowUnknown   bool
	AllowEmptyBody bool
}

const defaultMaxBytes = 1 << 20

func bodyless(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

// ParseJSON decodes one JSON value into T and validates it. Failures are
// ErrorCodeJSON for bad input and ErrorCodeValidation, with the field, for rule violations
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var (
		out  T
		zero T
		o    JSONOptions
	)
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = defaultMaxBytes
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			logger.C(r.Context()).Error().Err(err).Msg("failed to close request body")
		}
	}()

	dec := json.NewDecoder(io.LimitReader(r.Body, o.MaxBytes))
	if !o.AllowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			if o.AllowEmptyBody || bodyless(r.Method) {
				return zero, nil
			}
			return zero, perr.JSONErrf("empty body")
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return zero, perr.JSONErrf("unexpected trailing data")
	}

	if err := validate().v.Struct(out); err != nil {
		var inv *validator.InvalidValidationError
		if errors.As(err, &inv) {
			logger.C(r.Context()).Error().Err(inv).Msg("validator internal error")
			return zero, perr.JSONErrf("validation error")
		}
		field, msg := fieldMessage(err)
		return zero, perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
	}
	return out, nil
}

// fieldMessage returns the first failing field and its translated message
func fieldMessage(err error) (field, message string) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(validate().trans)
	}
	return "", err.Error()
}
