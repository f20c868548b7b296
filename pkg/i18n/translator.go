package i18n

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingTranslator signals that no translator was configured.
	ErrMissingTranslator = errors.New("i18n: translator is not configured")
	// ErrMissingKey signals that no catalog defines the requested key.
	ErrMissingKey = errors.New("i18n: missing translation")
)

// DefaultParam is the params key carrying the English fallback for a lookup.
const DefaultParam = "default"

// Translator resolves a message key for a locale.
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// MissingHandler decides the string returned when a translation is missing.
type MissingHandler func(locale, key string, params map[string]any, err error) string

// Func is the localisation function handed to rule builders, adapters and the
// mutation orchestrator. Params interpolate {name} placeholders; the
// DefaultParam entry is used when the key cannot be resolved.
type Func func(key string, params map[string]any) string

// Localizer binds a translator to a locale and exposes it as a Func.
type Localizer struct {
	translator Translator
	locale     string
	onMissing  MissingHandler
}

// Option configures a Localizer.
type Option func(*Localizer)

// WithMissingHandler overrides the handler used for unresolved keys.
func WithMissingHandler(handler MissingHandler) Option {
	return func(l *Localizer) {
		if handler != nil {
			l.onMissing = handler
		}
	}
}

// NewLocalizer constructs a Localizer for the given locale.
func NewLocalizer(t Translator, locale string, options ...Option) *Localizer {
	l := &Localizer{
		translator: t,
		locale:     strings.TrimSpace(locale),
		onMissing:  missingTranslationDefault,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(l)
	}
	return l
}

// Locale reports the locale the localizer resolves against.
func (l *Localizer) Locale() string {
	if l == nil {
		return ""
	}
	return l.locale
}

// T resolves key and interpolates params into the result.
func (l *Localizer) T(key string, params map[string]any) string {
	if l == nil {
		return Interpolate(fallbackFor(key, params), params)
	}
	return Interpolate(translate(l.locale, key, params, l.translator, l.onMissing), params)
}

// Func exposes the localizer as a localisation function.
func (l *Localizer) Func() Func {
	return l.T
}

// Static returns a Func that never consults a catalog and always renders the
// English default carried in params (or the key itself).
func Static() Func {
	return func(key string, params map[string]any) string {
		return Interpolate(fallbackFor(key, params), params)
	}
}

// Resolve calls t when it is set and falls back to Static otherwise.
func Resolve(t Func, key, fallback string, params map[string]any) string {
	merged := WithDefault(params, fallback)
	if t == nil {
		return Static()(key, merged)
	}
	return t(key, merged)
}

// WithDefault returns a copy of params carrying fallback under DefaultParam.
func WithDefault(params map[string]any, fallback string) map[string]any {
	out := make(map[string]any, len(params)+1)
	for k, v := range params {
		out[k] = v
	}
	if _, ok := out[DefaultParam]; !ok && fallback != "" {
		out[DefaultParam] = fallback
	}
	return out
}

// Interpolate replaces {name} placeholders with the matching params entries.
// Unknown placeholders are left untouched.
func Interpolate(message string, params map[string]any) string {
	if len(params) == 0 || !strings.Contains(message, "{") {
		return message
	}
	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		if name == DefaultParam {
			continue
		}
		pairs = append(pairs, "{"+name+"}", fmt.Sprint(value))
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

func translate(locale, key string, params map[string]any, t Translator, onMissing MissingHandler) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return fallbackFor(key, params)
	}
	if t == nil {
		return onMissing(locale, key, params, ErrMissingTranslator)
	}

	result, err := t.Translate(locale, key)
	if err == nil && strings.TrimSpace(result) != "" {
		return result
	}
	if err == nil {
		err = ErrMissingKey
	}
	return onMissing(locale, key, params, err)
}

func missingTranslationDefault(_ string, key string, params map[string]any, _ error) string {
	return fallbackFor(key, params)
}

func fallbackFor(key string, params map[string]any) string {
	if params != nil {
		if fallback, ok := params[DefaultParam].(string); ok && strings.TrimSpace(fallback) != "" {
			return fallback
		}
	}
	return key
}
