package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the canonical source locale for catalogs.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embeddedLocales embed.FS

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Catalog stores the messages of every loaded locale and implements
// Translator on top of an x/text catalog builder. It is read-only once loaded.
type Catalog struct {
	messages map[string]map[string]string
	tags     []language.Tag
	locales  []string
	matcher  language.Matcher
	builder  *catalog.Builder
}

var _ Translator = (*Catalog)(nil)

// LoadEmbedded loads the catalogs shipped with this package.
func LoadEmbedded() (*Catalog, error) {
	return LoadFS(embeddedLocales)
}

// MustLoadEmbedded panics when the embedded catalogs are malformed.
func MustLoadEmbedded() *Catalog {
	c, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("i18n: glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("i18n: no catalog files found")
	}
	sort.Strings(paths)

	c := &Catalog{
		messages: make(map[string]map[string]string),
		builder:  catalog.NewBuilder(),
	}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", p, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("i18n: parse %s: %w", p, err)
		}
		if err := c.addFile(p, file); err != nil {
			return nil, err
		}
	}

	if _, ok := c.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("i18n: base locale %s is not defined", BaseLocale)
	}
	if err := c.register(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) addFile(p string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(p))
	namespaceFromPath := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("i18n: catalog %s: locale is required", p)
	}
	if locale != localeFromPath {
		return fmt.Errorf("i18n: catalog %s: locale %q must match path locale %q", p, locale, localeFromPath)
	}
	if strings.TrimSpace(file.Namespace) != namespaceFromPath {
		return fmt.Errorf("i18n: catalog %s: namespace %q must match filename %q", p, file.Namespace, namespaceFromPath)
	}

	messages, ok := c.messages[locale]
	if !ok {
		messages = make(map[string]string)
		c.messages[locale] = messages
	}
	for key, value := range file.Messages {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			return fmt.Errorf("i18n: catalog %s: message key cannot be blank", p)
		}
		if _, exists := messages[trimmed]; exists {
			return fmt.Errorf("i18n: catalog %s: duplicate key %q in locale %q", p, trimmed, locale)
		}
		messages[trimmed] = value
	}
	return nil
}

func (c *Catalog) register() error {
	locales := make([]string, 0, len(c.messages))
	for locale := range c.messages {
		locales = append(locales, locale)
	}
	sort.Strings(locales)
	// The base locale leads so unmatched requests resolve to it.
	sort.SliceStable(locales, func(i, j int) bool { return locales[i] == BaseLocale })

	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("i18n: parse locale tag %q: %w", locale, err)
		}
		for key, msg := range c.messages[locale] {
			if err := c.builder.SetString(tag, key, msg); err != nil {
				return fmt.Errorf("i18n: register %s/%s: %w", locale, key, err)
			}
		}
		tags = append(tags, tag)
	}
	c.locales = locales
	c.tags = tags
	c.matcher = language.NewMatcher(tags)
	return nil
}

// Locales returns the loaded locale identifiers, base locale first.
func (c *Catalog) Locales() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.locales...)
}

// Match returns the closest loaded locale for the requested one.
func (c *Catalog) Match(locale string) string {
	if c == nil || len(c.tags) == 0 {
		return BaseLocale
	}
	requested, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return BaseLocale
	}
	_, idx, confidence := c.matcher.Match(requested)
	if confidence == language.No || idx < 0 || idx >= len(c.locales) {
		return BaseLocale
	}
	return c.locales[idx]
}

// Translate resolves key for locale with base-locale fallback.
func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	if c == nil {
		return "", ErrMissingTranslator
	}
	key = strings.TrimSpace(key)
	resolved := c.Match(locale)

	_, ok := c.messages[resolved][key]
	if !ok && resolved != BaseLocale {
		if _, ok = c.messages[BaseLocale][key]; ok {
			resolved = BaseLocale
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrMissingKey, locale, key)
	}

	tag := language.MustParse(resolved)
	printer := message.NewPrinter(tag, message.Catalog(c.builder))
	return printer.Sprintf(key, args...), nil
}

// Localizer returns a Localizer bound to this catalog.
func (c *Catalog) Localizer(locale string, options ...Option) *Localizer {
	return NewLocalizer(c, c.Match(locale), options...)
}
