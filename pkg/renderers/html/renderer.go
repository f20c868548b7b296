// Package html renders form views to HTML through go-template (pongo2).
// Dialog containers render as <dialog>, page containers as <section>.
package html

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/flosch/pongo2/v6"
	gotemplate "github.com/goliatone/go-template"

	"github.com/goliatone/go-entityform/pkg/form"
)

//go:embed templates/*.tpl
var embedded embed.FS

// FormTemplate is the entry template name, without extension.
const FormTemplate = "form"

const extension = ".tpl"

// TemplatesFS exposes the built-in templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return embedded
	}
	return sub
}

// Option configures a Renderer.
type Option func(*config)

type config struct {
	templates fs.FS
	baseDir   string
	globals   map[string]any
}

// WithFS loads templates from files, falling back to the built-ins for
// templates it does not define.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithBaseDir loads template overrides from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithGlobalData seeds values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(data))
		}
		for k, v := range data {
			cfg.globals[strings.TrimSpace(k)] = v
		}
	}
}

// engine is the part of the go-template renderer used here.
type engine interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

// Renderer turns a form.View into markup.
type Renderer struct {
	engine engine
}

// New builds a renderer. Templates resolve from the base directory first,
// then the WithFS files, then the built-ins.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	var layers layered
	if cfg.baseDir != "" {
		info, err := os.Stat(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("html: template dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("html: template dir %q is not a directory", cfg.baseDir)
		}
		layers = append(layers, os.DirFS(cfg.baseDir))
	}
	if cfg.templates != nil {
		layers = append(layers, cfg.templates)
	}
	layers = append(layers, TemplatesFS())

	eng, err := gotemplate.NewRenderer(
		gotemplate.WithFS(layers),
		gotemplate.WithExtension(extension),
	)
	if err != nil {
		return nil, fmt.Errorf("html: create engine: %w", err)
	}
	for name, fn := range filters {
		// filters are process-wide in pongo2
		if pongo2.FilterExists(name) {
			continue
		}
		if err := eng.RegisterFilter(name, fn); err != nil {
			return nil, fmt.Errorf("html: register filter %q: %w", name, err)
		}
	}
	if len(cfg.globals) > 0 {
		if err := eng.GlobalContext(cfg.globals); err != nil {
			return nil, fmt.Errorf("html: global data: %w", err)
		}
	}
	return &Renderer{engine: eng}, nil
}

// Render writes view to out (when given) and returns the markup. action is
// the form's submit URL and may be empty.
func (r *Renderer) Render(view form.View, action string, out ...io.Writer) (string, error) {
	if r == nil || r.engine == nil {
		return "", errors.New("html: renderer is nil")
	}
	data, err := toContext(view)
	if err != nil {
		return "", fmt.Errorf("html: convert view: %w", err)
	}
	rendered, err := r.engine.RenderTemplate(FormTemplate, map[string]any{"view": data, "action": action}, out...)
	if err != nil {
		return "", fmt.Errorf("html: render %s%s: %w", FormTemplate, extension, err)
	}
	return rendered, nil
}

// RenderContainer renders the container's current view.
func (r *Renderer) RenderContainer(c *form.Container, action string, out ...io.Writer) (string, error) {
	return r.Render(c.View(), action, out...)
}

// toContext round-trips the view through JSON so templates see the json
// field names.
func toContext(view form.View) (map[string]any, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// layered resolves a name against each file system in turn.
type layered []fs.FS

func (l layered) Open(name string) (fs.File, error) {
	for _, fsys := range l {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

var filters = map[string]func(input any, param any) (any, error){
	"field_id":  filterFieldID,
	"html_type": filterHTMLType,
	"selected":  filterSelected,
}

func filterFieldID(input any, _ any) (any, error) {
	return "ef-" + strings.NewReplacer(".", "-", "[", "-", "]", "").Replace(fmt.Sprint(input)), nil
}

// filterHTMLType maps input kinds onto the <input> type attribute.
func filterHTMLType(input any, _ any) (any, error) {
	switch kind := fmt.Sprint(input); kind {
	case form.InputEmail, form.InputPassword, form.InputNumber, form.InputDate, form.InputTime:
		return kind, nil
	case form.InputPhone:
		return "tel", nil
	}
	return "text", nil
}

// filterSelected reports whether the option value input is held by param,
// which is either a scalar or a list of values.
func filterSelected(input any, param any) (any, error) {
	option := fmt.Sprint(input)
	switch held := param.(type) {
	case nil:
		return false, nil
	case []any:
		for _, item := range held {
			if fmt.Sprint(item) == option {
				return true, nil
			}
		}
		return false, nil
	}
	return fmt.Sprint(param) == option, nil
}
