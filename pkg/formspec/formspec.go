// Package formspec loads declarative per-entity form definitions from YAML
// and compiles them into field descriptors with localised rules.
package formspec

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

//go:embed forms/*.yaml
var embedded embed.FS

// Rules is the rule shorthand block of a field.
type Rules struct {
	Required         bool     `yaml:"required"`
	RequiredOnCreate bool     `yaml:"requiredOnCreate"`
	RequiredTrue     bool     `yaml:"requiredTrue"`
	MinLength        int      `yaml:"minLength"`
	MaxLength        int      `yaml:"maxLength"`
	Min              *float64 `yaml:"min"`
	Max              *float64 `yaml:"max"`
	Pattern          string   `yaml:"pattern"`
	Email            bool     `yaml:"email"`
	Phone            bool     `yaml:"phone"`
	Password         bool     `yaml:"password"`
	Confirm          string   `yaml:"confirm"`
	Before           string   `yaml:"before"`
	After            string   `yaml:"after"`
	TimeBefore       string   `yaml:"timeBefore"`
	TimeAfter        string   `yaml:"timeAfter"`
	Tag              string   `yaml:"tag"`
}

// Field is one declared field.
type Field struct {
	Name       string            `yaml:"name"`
	Type       model.FieldType   `yaml:"type"`
	Label      string            `yaml:"label"`
	Input      string            `yaml:"input"`
	Default    any               `yaml:"default"`
	Helper     string            `yaml:"helper"`
	Hidden     bool              `yaml:"hidden"`
	Disabled   bool              `yaml:"disabled"`
	Options    []model.Option    `yaml:"options"`
	UIOnly     bool              `yaml:"uiOnly"`
	Credential bool              `yaml:"credential"`
	Choices    map[string]string `yaml:"choices"`
	Rules      Rules             `yaml:"rules"`
}

// Spec is the form definition of one entity.
type Spec struct {
	Entity string  `yaml:"entity"`
	Fields []Field `yaml:"fields"`
}

// Mode selects create or edit compilation.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Set holds loaded specs keyed by entity.
type Set struct {
	specs map[string]*Spec
}

// LoadEmbedded loads the bundled entity forms.
func LoadEmbedded() (*Set, error) {
	sub, err := fs.Sub(embedded, "forms")
	if err != nil {
		return nil, fmt.Errorf("formspec: embedded forms: %w", err)
	}
	return LoadFS(sub)
}

// MustLoadEmbedded is LoadEmbedded that panics on error.
func MustLoadEmbedded() *Set {
	set, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	return set
}

// LoadFS parses every .yaml/.yml file of fsys as one Spec.
func LoadFS(fsys fs.FS) (*Set, error) {
	set := &Set{specs: make(map[string]*Spec)}
	err := fs.WalkDir(fsys, ".", func(p string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if ext := strings.ToLower(path.Ext(p)); ext != ".yaml" && ext != ".yml" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("formspec: read %s: %w", p, err)
		}
		spec := &Spec{}
		if err := yaml.Unmarshal(data, spec); err != nil {
			return fmt.Errorf("formspec: parse %s: %w", p, err)
		}
		if err := spec.check(); err != nil {
			return fmt.Errorf("formspec: %s: %w", p, err)
		}
		if _, dup := set.specs[spec.Entity]; dup {
			return fmt.Errorf("formspec: duplicate entity %q (file %s)", spec.Entity, p)
		}
		set.specs[spec.Entity] = spec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Spec returns the definition for entity.
func (s *Set) Spec(entity string) (*Spec, bool) {
	spec, ok := s.specs[entity]
	return spec, ok
}

// Entities lists the loaded entities in sorted order.
func (s *Set) Entities() []string {
	out := make([]string, 0, len(s.specs))
	for name := range s.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *Spec) check() error {
	if strings.TrimSpace(s.Entity) == "" {
		return fmt.Errorf("entity is required")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("field without a name")
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Rules.Pattern != "" {
			if _, err := regexp.Compile(f.Rules.Pattern); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	}
	for _, f := range s.Fields {
		for _, ref := range []string{f.Rules.Confirm, f.Rules.Before, f.Rules.After, f.Rules.TimeBefore, f.Rules.TimeAfter} {
			if _, ok := seen[ref]; ref != "" && !ok {
				return fmt.Errorf("field %q references unknown field %q", f.Name, ref)
			}
		}
		for _, text := range f.Choices {
			if _, ok := seen[text]; !ok {
				return fmt.Errorf("field %q pairs with unknown field %q", f.Name, text)
			}
		}
	}
	return nil
}

// UIOnly lists fields that never reach the request function.
func (s *Spec) UIOnly() []string {
	var out []string
	for _, f := range s.Fields {
		if f.UIOnly {
			out = append(out, f.Name)
		}
	}
	return out
}

// Credentials lists fields omitted from edit payloads while empty.
func (s *Spec) Credentials() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Credential {
			out = append(out, f.Name)
		}
	}
	return out
}

// Choices returns radio fields paired option -> text field.
func (s *Spec) Choices() map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, f := range s.Fields {
		if len(f.Choices) > 0 {
			out[f.Name] = f.Choices
		}
	}
	return out
}

// Compile builds the field descriptors for mode. Labels resolve through t as
// "fields.<name>" with the declared label as fallback.
func (s *Spec) Compile(t i18n.Func, mode Mode) []model.FieldDescriptor {
	b := validation.NewBuilder(t)
	labels := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		fallback := f.Label
		if fallback == "" {
			fallback = f.Name
		}
		labels[f.Name] = i18n.Resolve(t, "fields."+f.Name, fallback, nil)
	}

	out := make([]model.FieldDescriptor, 0, len(s.Fields))
	for _, f := range s.Fields {
		label := labels[f.Name]
		typ := f.Type
		if typ == "" {
			typ = model.FieldTypeString
		}
		options := make([]model.Option, 0, len(f.Options))
		for _, opt := range f.Options {
			opt.Label = i18n.Resolve(t, opt.Label, opt.Label, nil)
			options = append(options, opt)
		}
		out = append(out, model.FieldDescriptor{
			Name:       f.Name,
			Label:      label,
			Type:       typ,
			Input:      f.Input,
			Default:    f.Default,
			HelperText: f.Helper,
			Options:    options,
			Hidden:     f.Hidden,
			Disabled:   f.Disabled,
			Rules:      compileRules(b, f.Rules, label, labels, mode),
		})
	}
	return out
}

func compileRules(b *validation.Builder, r Rules, label string, labels map[string]string, mode Mode) model.RuleSet {
	var sets []model.RuleSet
	if r.Required || (r.RequiredOnCreate && mode == ModeCreate) {
		sets = append(sets, b.Required(label))
	}
	if r.RequiredTrue {
		sets = append(sets, b.RequiredTrue(label))
	}
	if r.MinLength > 0 {
		sets = append(sets, b.MinLength(label, r.MinLength))
	}
	if r.MaxLength > 0 {
		sets = append(sets, b.MaxLength(label, r.MaxLength))
	}
	if r.Min != nil {
		sets = append(sets, b.Min(label, *r.Min))
	}
	if r.Max != nil {
		sets = append(sets, b.Max(label, *r.Max))
	}
	if r.Pattern != "" {
		sets = append(sets, b.Pattern(label, regexp.MustCompile(r.Pattern)))
	}
	if r.Email {
		sets = append(sets, b.Email(label))
	}
	if r.Phone {
		sets = append(sets, b.Phone(label))
	}
	if r.Password {
		sets = append(sets, b.Password(label))
	}
	if r.Confirm != "" {
		sets = append(sets, b.ConfirmPassword(label, r.Confirm))
	}
	if r.Before != "" {
		sets = append(sets, b.DateBefore(label, r.Before, labels[r.Before]))
	}
	if r.After != "" {
		sets = append(sets, b.DateAfter(label, r.After, labels[r.After]))
	}
	if r.TimeBefore != "" {
		sets = append(sets, b.TimeBefore(label, r.TimeBefore, labels[r.TimeBefore]))
	}
	if r.TimeAfter != "" {
		sets = append(sets, b.TimeAfter(label, r.TimeAfter, labels[r.TimeAfter]))
	}
	if r.Tag != "" {
		sets = append(sets, b.Tag(label, r.Tag))
	}
	return validation.Rules(sets...)
}
