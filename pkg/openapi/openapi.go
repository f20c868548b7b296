// Package openapi derives form field descriptors from the request bodies of
// an OpenAPI 3 document.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

// ErrUnknownOperation is returned for operation ids missing from the document.
var ErrUnknownOperation = errors.New("openapi: unknown operation")

// OrderExtension orders properties; properties without it sort by name after
// ordered ones.
const OrderExtension = "x-order"

// Document is a loaded OpenAPI document.
type Document struct {
	spec       *openapi3.T
	operations map[string]*openapi3.Operation
}

// Load parses raw YAML or JSON. External references are not followed.
func Load(ctx context.Context, data []byte) (*Document, error) {
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}
	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: false}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}

	doc := &Document{spec: spec, operations: make(map[string]*openapi3.Operation)}
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			id := op.OperationID
			if id == "" {
				id = strings.ToLower(method) + ":" + path
			}
			doc.operations[id] = op
		}
	}
	return doc, nil
}

// LoadFile reads a document from disk.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Load(ctx, data)
}

// LoadFS reads a document from fsys.
func LoadFS(ctx context.Context, fsys fs.FS, name string) (*Document, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", name, err)
	}
	return Load(ctx, data)
}

// LoadURL fetches a document over HTTP. A nil client uses http.DefaultClient.
func LoadURL(ctx context.Context, client *http.Client, url string) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("openapi: build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openapi: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("openapi: fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", url, err)
	}
	return Load(ctx, data)
}

// Operations lists operation ids in sorted order.
func (d *Document) Operations() []string {
	out := make([]string, 0, len(d.operations))
	for id := range d.operations {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Fields builds descriptors for the JSON request body of operationID.
// Labels resolve through t as "fields.<name>", falling back to the schema
// title and then the property name.
func (d *Document) Fields(operationID string, t i18n.Func) ([]model.FieldDescriptor, error) {
	op, ok := d.operations[operationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, operationID)
	}
	schema := requestSchema(op)
	if schema == nil || len(schema.Properties) == 0 {
		return nil, fmt.Errorf("openapi: %s has no object request body", operationID)
	}

	required := make(map[string]struct{}, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = struct{}{}
	}

	b := validation.NewBuilder(t)
	fields := make([]model.FieldDescriptor, 0, len(schema.Properties))
	for _, name := range propertyOrder(schema.Properties) {
		prop := schema.Properties[name].Value
		if prop == nil || prop.ReadOnly {
			continue
		}
		_, isRequired := required[name]
		field, err := describe(b, t, name, prop, isRequired)
		if err != nil {
			return nil, fmt.Errorf("openapi: %s.%s: %w", operationID, name, err)
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, media := range []string{"application/json", "application/x-www-form-urlencoded"} {
		if mt, ok := content[media]; ok && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func propertyOrder(props openapi3.Schemas) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	order := func(name string) (float64, bool) {
		ref := props[name]
		if ref == nil || ref.Value == nil {
			return 0, false
		}
		n, ok := ref.Value.Extensions[OrderExtension].(float64)
		return n, ok
	}
	sort.SliceStable(names, func(i, j int) bool {
		oi, hasI := order(names[i])
		oj, hasJ := order(names[j])
		switch {
		case hasI && hasJ && oi != oj:
			return oi < oj
		case hasI != hasJ:
			return hasI
		}
		return names[i] < names[j]
	})
	return names
}

func describe(b *validation.Builder, t i18n.Func, name string, prop *openapi3.Schema, isRequired bool) (model.FieldDescriptor, error) {
	fallback := prop.Title
	if fallback == "" {
		fallback = name
	}
	label := i18n.Resolve(t, "fields."+name, fallback, nil)

	field := model.FieldDescriptor{
		Name:       name,
		Label:      label,
		Type:       fieldType(prop),
		Default:    prop.Default,
		HelperText: prop.Description,
		Rules:      model.RuleSet{},
	}
	for _, value := range prop.Enum {
		text := fmt.Sprint(value)
		field.Options = append(field.Options, model.Option{Label: text, Value: text})
	}

	var sets []model.RuleSet
	if isRequired {
		sets = append(sets, b.Required(label))
	}
	if prop.MinLength > 0 {
		sets = append(sets, b.MinLength(label, int(prop.MinLength)))
	}
	if prop.MaxLength != nil {
		sets = append(sets, b.MaxLength(label, int(*prop.MaxLength)))
	}
	if prop.Min != nil {
		sets = append(sets, b.Min(label, *prop.Min))
	}
	if prop.Max != nil {
		sets = append(sets, b.Max(label, *prop.Max))
	}
	if prop.Pattern != "" {
		re, err := regexp.Compile(prop.Pattern)
		if err != nil {
			return field, fmt.Errorf("compile pattern: %w", err)
		}
		sets = append(sets, b.Pattern(label, re))
	}

	switch prop.Format {
	case "email":
		field.Input = form.InputEmail
		sets = append(sets, b.Email(label))
	case "password":
		field.Input = form.InputPassword
		sets = append(sets, b.Password(label))
	case "phone", "tel":
		field.Input = form.InputPhone
		sets = append(sets, b.Phone(label))
	case "uri", "url":
		sets = append(sets, b.Tag(label, "url"))
	case "uuid":
		sets = append(sets, b.Tag(label, "uuid"))
	case "time":
		field.Input = form.InputTime
	}
	if prop.WriteOnly && field.Input == "" {
		field.Input = form.InputPassword
	}
	field.Rules = validation.Rules(sets...)
	return field, nil
}

func fieldType(prop *openapi3.Schema) model.FieldType {
	if prop.Type == nil {
		return model.FieldTypeString
	}
	switch {
	case prop.Type.Is(openapi3.TypeInteger):
		return model.FieldTypeInteger
	case prop.Type.Is(openapi3.TypeNumber):
		return model.FieldTypeNumber
	case prop.Type.Is(openapi3.TypeBoolean):
		return model.FieldTypeBoolean
	case prop.Type.Is(openapi3.TypeArray):
		return model.FieldTypeArray
	case prop.Type.Is(openapi3.TypeObject):
		return model.FieldTypeObject
	}
	if prop.Format == "date" || prop.Format == "date-time" {
		return model.FieldTypeDate
	}
	return model.FieldTypeString
}
