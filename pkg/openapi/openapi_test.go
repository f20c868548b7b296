package openapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/form"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/openapi"
	"github.com/goliatone/go-entityform/pkg/validation"
)

const adminAPI = `
openapi: 3.0.3
info:
  title: Admin API
  version: "1.0"
paths:
  /admins:
    post:
      operationId: createAdmin
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [fullName, email]
              properties:
                id:
                  type: string
                  readOnly: true
                fullName:
                  type: string
                  title: Full name
                  minLength: 3
                  maxLength: 60
                  x-order: 1
                email:
                  type: string
                  format: email
                  x-order: 2
                password:
                  type: string
                  format: password
                age:
                  type: integer
                  minimum: 18
                  maximum: 99
                role:
                  type: string
                  enum: [owner, editor]
      responses:
        "201":
          description: created
`

func TestFieldsFromRequestBody(t *testing.T) {
	doc, err := openapi.Load(context.Background(), []byte(adminAPI))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"createAdmin"}, doc.Operations()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	fields, err := doc.Fields("createAdmin", nil)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}

	var names []string
	byName := map[string]model.FieldDescriptor{}
	for _, f := range fields {
		names = append(names, f.Name)
		byName[f.Name] = f
	}
	if diff := cmp.Diff([]string{"fullName", "email", "age", "password", "role"}, names); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}

	fullName := byName["fullName"]
	if fullName.Label != "Full name" || !fullName.Rules.IsRequired() {
		t.Fatalf("unexpected fullName descriptor %+v", fullName)
	}
	if msg := validation.Validate(fullName.Rules, "Al", nil); msg != "Full name must be at least 3 characters" {
		t.Fatalf("unexpected minLength message %q", msg)
	}

	email := byName["email"]
	if email.Input != form.InputEmail {
		t.Fatalf("expected email input, got %q", email.Input)
	}
	if msg := validation.Validate(email.Rules, "nope", nil); msg == "" {
		t.Fatalf("expected email format to be enforced")
	}

	age := byName["age"]
	if age.Type != model.FieldTypeInteger {
		t.Fatalf("expected integer type, got %s", age.Type)
	}
	if msg := validation.Validate(age.Rules, 12, nil); msg != "age must be at least 18" {
		t.Fatalf("unexpected min message %q", msg)
	}

	if byName["password"].Input != form.InputPassword {
		t.Fatalf("expected password input")
	}
	wantOptions := []model.Option{{Label: "owner", Value: "owner"}, {Label: "editor", Value: "editor"}}
	if diff := cmp.Diff(wantOptions, byName["role"].Options); diff != "" {
		t.Fatalf("enum options mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownOperation(t *testing.T) {
	doc, err := openapi.Load(context.Background(), []byte(adminAPI))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := doc.Fields("deleteAdmin", nil); !errors.Is(err, openapi.ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestLoadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(adminAPI))
	}))
	defer server.Close()

	doc, err := openapi.LoadURL(context.Background(), server.Client(), server.URL)
	if err != nil {
		t.Fatalf("load url: %v", err)
	}
	if len(doc.Operations()) != 1 {
		t.Fatalf("expected one operation")
	}
}

func TestLoadRejectsEmptyPaths(t *testing.T) {
	_, err := openapi.Load(context.Background(), []byte("openapi: 3.0.3\ninfo: {title: x, version: '1'}\npaths: {}\n"))
	if err == nil {
		t.Fatalf("expected an error for a document without paths")
	}
}
