package validation_test

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/i18n"
	"github.com/goliatone/go-entityform/pkg/model"
	"github.com/goliatone/go-entityform/pkg/validation"
)

func TestRequired_EmptyValuesFail(t *testing.T) {
	b := validation.NewBuilder(nil)
	rules := b.Required("Name")

	var nilPtr *string
	for _, value := range []any{nil, "", "   ", []any{}, map[string]any{}, nilPtr} {
		if msg := validation.Validate(rules, value, nil); msg != "Name is required" {
			t.Fatalf("expected required failure for %#v, got %q", value, msg)
		}
	}
	for _, value := range []any{"x", 0, false, []any{"a"}} {
		if msg := validation.Validate(rules, value, nil); msg != "" {
			t.Fatalf("expected %#v to pass, got %q", value, msg)
		}
	}
}

func TestBounds(t *testing.T) {
	b := validation.NewBuilder(nil)
	tests := []struct {
		name  string
		rules model.RuleSet
		value any
		want  string
	}{
		{"min length below", b.MinLength("Name", 3), "ab", "Name must be at least 3 characters"},
		{"min length boundary", b.MinLength("Name", 3), "abc", ""},
		{"min length counts runes", b.MinLength("Name", 3), "أبج", ""},
		{"max length above", b.MaxLength("Name", 2), "abc", "Name must be at most 2 characters"},
		{"min number", b.Min("Score", 1), 0, "Score must be at least 1"},
		{"min numeric string", b.Min("Score", 1), "1.5", ""},
		{"min non numeric", b.Min("Score", 1), "abc", "Score must be at least 1"},
		{"max number", b.Max("Score", 100), 100.5, "Score must be at most 100"},
		{"min unsigned", b.Min("Score", 1), uint(5), ""},
		{"max small int", b.Max("Score", 100), int8(100), ""},
		{"min int16 below", b.Min("Score", 1), int16(0), "Score must be at least 1"},
		{"empty skips length", b.MinLength("Name", 3), "", ""},
		{"pattern", b.Pattern("Code", regexp.MustCompile(`^[A-Z]{3}$`)), "ab", "Code has an invalid format"},
		{"email ok", b.Email("Email"), "a@b.io", ""},
		{"email bad", b.Email("Email"), "a@b", "Email must be a valid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validation.Validate(tt.rules, tt.value, nil); got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPhone_OrderedChecks(t *testing.T) {
	tests := []struct {
		value string
		want  validation.PhoneFailure
	}{
		{"771644513", validation.PhoneOK},
		{"77 164 4513", validation.PhoneOK},
		{"881644513", validation.PhoneBadPrefix},
		{"701644513", validation.PhoneBadSecondDigit},
		{"77164451", validation.PhoneBadLength},
		{"87164451", validation.PhoneBadLength},
		{"77164451a", validation.PhoneBadLength},
	}
	for _, tt := range tests {
		if got := validation.CheckPhone(tt.value); got != tt.want {
			t.Fatalf("CheckPhone(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}

	b := validation.NewBuilder(nil)
	rules := b.Phone("Phone")
	if msg := validation.Validate(rules, "881644513", nil); msg != "Phone must start with 7" {
		t.Fatalf("unexpected prefix message %q", msg)
	}
	if msg := validation.Validate(rules, "701644513", nil); msg != "Phone must continue with one of 1, 3, 7, 8" {
		t.Fatalf("unexpected second digit message %q", msg)
	}
	if msg := validation.Validate(rules, "77164451", nil); msg != "Phone must contain exactly 9 digits" {
		t.Fatalf("unexpected length message %q", msg)
	}
	if msg := validation.Validate(rules, "", nil); msg != "" {
		t.Fatalf("empty phone should pass without required, got %q", msg)
	}
}

func TestCrossField_MissingComparisonPasses(t *testing.T) {
	b := validation.NewBuilder(nil)

	confirm := b.ConfirmPassword("Confirm password", "password")
	if msg := validation.Validate(confirm, "anything", model.Values{}); msg != "" {
		t.Fatalf("confirm should pass while password is unset, got %q", msg)
	}
	if msg := validation.Validate(confirm, "anything", model.Values{"password": ""}); msg != "" {
		t.Fatalf("confirm should pass while password is empty, got %q", msg)
	}
	if msg := validation.Validate(confirm, "other", model.Values{"password": "Secret1!"}); msg != "Passwords do not match" {
		t.Fatalf("expected mismatch, got %q", msg)
	}

	before := b.DateBefore("Start date", "endDate", "End date")
	if msg := validation.Validate(before, "2024-05-01", model.Values{}); msg != "" {
		t.Fatalf("date rule should pass while end date is unset, got %q", msg)
	}
	if msg := validation.Validate(before, "2024-05-10", model.Values{"endDate": "2024-05-01"}); msg != "Start date must be before End date" {
		t.Fatalf("expected ordering failure, got %q", msg)
	}

	after := b.TimeAfter("End time", "startTime", "Start time")
	if msg := validation.Validate(after, "09:00", model.Values{"startTime": "10:30"}); msg != "End time must be later than Start time" {
		t.Fatalf("expected time failure, got %q", msg)
	}
	if msg := validation.Validate(after, "11:00", model.Values{"startTime": "10:30"}); msg != "" {
		t.Fatalf("expected time pass, got %q", msg)
	}
}

func TestPasswordAndTag(t *testing.T) {
	b := validation.NewBuilder(nil)
	pwd := b.Password("Password")
	if msg := validation.Validate(pwd, "short", nil); msg != "Password must be at least 8 characters" {
		t.Fatalf("unexpected %q", msg)
	}
	if msg := validation.Validate(pwd, "longenough", nil); msg == "" {
		t.Fatalf("expected complexity failure")
	}
	if msg := validation.Validate(pwd, "Longenough1!", nil); msg != "" {
		t.Fatalf("expected pass, got %q", msg)
	}

	url := b.Tag("Video link", "url")
	if msg := validation.Validate(url, "not a url", nil); msg != "Video link is not a valid url" {
		t.Fatalf("unexpected %q", msg)
	}
	if msg := validation.Validate(url, "https://example.com/v", nil); msg != "" {
		t.Fatalf("unexpected %q", msg)
	}
}

func TestValidateAll_ReportsEveryFailingField(t *testing.T) {
	b := validation.NewBuilder(i18n.MustLoadEmbedded().Localizer("en-US").Func())
	fields := []model.FieldDescriptor{
		{Name: "name", Rules: b.Required("Name")},
		{Name: "email", Rules: validation.Rules(b.Required("Email"), b.Email("Email"))},
		{Name: "phone", Rules: b.Phone("Phone")},
	}
	got := validation.ValidateAll(fields, model.Values{"email": "bad", "phone": "771644513"})
	want := map[string]string{
		"name":  "Name is required",
		"email": "Email must be a valid email address",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}
