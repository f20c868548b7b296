package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/internal/mockapi"
	"github.com/goliatone/go-entityform/pkg/testsupport"
)

func startMock(t *testing.T) *mockapi.Server {
	t.Helper()
	server, baseURL := testsupport.MockAPI(t)
	seedSample(server)
	t.Setenv("ENTITYFORM_API_URL", baseURL)
	t.Setenv("ENTITYFORM_API_TOKEN", "")
	return server
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	envFile := filepath.Join(t.TempDir(), "missing.env")
	cmd.SetArgs(append([]string{"--env-file", envFile}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestListPrintsTable(t *testing.T) {
	startMock(t)
	out, _, err := execute(t, "list", "grade")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q, want header and two rows", lines)
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "LEVEL") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(out, "Grade 7") || !strings.Contains(out, "Grade 8") {
		t.Fatalf("rows missing grades:\n%s", out)
	}
}

func TestListScopedNeedsParent(t *testing.T) {
	startMock(t)
	if _, _, err := execute(t, "list", "lesson"); err == nil {
		t.Fatal("expected missing parent error")
	}
	out, _, err := execute(t, "list", "lesson", "--parent", "unt-1")
	if err != nil {
		t.Fatalf("list lessons: %v", err)
	}
	if !strings.Contains(out, "Adding fractions") {
		t.Fatalf("lessons missing:\n%s", out)
	}
}

func TestCreateWithAssignments(t *testing.T) {
	server := startMock(t)
	out, stderr, err := execute(t, "create", "grade", "--set", "name=Grade 9", "--set", "level=9")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out, `"name": "Grade 9"`) {
		t.Fatalf("stdout = %s", out)
	}
	if !strings.Contains(stderr, `Grade "Grade 9" was created`) {
		t.Fatalf("stderr = %s", stderr)
	}
	if got := server.Count("grade"); got != 3 {
		t.Fatalf("grades = %d, want 3", got)
	}
}

func TestCreateInvalidReportsFields(t *testing.T) {
	server := startMock(t)
	_, _, err := execute(t, "create", "grade", "--set", "name=Grade 13", "--set", "level=13")
	if err == nil {
		t.Fatal("expected invalid form")
	}
	if !strings.Contains(err.Error(), "Level") {
		t.Fatalf("error = %v", err)
	}
	if got := server.Count("grade"); got != 2 {
		t.Fatalf("grades = %d, want 2", got)
	}
}

func TestCreateUnknownField(t *testing.T) {
	startMock(t)
	if _, _, err := execute(t, "create", "grade", "--set", "colour=red"); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestDeleteRemovesItem(t *testing.T) {
	server := startMock(t)
	_, stderr, err := execute(t, "delete", "grade", "grd-8")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !strings.Contains(stderr, `Grade "Grade 8" was deleted`) {
		t.Fatalf("stderr = %s", stderr)
	}
	if got := server.Count("grade"); got != 1 {
		t.Fatalf("grades = %d, want 1", got)
	}
}

func TestRenderDialog(t *testing.T) {
	startMock(t)
	out, _, err := execute(t, "render", "grade", "--mode", "dialog", "--action", "/grades")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{`class="ef-dialog"`, " open", `action="/grades"`, `name="level"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"name=Grade 9", " level =9", "note=a=b"})
	if err != nil {
		t.Fatalf("parseAssignments: %v", err)
	}
	want := map[string]string{"name": "Grade 9", "level": "9", "note": "a=b"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assignments (-want +got):\n%s", diff)
	}
	if _, err := parseAssignments([]string{"=x"}); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := parseAssignments([]string{"name"}); err == nil {
		t.Fatal("expected error without =")
	}
}
