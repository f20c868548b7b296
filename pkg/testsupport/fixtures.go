// Package testsupport holds fixtures shared by package tests.
package testsupport

import (
	"bytes"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-entityform/internal/mockapi"
	"github.com/goliatone/go-entityform/pkg/features"
	"github.com/goliatone/go-entityform/pkg/formspec"
)

// Resources maps features onto mock API resources.
func Resources(feats []features.Feature) []mockapi.Resource {
	out := make([]mockapi.Resource, 0, len(feats))
	for _, f := range feats {
		out = append(out, mockapi.Resource{
			Entity:      f.Entity,
			Path:        f.Path,
			ParentField: f.ParentField,
			Unique:      f.Unique,
		})
	}
	return out
}

// MockAPI serves an in-memory admin API for the default features, validated
// with the embedded form specs. The server stops when the test ends. The
// returned URL is the API base.
func MockAPI(t *testing.T, options ...mockapi.Option) (*mockapi.Server, string) {
	t.Helper()

	server := mockapi.New(formspec.MustLoadEmbedded(), Resources(features.Defaults()), options...)
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return server, srv.URL + "/"
}

// CaptureOutput runs a render function that writes to an io.Writer,
// returning both the string result and the writer contents.
func CaptureOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return out, buf.String()
}
