package notify_test

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-entityform/pkg/notify"
)

func TestRecorderKeepsOrder(t *testing.T) {
	var rec notify.Recorder
	if _, ok := rec.Last(); ok {
		t.Fatalf("empty recorder should have no last notification")
	}

	rec.Notify(notify.Success("saved"))
	rec.Notify(notify.Error("failed"))

	want := []notify.Notification{
		{Severity: notify.SeveritySuccess, Message: "saved"},
		{Severity: notify.SeverityError, Message: "failed"},
	}
	if diff := cmp.Diff(want, rec.All()); diff != "" {
		t.Fatalf("notifications mismatch (-want +got):\n%s", diff)
	}

	rec.Reset()
	if len(rec.All()) != 0 {
		t.Fatalf("expected reset to clear notifications")
	}
}

func TestWriterNotifierAndMulti(t *testing.T) {
	var buf bytes.Buffer
	var rec notify.Recorder

	n := notify.Multi(notify.NewWriterNotifier(&buf), nil, &rec)
	n.Notify(notify.Error("Could not create grade"))

	if got := buf.String(); got != "[error] Could not create grade\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if last, _ := rec.Last(); last.Message != "Could not create grade" {
		t.Fatalf("recorder did not receive fan-out, got %+v", last)
	}

	notify.Discard.Notify(notify.Success("ignored"))
}
