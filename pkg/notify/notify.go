// Package notify defines the fire-and-forget notification surface mutations
// report their settlement to.
package notify

import (
	"fmt"
	"io"
	"sync"
)

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is produced once per mutation settlement.
type Notification struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Success builds a success notification.
func Success(message string) Notification {
	return Notification{Severity: SeveritySuccess, Message: message}
}

// Error builds a failure notification.
func Error(message string) Notification {
	return Notification{Severity: SeverityError, Message: message}
}

// Notifier accepts notifications. Implementations must not block the caller
// for long and have no return value to consume.
type Notifier interface {
	Notify(Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify implements Notifier.
func (f Func) Notify(n Notification) {
	if f != nil {
		f(n)
	}
}

// Discard drops every notification.
var Discard Notifier = Func(nil)

// Recorder keeps every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	seen []Notification
}

// Notify implements Notifier.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.seen = append(r.seen, n)
	r.mu.Unlock()
}

// All returns a copy of the recorded notifications in arrival order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.seen...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.seen) == 0 {
		return Notification{}, false
	}
	return r.seen[len(r.seen)-1], true
}

// Reset forgets every recorded notification.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.seen = nil
	r.mu.Unlock()
}

// WriterNotifier prints notifications as "[severity] message" lines, the
// toast surface used by the CLI.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a WriterNotifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

// Notify implements Notifier. Write failures are ignored.
func (n *WriterNotifier) Notify(note Notification) {
	if n == nil || n.w == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "[%s] %s\n", note.Severity, note.Message)
}

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	list := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return Func(func(note Notification) {
		for _, n := range list {
			n.Notify(note)
		}
	})
}
