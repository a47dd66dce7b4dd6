package obtree

import "github.com/google/uuid"

// Logger interface matches the implementation of slog.
// See the logging package for adapter implementations of common logger libraries.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}

// DiscardLogger is the default logger that compiles to a no-op
type DiscardLogger struct{}

func (d DiscardLogger) Error(string, ...any) {}

func (d DiscardLogger) Warn(string, ...any) {}

func (d DiscardLogger) Info(string, ...any) {}

// instanceLogger wraps a Logger and stamps every call with the owning
// Tree's InstanceID. Spec §5 allows several trees to externally
// synchronize access to one shared allocator; once they do, their log
// lines interleave, and nothing about a bare "root height increased"
// says which tree it came from. Every Tree wraps its configured Logger in
// one of these at construction, so engine call sites just log a message
// and the tree-identifying field is never something a call site can
// forget to pass.
type instanceLogger struct {
	l  Logger
	id uuid.UUID
}

func withInstance(l Logger, id uuid.UUID) Logger {
	return &instanceLogger{l: l, id: id}
}

func (w *instanceLogger) Error(msg string, args ...any) { w.l.Error(msg, w.stamp(args)...) }
func (w *instanceLogger) Warn(msg string, args ...any)  { w.l.Warn(msg, w.stamp(args)...) }
func (w *instanceLogger) Info(msg string, args ...any)  { w.l.Info(msg, w.stamp(args)...) }

func (w *instanceLogger) stamp(args []any) []any {
	return append([]any{"instance", w.id}, args...)
}
