package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Kind classifies engine errors.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindIO covers missing files and open, read or seek failures.
	KindIO
	// KindFormat covers malformed manifests and payloads.
	KindFormat
	// KindLookup is returned when a name does not resolve.
	KindLookup
	// KindTypeMismatch is returned when a caller expects a different resource type.
	KindTypeMismatch
	// KindCapacity is returned when a fixed-size table overflows.
	KindCapacity
	// KindUnsupported is returned for types without load or access behaviour.
	KindUnsupported
	// KindState covers misuse: closed handles, terminated managers, refcount underflow.
	KindState
	// KindAlloc is returned when an allocator refuses a request.
	KindAlloc
)

var kindNames = [...]string{
	KindUnknown:      "unknown",
	KindIO:           "io",
	KindFormat:       "format",
	KindLookup:       "lookup",
	KindTypeMismatch: "type mismatch",
	KindCapacity:     "capacity",
	KindUnsupported:  "unsupported",
	KindState:        "state",
	KindAlloc:        "alloc",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Sentinels matching every error of a kind through errors.Is.
var (
	ErrIO           = &Error{Kind: KindIO}
	ErrFormat       = &Error{Kind: KindFormat}
	ErrNotFound     = &Error{Kind: KindLookup}
	ErrTypeMismatch = &Error{Kind: KindTypeMismatch}
	ErrCapacity     = &Error{Kind: KindCapacity}
	ErrUnsupported  = &Error{Kind: KindUnsupported}
	ErrState        = &Error{Kind: KindState}
	ErrAlloc        = &Error{Kind: KindAlloc}
)

// Error carries the context a fatal log line needs: what was being done,
// to which resource, in which file and which field.
type Error struct {
	Kind     Kind
	Op       string
	Resource string
	Path     string
	Field    string
	Msg      string
	Err      error
}

// Errorf builds an Error of the given kind.
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and operation to err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) WithResource(name string) *Error {
	e.Resource = name
	return e
}

func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " (resource %q)", e.Resource)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %q)", e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " (field %s)", e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels above work
// with errors.Is regardless of context fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal logs err with its context and terminates the process.
func Fatal(logger *log.Logger, err error) {
	if logger == nil {
		logger = getLogger()
	}
	var e *Error
	if errors.As(err, &e) {
		logger.Fatal("FATAL ERROR", "kind", e.Kind, "op", e.Op, "resource", e.Resource, "path", e.Path, "field", e.Field, "err", err)
		return
	}
	logger.Fatal("FATAL ERROR", "err", err)
}
