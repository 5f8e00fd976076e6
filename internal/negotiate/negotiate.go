// Package negotiate picks the response MIME type from a client preference
// string and the set of formats registered on the server.
//
// Matching is simple: the Accept value is split on commas and
// scanned left to right, quality factors are ignored, and a candidate
// matches a registered type when it contains that type as a substring. The
// first registered type is the default and the answer to "*/*".
//
// A Negotiator is configured once at startup and then only read; it does
// no locking of its own.
package negotiate

import (
	"errors"
	"fmt"
	"strings"
)

// Wildcard is the only candidate treated as "anything goes".
const Wildcard = "*/*"

// ErrUnsupportedMediaType is matched by every *UnsupportedError.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// UnsupportedError reports an Accept value that matched no registered type.
type UnsupportedError struct {
	Accept string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unknown Accept header: %s", e.Accept)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupportedMediaType }

// Entry is one built-in registration.
type Entry[T any] struct {
	MIMEType string
	Handler  T
}

// Config seeds a Negotiator. Entries are registered in order, so the first
// one becomes the default type.
type Config[T any] struct {
	Entries []Entry[T]
}

// Negotiator is an ordered MIME type registry. T is whatever the caller
// needs to produce a response for the type (usually a factory).
type Negotiator[T any] struct {
	order    []string
	handlers map[string]T
}

// New builds a Negotiator from cfg.
func New[T any](cfg Config[T]) *Negotiator[T] {
	n := &Negotiator[T]{handlers: make(map[string]T, len(cfg.Entries))}
	for _, e := range cfg.Entries {
		n.Register(e.MIMEType, e.Handler)
	}
	return n
}

// Register inserts or replaces the handler for mimeType. A replaced type
// keeps its earlier position.
func (n *Negotiator[T]) Register(mimeType string, h T) {
	if _, ok := n.handlers[mimeType]; !ok {
		n.order = append(n.order, mimeType)
	}
	n.handlers[mimeType] = h
}

// Unregister removes mimeType. Unknown types are ignored.
func (n *Negotiator[T]) Unregister(mimeType string) {
	if _, ok := n.handlers[mimeType]; !ok {
		return
	}
	delete(n.handlers, mimeType)
	for i, t := range n.order {
		if t == mimeType {
			n.order = append(n.order[:i:i], n.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the handler registered for mimeType.
func (n *Negotiator[T]) Lookup(mimeType string) (T, bool) {
	h, ok := n.handlers[mimeType]
	return h, ok
}

// Types returns the registered types in registration order.
func (n *Negotiator[T]) Types() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// Default returns the first registered type, or "" for an empty registry.
func (n *Negotiator[T]) Default() string {
	if len(n.order) == 0 {
		return ""
	}
	return n.order[0]
}

// Resolve returns the MIME type to respond with. A non-empty override is
// returned as is; Accept matching is skipped entirely in that case.
func (n *Negotiator[T]) Resolve(accept, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return n.match(accept)
}

// IsAcceptable reports whether accept resolves to a registered type.
func (n *Negotiator[T]) IsAcceptable(accept string) bool {
	_, err := n.match(accept)
	return err == nil
}

func (n *Negotiator[T]) match(accept string) (string, error) {
	if accept == "" {
		if len(n.order) == 0 {
			return "", &UnsupportedError{Accept: accept}
		}
		return n.order[0], nil
	}

	for _, candidate := range strings.Split(accept, ",") {
		if strings.TrimSpace(candidate) == Wildcard {
			if len(n.order) == 0 {
				break
			}
			return n.order[0], nil
		}
		for _, registered := range n.order {
			if registered == "" {
				continue
			}
			if strings.Contains(candidate, registered) {
				return registered, nil
			}
		}
	}
	return "", &UnsupportedError{Accept: accept}
}
