// Package response turns a resource into an HTTP response in the format the
// client asked for.
package response

import (
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/observability"
	"github.com/NoxZet/Restful/internal/resource"
)

// Response writes itself to the client. The body is fully encoded before
// any header is sent, so an encoding error leaves w untouched.
type Response interface {
	ContentType() string
	Send(w http.ResponseWriter, r *http.Request) error
}

// PrettyPrinter is implemented by responses whose output can be indented.
type PrettyPrinter interface {
	SetPrettyPrint(bool)
}

// StatusSetter is implemented by responses that carry a status code.
type StatusSetter interface {
	SetStatus(int)
}

// Factory builds a Response for one content type. mapper is nil for the
// null type.
type Factory func(data *resource.Value, mapper mapping.Mapper, contentType string) Response

type base struct {
	data        *resource.Value
	mapper      mapping.Mapper
	contentType string
	prettyPrint bool
	status      int
}

func (b *base) ContentType() string { return b.contentType }

func (b *base) SetPrettyPrint(p bool) { b.prettyPrint = p }

// SetStatus overrides the default 200.
func (b *base) SetStatus(code int) { b.status = code }

func (b *base) statusCode() int {
	if b.status == 0 {
		return http.StatusOK
	}
	return b.status
}

func (b *base) encode(v *resource.Value) ([]byte, error) {
	body, err := b.mapper.Stringify(v, b.prettyPrint)
	if err != nil {
		observability.MappingErrorsTotal.WithLabelValues(b.contentType, "encode").Inc()
		return nil, err
	}
	return body, nil
}

// TextResponse sends the mapped tree as the body.
type TextResponse struct {
	base
	Charset string
}

// NewTextResponse is the Factory for text formats; it adds charset=utf-8.
func NewTextResponse(data *resource.Value, mapper mapping.Mapper, contentType string) Response {
	return &TextResponse{
		base:    base{data: data, mapper: mapper, contentType: contentType},
		Charset: "utf-8",
	}
}

// NewBinaryResponse is the Factory for formats that carry no charset.
func NewBinaryResponse(data *resource.Value, mapper mapping.Mapper, contentType string) Response {
	return &TextResponse{base: base{data: data, mapper: mapper, contentType: contentType}}
}

func (t *TextResponse) Send(w http.ResponseWriter, r *http.Request) error {
	body, err := t.encode(t.data)
	if err != nil {
		return err
	}
	ct := t.contentType
	if t.Charset != "" {
		ct += "; charset=" + t.Charset
	}
	return write(w, ct, t.statusCode(), body)
}

var callbackPattern = regexp.MustCompile(`[^a-zA-Z0-9_$.]`)

// DefaultCallback is used when the callback query value sanitizes to nothing.
const DefaultCallback = "callback"

// JSONPResponse wraps the tree in an envelope with the status and headers
// and calls the callback named by the CallbackKey query parameter. The HTTP
// status is always 200; the real one travels in the envelope.
type JSONPResponse struct {
	base
	CallbackKey string
}

func (j *JSONPResponse) Send(w http.ResponseWriter, r *http.Request) error {
	status := j.statusCode()
	ct := j.contentType + "; charset=utf-8"

	w.Header().Set("Content-Type", ct)
	envelope := resource.Map(
		resource.Pair("response", j.data),
		resource.Pair("status", resource.Scalar(status)),
		resource.Pair("headers", headerTree(w.Header())),
	)
	body, err := j.encode(envelope)
	if err != nil {
		w.Header().Del("Content-Type")
		return err
	}

	callback := SanitizeCallback(r.URL.Query().Get(j.CallbackKey))
	out := make([]byte, 0, len(callback)+len(body)+3)
	out = append(out, callback...)
	out = append(out, '(')
	out = append(out, body...)
	out = append(out, ");"...)
	return write(w, ct, http.StatusOK, out)
}

// SanitizeCallback strips everything but identifier characters and dots
// from a JSONP callback name.
func SanitizeCallback(name string) string {
	name = callbackPattern.ReplaceAllString(name, "")
	if name == "" {
		return DefaultCallback
	}
	return name
}

// NullResponse sends 204 No Content.
type NullResponse struct{}

// NewNullResponse is the Factory for resource.MIMENull.
func NewNullResponse(*resource.Value, mapping.Mapper, string) Response {
	return NullResponse{}
}

func (NullResponse) ContentType() string { return resource.MIMENull }

func (NullResponse) Send(w http.ResponseWriter, r *http.Request) error {
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func headerTree(h http.Header) *resource.Value {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	out := resource.Map()
	for _, name := range names {
		out.Set(name, resource.String(strings.Join(h[name], ", ")))
	}
	return out
}

func write(w http.ResponseWriter, contentType string, status int, body []byte) error {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
