package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/NoxZet/Restful/internal/mapping"
	"github.com/NoxZet/Restful/internal/negotiate"
	"github.com/NoxZet/Restful/internal/observability"
	"github.com/NoxZet/Restful/internal/resource"
)

var (
	// ErrConfiguration is returned for registrations that can never work.
	ErrConfiguration = errors.New("invalid response configuration")
	// ErrUnregisteredResponse is returned when a forced content type has no
	// registered factory.
	ErrUnregisteredResponse = errors.New("unregistered response type")
)

// Config holds the query parameter names and defaults the factory honours.
type Config struct {
	// JSONPKey names the callback parameter. Its presence forces JSONP.
	// Empty disables the override.
	JSONPKey string
	// PrettyPrintKey names the parameter that toggles indentation with
	// "true" or "false".
	PrettyPrintKey string
	PrettyPrint    bool
}

// DefaultConfig returns jsonp and prettyPrint as keys, pretty output on.
func DefaultConfig() Config {
	return Config{
		JSONPKey:       "jsonp",
		PrettyPrintKey: "prettyPrint",
		PrettyPrint:    true,
	}
}

// ResponseFactory negotiates the format for a request and builds the
// matching Response. Registration happens at startup; Create is safe for
// concurrent use afterwards.
type ResponseFactory struct {
	cfg     Config
	formats *negotiate.Negotiator[Factory]
	mappers *mapping.Context
}

// NewResponseFactory registers JSON, JSONP, query string, XML and null, in
// that order. JSON is therefore the default format.
func NewResponseFactory(cfg Config, mappers *mapping.Context) *ResponseFactory {
	f := &ResponseFactory{cfg: cfg, mappers: mappers}
	f.formats = negotiate.New(negotiate.Config[Factory]{Entries: []negotiate.Entry[Factory]{
		{MIMEType: resource.MIMEJSON, Handler: NewTextResponse},
		{MIMEType: resource.MIMEJSONP, Handler: f.newJSONPResponse},
		{MIMEType: resource.MIMEQuery, Handler: NewTextResponse},
		{MIMEType: resource.MIMEXML, Handler: NewTextResponse},
		{MIMEType: resource.MIMENull, Handler: NewNullResponse},
	}})
	return f
}

func (f *ResponseFactory) newJSONPResponse(data *resource.Value, mapper mapping.Mapper, contentType string) Response {
	return &JSONPResponse{
		base:        base{data: data, mapper: mapper, contentType: contentType},
		CallbackKey: f.cfg.JSONPKey,
	}
}

// RegisterResponse adds or replaces the factory for mimeType. A replaced
// type keeps its position in the negotiation order.
func (f *ResponseFactory) RegisterResponse(mimeType string, factory Factory) error {
	if mimeType == "" {
		return fmt.Errorf("%w: empty MIME type", ErrConfiguration)
	}
	if factory == nil {
		return fmt.Errorf("%w: nil factory for %s", ErrConfiguration, mimeType)
	}
	f.formats.Register(mimeType, factory)
	return nil
}

// UnregisterResponse removes mimeType. Unknown types are ignored.
func (f *ResponseFactory) UnregisterResponse(mimeType string) {
	f.formats.Unregister(mimeType)
}

// Types lists registered MIME types in negotiation order.
func (f *ResponseFactory) Types() []string {
	return f.formats.Types()
}

// IsAcceptable reports whether the request's Accept header can be served.
func (f *ResponseFactory) IsAcceptable(r *http.Request) bool {
	return f.formats.IsAcceptable(r.Header.Get("Accept"))
}

// Create builds the response for res. The content type is taken from
// contentType, then res.ContentType, and only then negotiated from the
// request. Resources without data produce a NullResponse.
func (f *ResponseFactory) Create(r *http.Request, res resource.Resource, contentType string) (Response, error) {
	if contentType == "" {
		contentType = res.ContentType
	}
	if contentType == "" {
		ct, err := f.formats.Resolve(r.Header.Get("Accept"), f.override(r))
		if err != nil {
			observability.UnsupportedMediaTypeTotal.Inc()
			return nil, err
		}
		contentType = ct
	}

	factory, ok := f.formats.Lookup(contentType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredResponse, contentType)
	}

	if !res.HasData() || contentType == resource.MIMENull {
		observability.NegotiatedTotal.WithLabelValues(resource.MIMENull).Inc()
		if null, ok := f.formats.Lookup(resource.MIMENull); ok {
			return null(nil, nil, resource.MIMENull), nil
		}
		return NullResponse{}, nil
	}

	mapper, err := f.mappers.Mapper(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	resp := factory(res.Data, mapper, contentType)
	if pp, ok := resp.(PrettyPrinter); ok {
		pp.SetPrettyPrint(f.isPrettyPrint(r))
	}
	observability.NegotiatedTotal.WithLabelValues(contentType).Inc()
	return resp, nil
}

func (f *ResponseFactory) override(r *http.Request) string {
	if f.cfg.JSONPKey == "" {
		return ""
	}
	if r.URL.Query().Get(f.cfg.JSONPKey) == "" {
		return ""
	}
	if _, ok := f.formats.Lookup(resource.MIMEJSONP); !ok {
		return ""
	}
	return resource.MIMEJSONP
}

func (f *ResponseFactory) isPrettyPrint(r *http.Request) bool {
	if f.cfg.PrettyPrintKey != "" {
		switch r.URL.Query().Get(f.cfg.PrettyPrintKey) {
		case "true":
			return true
		case "false":
			return false
		}
	}
	return f.cfg.PrettyPrint
}
