// Package mapping converts resource trees to and from wire formats.
//
// Every format implements Mapper. Mappers hold configuration only and
// allocate fresh state per call, so a single instance can serve concurrent
// requests. A Context selects the mapper for a Content-Type.
package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/NoxZet/Restful/internal/resource"
)

var (
	// ErrInvalidInput is returned when the tree cannot be represented in the
	// target format at all, e.g. a bare scalar as an XML document.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedDocument is matched by every *DocumentError.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrMapping covers any other failure translating between a document
	// and a tree.
	ErrMapping = errors.New("mapping failed")
	// ErrUnknownMapper is returned by Context.Mapper for unregistered types.
	ErrUnknownMapper = errors.New("no mapper for content type")
)

// DocumentError reports input that is not a well-formed document. Line is
// 1-based and 0 when the parser does not report one.
type DocumentError struct {
	Format  string
	Line    int
	Message string
}

func (e *DocumentError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("input is not valid %s document: %s on line %d", e.Format, e.Message, e.Line)
	}
	return fmt.Sprintf("input is not valid %s document: %s", e.Format, e.Message)
}

func (e *DocumentError) Unwrap() error { return ErrMalformedDocument }

// Mapper converts between a tree and one wire format.
type Mapper interface {
	Stringify(v *resource.Value, prettyPrint bool) ([]byte, error)
	Parse(data []byte) (*resource.Value, error)
}

// Context maps content types to mappers. Like the format registry it is
// filled at startup and only read afterwards.
type Context struct {
	mappers map[string]Mapper
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{mappers: make(map[string]Mapper)}
}

// DefaultContext returns a Context with every built-in mapper registered.
// xmlRoot is the XML root element name; empty disables the wrapper.
func DefaultContext(xmlRoot string) *Context {
	c := NewContext()
	jm := &JSONMapper{}
	c.Register(resource.MIMEJSON, jm)
	c.Register(resource.MIMEJSONP, jm)
	c.Register(resource.MIMEQuery, &QueryMapper{})
	c.Register(resource.MIMEXML, &XMLMapper{RootElement: xmlRoot})
	c.Register("text/xml", &XMLMapper{RootElement: xmlRoot})
	c.Register(resource.MIMEYAML, &YAMLMapper{})
	c.Register(resource.MIMEProtobuf, &ProtobufMapper{})
	return c
}

// Register sets the mapper for contentType, replacing any previous one.
func (c *Context) Register(contentType string, m Mapper) {
	c.mappers[BaseType(contentType)] = m
}

// Mapper returns the mapper for contentType. Parameters such as charset
// are ignored.
func (c *Context) Mapper(contentType string) (Mapper, error) {
	m, ok := c.mappers[BaseType(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMapper, contentType)
	}
	return m, nil
}

// BaseType strips MIME parameters and lowercases the type.
func BaseType(contentType string) string {
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// lineAt returns the 1-based line of byte offset off in data.
func lineAt(data []byte, off int64) int {
	if off > int64(len(data)) {
		off = int64(len(data))
	}
	line := 1
	for _, b := range data[:off] {
		if b == '\n' {
			line++
		}
	}
	return line
}
