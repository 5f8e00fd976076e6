package mapping

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/net/html/charset"

	"github.com/NoxZet/Restful/internal/resource"
)

var (
	errStartTagExpected = errors.New("start tag expected")
	errExtraContent     = errors.New("extra content at the end of the document")
)

const (
	// DefaultRootElement wraps encoded documents unless configured otherwise.
	DefaultRootElement = "root"
	// ItemElement names list items that have no mapping key above them.
	ItemElement = "item"
)

// XMLMapper converts trees to XML and back.
//
// Encoding: a mapping entry becomes an element named by its key; a list
// stored under a key becomes repeated sibling elements named by that key,
// with no element for the list itself; list items reached without a key
// are named ItemElement; scalars become text.
//
// Decoding reverses this with a fixed rule: child elements are grouped by
// tag, a tag seen more than once becomes a list, a tag seen once becomes a
// single value. Attributes, comments and processing instructions are
// dropped, and an element with no child elements and no text decodes to
// the empty string. A list with one item therefore comes back as a plain
// value and numbers come back as strings.
type XMLMapper struct {
	// RootElement encloses the encoded tree. Empty disables the wrapper,
	// which yields one top-level element per entry.
	RootElement string
}

// NewXMLMapper returns a mapper using DefaultRootElement.
func NewXMLMapper() *XMLMapper {
	return &XMLMapper{RootElement: DefaultRootElement}
}

func (m *XMLMapper) Stringify(v *resource.Value, prettyPrint bool) ([]byte, error) {
	return EncodeXML(v, prettyPrint, m.RootElement)
}

func (m *XMLMapper) Parse(data []byte) (*resource.Value, error) {
	return DecodeXML(data)
}

// EncodeXML serializes v as an XML document. Only lists and mappings can be
// encoded; root names the enclosing element and may be empty.
func EncodeXML(v *resource.Value, prettyPrint bool, root string) ([]byte, error) {
	if !v.IsContainer() {
		return nil, fmt.Errorf("%w: xml data must be a list or a map, got %s", ErrInvalidInput, v.Kind())
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	if prettyPrint {
		enc.Indent("", "  ")
	}

	var err error
	if root != "" {
		err = writeXMLElement(enc, root, v)
	} else {
		err = writeXMLValue(enc, v, ItemElement)
	}
	if err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// writeXMLValue writes the content of v. tag is the name inherited from the
// closest mapping key and is used for list items.
func writeXMLValue(enc *xml.Encoder, v *resource.Value, tag string) error {
	switch v.Kind() {
	case resource.KindMap:
		for _, key := range v.Keys() {
			child, _ := v.Get(key)
			if child.IsList() {
				if err := writeXMLValue(enc, child, key); err != nil {
					return err
				}
				continue
			}
			if err := writeXMLElement(enc, key, child); err != nil {
				return err
			}
		}
	case resource.KindList:
		for _, item := range v.Items() {
			if err := writeXMLElement(enc, tag, item); err != nil {
				return err
			}
		}
	default:
		if err := enc.EncodeToken(xml.CharData(v.Text())); err != nil {
			return fmt.Errorf("%w: %v", ErrMapping, err)
		}
	}
	return nil
}

func writeXMLElement(enc *xml.Encoder, name string, v *resource.Value) error {
	if !isXMLName(name) {
		return fmt.Errorf("%w: %q is not a valid element name", ErrMapping, name)
	}
	start := xml.StartElement{Name: xml.Name{Local: name}}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("%w: %v", ErrMapping, err)
	}
	if err := writeXMLValue(enc, v, name); err != nil {
		return err
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("%w: %v", ErrMapping, err)
	}
	return nil
}

// DecodeXML parses an XML document into a tree. The root element name is
// not part of the result.
//
// A root element with child elements decodes to a mapping; one holding only
// text decodes to that text; an empty root decodes to an empty mapping,
// unless it carries attributes, in which case it decodes to "" like any
// other empty element.
func DecodeXML(data []byte) (*resource.Value, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, xmlDocumentError(dec, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			v, err := readXMLElement(dec)
			if err != nil {
				return nil, xmlDocumentError(dec, err)
			}
			if err := expectXMLEnd(dec); err != nil {
				return nil, err
			}
			if v.IsScalar() && v.Text() == "" && len(t.Attr) == 0 {
				return resource.Map(), nil
			}
			return v, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, xmlDocumentError(dec, errStartTagExpected)
			}
		}
	}
}

// readXMLElement consumes tokens up to and including the end tag of the
// element whose start tag was just read.
func readXMLElement(dec *xml.Decoder) (*resource.Value, error) {
	var (
		text   strings.Builder
		order  []string
		groups map[string][]*resource.Value
	)

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			child, err := readXMLElement(dec)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			if groups == nil {
				groups = make(map[string][]*resource.Value)
			}
			if _, seen := groups[name]; !seen {
				order = append(order, name)
			}
			groups[name] = append(groups[name], child)
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			return buildXMLNode(text.String(), order, groups), nil
		}
	}
}

func buildXMLNode(text string, order []string, groups map[string][]*resource.Value) *resource.Value {
	if len(order) == 0 {
		if strings.TrimSpace(text) == "" {
			return resource.String("")
		}
		return resource.String(text)
	}

	m := resource.Map()
	for _, name := range order {
		group := groups[name]
		if len(group) == 1 {
			m.Set(name, group[0])
			continue
		}
		m.Set(name, resource.List(group...))
	}
	return m
}

// expectXMLEnd makes sure nothing but whitespace, comments and processing
// instructions follow the root element.
func expectXMLEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return xmlDocumentError(dec, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return xmlDocumentError(dec, errExtraContent)
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xmlDocumentError(dec, errExtraContent)
			}
		}
	}
}

func xmlDocumentError(dec *xml.Decoder, err error) error {
	var syntax *xml.SyntaxError
	switch {
	case errors.As(err, &syntax):
		return &DocumentError{Format: "XML", Line: syntax.Line, Message: syntax.Msg}
	case errors.Is(err, io.EOF):
		line, _ := dec.InputPos()
		return &DocumentError{Format: "XML", Line: line, Message: "document is empty"}
	case errors.Is(err, io.ErrUnexpectedEOF):
		line, _ := dec.InputPos()
		return &DocumentError{Format: "XML", Line: line, Message: "unexpected EOF"}
	case errors.Is(err, errStartTagExpected), errors.Is(err, errExtraContent):
		line, _ := dec.InputPos()
		return &DocumentError{Format: "XML", Line: line, Message: err.Error()}
	case strings.HasPrefix(err.Error(), "xml: "):
		// charset and decoder state errors
		line, _ := dec.InputPos()
		return &DocumentError{Format: "XML", Line: line, Message: strings.TrimPrefix(err.Error(), "xml: ")}
	}
	return fmt.Errorf("%w: %v", ErrMapping, err)
}

// isXMLName is a conservative check for element names: a letter or '_'
// followed by letters, digits, '-', '.' or '_'.
func isXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case unicode.IsLetter(r) || r == '_':
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}
