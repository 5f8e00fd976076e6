package mapping

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NoxZet/Restful/internal/resource"
)

// YAMLMapper goes through yaml.Node so mapping order survives both ways.
// Without pretty printing the document is written in flow style.
type YAMLMapper struct{}

func (YAMLMapper) Stringify(v *resource.Value, prettyPrint bool) ([]byte, error) {
	node := yamlNode(v)
	if !prettyPrint {
		node.Style = yaml.FlowStyle
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	return buf.Bytes(), nil
}

func yamlNode(v *resource.Value) *yaml.Node {
	switch v.Kind() {
	case resource.KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.Keys() {
			child, _ := v.Get(k)
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				yamlNode(child),
			)
		}
		return n
	case resource.KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.Items() {
			n.Content = append(n.Content, yamlNode(item))
		}
		return n
	}

	switch s := v.Interface().(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(s)}
	case int64, uint64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.Text()}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: yamlFloat(s)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.Text()}
	}
}

// yamlFloat formats f so that it resolves back to !!float.
func yamlFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// maxYAMLNodes bounds the tree built from one document, counting every
// node an alias expands to.
const maxYAMLNodes = 100000

func (YAMLMapper) Parse(data []byte) (*resource.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, yamlDocumentError(err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return resource.Null(), nil
	}
	d := &yamlDecoder{expanding: make(map[*yaml.Node]bool)}
	return d.value(doc.Content[0])
}

// yamlDecoder converts a node graph into a tree. yaml.v3 resolves anchors
// into shared and possibly cyclic nodes, so aliases currently being
// expanded are tracked and the total output is capped.
type yamlDecoder struct {
	expanding map[*yaml.Node]bool
	nodes     int
}

func (d *yamlDecoder) value(n *yaml.Node) (*resource.Value, error) {
	d.nodes++
	if d.nodes > maxYAMLNodes {
		return nil, &DocumentError{Format: "YAML", Line: n.Line, Message: fmt.Sprintf("document expands to more than %d nodes", maxYAMLNodes)}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return resource.Null(), nil
		}
		return d.value(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, &DocumentError{Format: "YAML", Line: n.Line, Message: "unknown anchor " + n.Value}
		}
		if d.expanding[n.Alias] {
			return nil, &DocumentError{Format: "YAML", Line: n.Line, Message: "anchor " + n.Value + " refers to itself"}
		}
		d.expanding[n.Alias] = true
		v, err := d.value(n.Alias)
		delete(d.expanding, n.Alias)
		return v, err
	case yaml.MappingNode:
		m := resource.Map()
		for i := 0; i+1 < len(n.Content); i += 2 {
			val, err := d.value(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(n.Content[i].Value, val)
		}
		return m, nil
	case yaml.SequenceNode:
		l := resource.List()
		for _, c := range n.Content {
			item, err := d.value(c)
			if err != nil {
				return nil, err
			}
			l.Append(item)
		}
		return l, nil
	case yaml.ScalarNode:
		return fromYAMLScalar(n)
	}
	return nil, fmt.Errorf("%w: unexpected yaml node kind %d on line %d", ErrMapping, n.Kind, n.Line)
}

func fromYAMLScalar(n *yaml.Node) (*resource.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return resource.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, &DocumentError{Format: "YAML", Line: n.Line, Message: err.Error()}
		}
		return resource.Scalar(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return resource.Scalar(i), nil
		}
		var u uint64
		if err := n.Decode(&u); err == nil {
			return resource.Scalar(u), nil
		}
		return resource.String(n.Value), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, &DocumentError{Format: "YAML", Line: n.Line, Message: err.Error()}
		}
		return resource.Scalar(f), nil
	}
	return resource.String(n.Value), nil
}

// yamlDocumentError pulls the line out of "yaml: line N: msg".
func yamlDocumentError(err error) error {
	msg := strings.TrimPrefix(err.Error(), "yaml: ")
	var line int
	if strings.HasPrefix(msg, "line ") {
		num, rest, ok := strings.Cut(strings.TrimPrefix(msg, "line "), ": ")
		if n, convErr := strconv.Atoi(num); ok && convErr == nil {
			line, msg = n, rest
		}
	}
	return &DocumentError{Format: "YAML", Line: line, Message: msg}
}
