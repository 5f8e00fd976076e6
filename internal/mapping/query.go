package mapping

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/NoxZet/Restful/internal/resource"
)

// QueryMapper handles application/x-www-form-urlencoded bodies using
// bracket notation for nesting: a[b]=1&a[c][0]=x&a[c][1]=y.
//
// Nulls are skipped on encode. On decode "a[]=x" appends, and any mapping
// whose keys are exactly "0".."n-1" in order becomes a list. All decoded
// scalars are strings.
type QueryMapper struct{}

func (QueryMapper) Stringify(v *resource.Value, _ bool) ([]byte, error) {
	if !v.IsContainer() {
		return nil, fmt.Errorf("%w: query data must be a list or a map, got %s", ErrInvalidInput, v.Kind())
	}

	var pairs []string
	var walk func(prefix string, v *resource.Value)
	walk = func(prefix string, v *resource.Value) {
		switch v.Kind() {
		case resource.KindMap:
			for _, k := range v.Keys() {
				child, _ := v.Get(k)
				walk(queryKey(prefix, k), child)
			}
		case resource.KindList:
			for i, item := range v.Items() {
				walk(queryKey(prefix, strconv.Itoa(i)), item)
			}
		default:
			if v.IsNull() {
				return
			}
			pairs = append(pairs, url.QueryEscape(prefix)+"="+url.QueryEscape(v.Text()))
		}
	}
	walk("", v)

	return []byte(strings.Join(pairs, "&")), nil
}

func queryKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "[" + key + "]"
}

func (QueryMapper) Parse(data []byte) (*resource.Value, error) {
	root := resource.Map()

	for _, part := range strings.Split(string(data), "&") {
		if part == "" {
			continue
		}
		rawKey, rawVal, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, &DocumentError{Format: "query", Message: err.Error()}
		}
		val, err := url.QueryUnescape(rawVal)
		if err != nil {
			return nil, &DocumentError{Format: "query", Message: err.Error()}
		}

		path := splitQueryKey(key)
		if len(path) == 0 {
			continue
		}
		setQueryPath(root, path, val)
	}

	return listify(root), nil
}

// splitQueryKey turns "a[b][]" into ["a", "b", ""]. Text after an
// unterminated bracket is ignored.
func splitQueryKey(key string) []string {
	base, rest, found := strings.Cut(key, "[")
	if base == "" {
		return nil
	}
	path := []string{base}
	if !found {
		return path
	}
	rest = "[" + rest
	for strings.HasPrefix(rest, "[") {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path
}

func setQueryPath(node *resource.Value, path []string, val string) {
	for i, seg := range path {
		if seg == "" {
			seg = nextIndex(node)
		}
		if i == len(path)-1 {
			node.Set(seg, resource.String(val))
			return
		}
		child, ok := node.Get(seg)
		if !ok || !child.IsMap() {
			child = resource.Map()
			node.Set(seg, child)
		}
		node = child
	}
}

func nextIndex(m *resource.Value) string {
	n := m.Len()
	for {
		k := strconv.Itoa(n)
		if _, taken := m.Get(k); !taken {
			return k
		}
		n++
	}
}

// listify converts mappings keyed "0".."n-1" into lists, bottom up.
func listify(v *resource.Value) *resource.Value {
	if !v.IsMap() {
		return v
	}
	keys := v.Keys()
	sequential := len(keys) > 0
	for i, k := range keys {
		child, _ := v.Get(k)
		v.Set(k, listify(child))
		if k != strconv.Itoa(i) {
			sequential = false
		}
	}
	if !sequential {
		return v
	}
	l := resource.List()
	for _, k := range keys {
		child, _ := v.Get(k)
		l.Append(child)
	}
	return l
}
