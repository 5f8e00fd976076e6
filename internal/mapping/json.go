package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NoxZet/Restful/internal/resource"
)

// JSONMapper keeps mapping key order in both directions.
type JSONMapper struct{}

func (JSONMapper) Stringify(v *resource.Value, prettyPrint bool) ([]byte, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	if !prettyPrint {
		return raw, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapping, err)
	}
	return buf.Bytes(), nil
}

func (JSONMapper) Parse(data []byte) (*resource.Value, error) {
	v, err := resource.ParseJSON(data)
	if err == nil {
		return v, nil
	}

	var syntax *json.SyntaxError
	if errors.As(err, &syntax) {
		return nil, &DocumentError{Format: "JSON", Line: lineAt(data, syntax.Offset), Message: syntax.Error()}
	}
	return nil, &DocumentError{Format: "JSON", Message: err.Error()}
}
