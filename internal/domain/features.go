package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Attributes is the raw attribute mapping of one feature. Numbers are kept as
// json.Number so epoch-millisecond timestamps keep full precision.
type Attributes map[string]any

// ParseFeatures decodes an ArcGIS feature-collection response and returns the
// attributes of every feature in source order.
func ParseFeatures(raw string) ([]Attributes, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	if err := dec.Decode(new(any)); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &ParseError{Err: err}
	}

	top, ok := doc.(map[string]any)
	if !ok {
		return nil, &SchemaError{Path: "$", Reason: "expected a JSON object"}
	}
	rawFeatures, ok := top["features"]
	if !ok {
		return nil, &SchemaError{Path: "features", Reason: "missing"}
	}
	features, ok := rawFeatures.([]any)
	if !ok {
		return nil, &SchemaError{Path: "features", Reason: "expected an array"}
	}

	out := make([]Attributes, 0, len(features))
	for i, f := range features {
		feature, ok := f.(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: fmt.Sprintf("features[%d]", i), Reason: "expected an object"}
		}
		attrs, ok := feature["attributes"].(map[string]any)
		if !ok {
			return nil, &SchemaError{Path: fmt.Sprintf("features[%d].attributes", i), Reason: "missing or not an object"}
		}
		out = append(out, Attributes(attrs))
	}
	return out, nil
}
