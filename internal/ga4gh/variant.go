// Package ga4gh provides a client for GA4GH variant-search backends.
package ga4gh

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Variant represents a single variant record returned by a search.
type Variant struct {
	ID             string     `json:"id"`
	VariantSetID   string     `json:"variantSetId"`
	ReferenceName  string     `json:"referenceName"`
	Start          Position   `json:"start"`
	End            Position   `json:"end"`
	ReferenceBases string     `json:"referenceBases"`
	AlternateBases []string   `json:"alternateBases"`
	Info           InfoValues `json:"info"`
}

// Position is a 0-based genomic coordinate. proto3 JSON encodes int64 fields
// as strings, but some backends emit plain numbers; both are accepted.
type Position int64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Position) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*p = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid position %s: %w", data, err)
	}
	*p = Position(n)
	return nil
}

// String returns the base-10 representation.
func (p Position) String() string {
	return strconv.FormatInt(int64(p), 10)
}

// InfoValues maps an annotation field name to its values.
type InfoValues map[string]*structpb.ListValue

// UnmarshalJSON accepts both the protobuf JSON form of a ListValue
// (["BRCA1"]) and the older attribute form ({"values":[{"stringValue":"BRCA1"}]}).
func (iv *InfoValues) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode info: %w", err)
	}

	out := make(InfoValues, len(raw))
	for key, msg := range raw {
		lv, err := decodeListValue(msg)
		if err != nil {
			return fmt.Errorf("decode info field %q: %w", key, err)
		}
		out[key] = lv
	}
	*iv = out
	return nil
}

func decodeListValue(msg json.RawMessage) (*structpb.ListValue, error) {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &structpb.ListValue{}, nil
	}

	if trimmed[0] == '[' {
		lv := &structpb.ListValue{}
		if err := protojson.Unmarshal(trimmed, lv); err != nil {
			return nil, err
		}
		return lv, nil
	}

	var attr struct {
		Values []map[string]any `json:"values"`
	}
	if err := json.Unmarshal(trimmed, &attr); err != nil {
		return nil, err
	}
	lv := &structpb.ListValue{Values: make([]*structpb.Value, 0, len(attr.Values))}
	for _, v := range attr.Values {
		lv.Values = append(lv.Values, attributeValue(v))
	}
	return lv, nil
}

// attributeValue converts a legacy AttributeValue object, which holds exactly
// one typed member, into a structpb.Value.
func attributeValue(v map[string]any) *structpb.Value {
	if s, ok := v["stringValue"].(string); ok {
		return structpb.NewStringValue(s)
	}
	for _, member := range v {
		if pv, err := structpb.NewValue(member); err == nil {
			return pv
		}
	}
	return structpb.NewNullValue()
}

// FirstString returns the string value of the first entry for the field.
// ok is false when the field is absent; err is set when the field is present
// but holds no values.
func (v *Variant) FirstString(field string) (s string, ok bool, err error) {
	lv, ok := v.Info[field]
	if !ok {
		return "", false, nil
	}
	if lv == nil || len(lv.GetValues()) == 0 {
		return "", true, fmt.Errorf("info field %q has no values", field)
	}
	return lv.GetValues()[0].GetStringValue(), true, nil
}
