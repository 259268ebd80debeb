package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Recognized claim metadata keys.
const (
	MetaKeyType        = "type"
	MetaKeyTitle       = "title"
	MetaKeyDescription = "description"
	MetaKeySubType     = "subType"
	MetaKeySubAnswer   = "subAnswer"
	MetaKeyIssuer      = "issuer"
	MetaKeyTimestamp   = "timestamp"
	MetaKeyAttributes  = "attributes"
)

// ClaimMetadata is the decoded form of a token's claim data.
// It is either *StructuredMetadata or RawMetadata.
type ClaimMetadata interface {
	// Structured reports whether the claim data was recognized.
	Structured() bool
}

// StructuredMetadata holds the recognized fields of a claim payload.
//
// Title/Description and SubType/SubAnswer are two spellings of the same
// pair; use Label and Detail to display whichever is present.
//
// Decoded values remember which recognized keys were present and the JSON
// text of values that were not strings, so encoding returns numbers and
// booleans unchanged.
type StructuredMetadata struct {
	Type        string         `json:"type,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	SubType     string         `json:"subType,omitempty"`
	SubAnswer   string         `json:"subAnswer,omitempty"`
	Issuer      string         `json:"issuer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`

	present  map[string]bool
	literals map[string]json.RawMessage
}

type metaField struct {
	key string
	val *string
}

// textFields lists the recognized scalar fields in encoding order.
func (m *StructuredMetadata) textFields() []metaField {
	return []metaField{
		{MetaKeyType, &m.Type},
		{MetaKeyTitle, &m.Title},
		{MetaKeyDescription, &m.Description},
		{MetaKeySubType, &m.SubType},
		{MetaKeySubAnswer, &m.SubAnswer},
		{MetaKeyIssuer, &m.Issuer},
		{MetaKeyTimestamp, &m.Timestamp},
	}
}

// Structured implements ClaimMetadata.
func (*StructuredMetadata) Structured() bool { return true }

// Label returns the title, falling back to the sub-type when the title
// is absent. A decoded title that is present but empty is returned as is.
func (m *StructuredMetadata) Label() string {
	if m.Title != "" || m.present[MetaKeyTitle] {
		return m.Title
	}
	return m.SubType
}

// Detail returns the description, falling back to the sub-answer when the
// description is absent.
func (m *StructuredMetadata) Detail() string {
	if m.Description != "" || m.present[MetaKeyDescription] {
		return m.Description
	}
	return m.SubAnswer
}

// load fills m from a decoded JSON object and returns how many recognized
// fields carried a value.
func (m *StructuredMetadata) load(fields map[string]json.RawMessage) int {
	recognized := 0
	for _, f := range m.textFields() {
		v, ok := fields[f.key]
		if !ok {
			continue
		}
		text, literal, ok := scalarText(v)
		if !ok {
			continue
		}
		*f.val = text
		if m.present == nil {
			m.present = make(map[string]bool)
		}
		m.present[f.key] = true
		if literal != nil {
			if m.literals == nil {
				m.literals = make(map[string]json.RawMessage)
			}
			m.literals[f.key] = literal
		}
		if text != "" {
			recognized++
		}
	}

	if v, ok := fields[MetaKeyAttributes]; ok {
		if attrs := decodeAttributes(v); len(attrs) > 0 {
			m.Attributes = attrs
			recognized++
		}
	}
	return recognized
}

// UnmarshalJSON decodes recognized fields leniently: non-string scalars are
// kept as their JSON text and unknown keys are ignored.
func (m *StructuredMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*m = StructuredMetadata{}
	m.load(fields)
	return nil
}

// MarshalJSON writes recognized fields in a fixed order. Empty fields are
// omitted unless they were present when decoded.
func (m StructuredMetadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.WriteString(strconv.Quote(key))
		buf.WriteByte(':')
	}

	for _, f := range m.textFields() {
		value := *f.val
		if value == "" && !m.present[f.key] {
			continue
		}
		writeKey(f.key)
		if lit, ok := m.literals[f.key]; ok && string(lit) == value {
			buf.Write(lit)
			continue
		}
		if err := writeJSONValue(&buf, value); err != nil {
			return nil, err
		}
	}

	if len(m.Attributes) > 0 {
		writeKey(MetaKeyAttributes)
		if err := writeJSONValue(&buf, m.Attributes); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// RawMetadata preserves claim data that is not a recognized payload.
type RawMetadata struct {
	// Value is the original claim data, verbatim.
	Value string

	// Reason records why structured decoding was not possible.
	// It is informational only and never returned as an error.
	Reason error
}

// Structured implements ClaimMetadata.
func (RawMetadata) Structured() bool { return false }

// DecodeMetadata decodes claim data. It never fails: anything that is not
// a JSON object carrying at least one non-empty recognized field comes
// back as RawMetadata holding the input unchanged.
func DecodeMetadata(raw string) ClaimMetadata {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return RawMetadata{Value: raw, Reason: ErrMalformedMetadata.WithCause(err)}
	}
	if fields == nil {
		return RawMetadata{Value: raw, Reason: ErrMalformedMetadata.WithDetails("not a JSON object")}
	}

	m := &StructuredMetadata{}
	if m.load(fields) == 0 {
		return RawMetadata{Value: raw, Reason: ErrMalformedMetadata.WithDetails("no recognized fields")}
	}
	return m
}

// EncodeMetadata serializes metadata for use as claim data.
// Raw metadata encodes to its original value.
func EncodeMetadata(m ClaimMetadata) (string, error) {
	switch v := m.(type) {
	case *StructuredMetadata:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", ErrBadRequest.WithDetails("encode metadata").WithCause(err)
		}
		return strings.TrimRight(buf.String(), "\n"), nil
	case RawMetadata:
		return v.Value, nil
	case nil:
		return "", ErrBadRequest.WithDetails("nil metadata")
	default:
		return "", ErrBadRequest.WithDetails("unsupported metadata type")
	}
}

// scalarText returns a JSON string's contents. Any other non-null value
// comes back as its JSON text, also returned as literal. ok is false for null.
func scalarText(v json.RawMessage) (text string, literal json.RawMessage, ok bool) {
	trimmed := bytes.TrimSpace(v)
	if bytes.Equal(trimmed, []byte("null")) {
		return "", nil, false
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s, nil, true
	}
	literal = append(json.RawMessage(nil), trimmed...)
	return string(literal), literal, true
}

func decodeAttributes(v json.RawMessage) map[string]any {
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()

	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil
	}
	return attrs
}
