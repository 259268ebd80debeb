package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestDecodeMetadata_Structured(t *testing.T) {
	raw := `{"type":"KYC","subType":"Verified","subAnswer":"18+"}`

	m, ok := DecodeMetadata(raw).(*StructuredMetadata)
	if !ok {
		t.Fatalf("expected structured metadata")
	}
	if m.Type != "KYC" || m.SubType != "Verified" || m.SubAnswer != "18+" {
		t.Errorf("decoded = %+v", m)
	}
	if m.Label() != "Verified" || m.Detail() != "18+" {
		t.Errorf("Label/Detail = %q/%q", m.Label(), m.Detail())
	}
}

func TestStructuredMetadata_PrefersTitle(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantLabel  string
		wantDetail string
	}{
		{"title pair", `{"title":"Age","description":"Over 18"}`, "Age", "Over 18"},
		{"both pairs", `{"title":"Age","description":"Over 18","subType":"x","subAnswer":"y"}`, "Age", "Over 18"},
		{"mixed", `{"title":"Age","subAnswer":"y"}`, "Age", "y"},
		{"sub pair", `{"subType":"Residency","subAnswer":"EU"}`, "Residency", "EU"},
		{"empty title present", `{"title":"","subType":"Verified","subAnswer":"18+"}`, "", "18+"},
		{"null title absent", `{"title":null,"subType":"Verified"}`, "Verified", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := DecodeMetadata(tt.raw).(*StructuredMetadata)
			if !ok {
				t.Fatalf("expected structured metadata")
			}
			if m.Label() != tt.wantLabel {
				t.Errorf("Label() = %q, want %q", m.Label(), tt.wantLabel)
			}
			if m.Detail() != tt.wantDetail {
				t.Errorf("Detail() = %q, want %q", m.Detail(), tt.wantDetail)
			}
		})
	}
}

func TestDecodeMetadata_RawFallback(t *testing.T) {
	inputs := []string{
		"plain text claim",
		"",
		"{not json",
		"[1,2,3]",
		`"a string"`,
		"42",
		"null",
		`{"unrelated":"field"}`,
		`{"title":""}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			m := DecodeMetadata(in)
			raw, ok := m.(RawMetadata)
			if !ok {
				t.Fatalf("DecodeMetadata(%q) = %T, want RawMetadata", in, m)
			}
			if raw.Value != in {
				t.Errorf("Value = %q, want %q", raw.Value, in)
			}
			if m.Structured() {
				t.Error("raw metadata reports Structured")
			}
			if !errors.Is(raw.Reason, ErrMalformedMetadata) {
				t.Errorf("Reason = %v, want ErrMalformedMetadata", raw.Reason)
			}
		})
	}
}

func TestDecodeMetadata_Scalars(t *testing.T) {
	m, ok := DecodeMetadata(`{"type":"KYC","timestamp":1700000000,"issuer":null}`).(*StructuredMetadata)
	if !ok {
		t.Fatal("expected structured metadata")
	}
	if m.Timestamp != "1700000000" {
		t.Errorf("Timestamp = %q", m.Timestamp)
	}
	if m.Issuer != "" {
		t.Errorf("Issuer = %q, want empty", m.Issuer)
	}
}

func TestDecodeMetadata_Attributes(t *testing.T) {
	m, ok := DecodeMetadata(`{"type":"KYC","attributes":{"level":2,"country":"DE"}}`).(*StructuredMetadata)
	if !ok {
		t.Fatal("expected structured metadata")
	}
	if m.Attributes["level"] != json.Number("2") || m.Attributes["country"] != "DE" {
		t.Errorf("Attributes = %v", m.Attributes)
	}

	m, ok = DecodeMetadata(`{"type":"KYC","attributes":[1,2]}`).(*StructuredMetadata)
	if !ok {
		t.Fatal("expected structured metadata")
	}
	if m.Attributes != nil {
		t.Errorf("non-object attributes should be ignored, got %v", m.Attributes)
	}
}

func TestMetadata_RoundTrip(t *testing.T) {
	inputs := []string{
		`{"type":"KYC","subType":"Verified","subAnswer":"18+"}`,
		`{"type":"Education","title":"Degree","description":"BSc <Physics> & Math","issuer":"0xabc","timestamp":"2024-01-01T00:00:00Z"}`,
		`{"type":"KYC","attributes":{"level":3,"tags":["a","b"],"nested":{"k":"v"}}}`,
		`{"type":"KYC","issuer":"x","timestamp":1700000000}`,
		`{"type":"KYC","subType":true,"subAnswer":18.5}`,
		`{"type":"KYC","title":"","subType":"Verified"}`,
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first := DecodeMetadata(in)
			if !first.Structured() {
				t.Fatalf("DecodeMetadata(%s) is raw", in)
			}
			encoded, err := EncodeMetadata(first)
			if err != nil {
				t.Fatalf("EncodeMetadata: %v", err)
			}
			if !sameJSON(t, in, encoded) {
				t.Errorf("EncodeMetadata() = %s, want the same JSON as %s", encoded, in)
			}
			second := DecodeMetadata(encoded)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("round trip changed recognized fields:\n first  %+v\n second %+v", first, second)
			}
		})
	}
}

func sameJSON(t *testing.T, a, b string) bool {
	t.Helper()
	var va, vb any
	if err := json.Unmarshal([]byte(a), &va); err != nil {
		t.Fatalf("unmarshal %s: %v", a, err)
	}
	if err := json.Unmarshal([]byte(b), &vb); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return reflect.DeepEqual(va, vb)
}

func TestStructuredMetadata_EditedLiteral(t *testing.T) {
	m := DecodeMetadata(`{"type":"KYC","timestamp":1700000000}`).(*StructuredMetadata)
	m.Timestamp = "2024-01-01T00:00:00Z"

	got, err := EncodeMetadata(m)
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	if want := `{"type":"KYC","timestamp":"2024-01-01T00:00:00Z"}`; got != want {
		t.Errorf("EncodeMetadata() = %s, want %s", got, want)
	}
}

func TestStructuredMetadata_UnmarshalJSON(t *testing.T) {
	var m StructuredMetadata
	if err := json.Unmarshal([]byte(`{"type":"KYC","timestamp":1700000000,"extra":1}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Type != "KYC" || m.Timestamp != "1700000000" {
		t.Errorf("decoded = %+v", m)
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"type":"KYC","timestamp":1700000000}`; string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}

	if err := json.Unmarshal([]byte(`[1]`), &m); err == nil {
		t.Error("Unmarshal of an array succeeded")
	}
}

func TestEncodeMetadata(t *testing.T) {
	got, err := EncodeMetadata(&StructuredMetadata{Type: "KYC", SubType: "Verified", SubAnswer: "18+"})
	if err != nil {
		t.Fatalf("EncodeMetadata: %v", err)
	}
	if want := `{"type":"KYC","subType":"Verified","subAnswer":"18+"}`; got != want {
		t.Errorf("EncodeMetadata() = %s, want %s", got, want)
	}

	got, err = EncodeMetadata(RawMetadata{Value: "free text"})
	if err != nil || got != "free text" {
		t.Errorf("raw encode = %q, %v", got, err)
	}

	if _, err := EncodeMetadata(nil); !errors.Is(err, ErrBadRequest) {
		t.Errorf("nil metadata error = %v, want ErrBadRequest", err)
	}
}
