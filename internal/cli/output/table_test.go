package output

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"
)

type claimRow struct {
	ID      uint64    `json:"id"`
	Owner   string    `json:"owner"`
	URI     string    `json:"metadata_uri"`
	Minted  time.Time `json:"minted_at" table:"wide"`
	Secret  string    `json:"secret" table:"-"`
	private string    //nolint:unused
}

type kvTable struct{ pairs [][2]string }

func (k kvTable) Table(wide bool) *Table {
	t := &Table{Headers: []string{"K", "V"}}
	for _, p := range k.pairs {
		t.AddRow(p[0], p[1])
	}
	if wide {
		t.AddRow("wide", "yes")
	}
	return t
}

func TestTableFormatter_Format_Table(t *testing.T) {
	table := &Table{
		Headers: []string{"NAME", "VALUE"},
		Rows: [][]string{
			{"key1", "value1"},
			{"key2", "value2"},
		},
	}

	tests := []struct {
		name      string
		data      any
		noHeaders bool
		want      []string
		notWant   []string
	}{
		{"pointer", table, false, []string{"NAME", "key1", "value2"}, nil},
		{"value", *table, false, []string{"NAME", "key2"}, nil},
		{"no headers", table, true, []string{"key1"}, []string{"NAME"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			f := &TableFormatter{NoHeaders: tt.noHeaders}
			if err := f.Format(&buf, tt.data); err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestTableFormatter_Format_Tabular(t *testing.T) {
	data := kvTable{pairs: [][2]string{{"owner", "0xabc"}}}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), "0xabc") || strings.Contains(buf.String(), "wide") {
		t.Errorf("narrow output = %q", buf.String())
	}

	buf.Reset()
	if err := (&TableFormatter{Wide: true}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(buf.String(), "wide") {
		t.Errorf("wide output = %q, want wide row", buf.String())
	}
}

func TestTableFormatter_Format_Nil(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, nil); err != nil {
		t.Fatalf("Format(nil) error = %v", err)
	}
	if buf.Len() != 0 {
		t.Error("Format(nil) should produce empty output")
	}
}

func TestTableFormatter_Format_Slice(t *testing.T) {
	minted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	data := []claimRow{
		{ID: 1, Owner: "0xaaa", URI: "ipfs://one", Minted: minted, Secret: "s1"},
		{ID: 2, Owner: "0xbbb", Minted: minted},
	}

	t.Run("narrow", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, data); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		out := buf.String()
		for _, s := range []string{"ID", "OWNER", "METADATA_URI", "0xaaa", "ipfs://one"} {
			if !strings.Contains(out, s) {
				t.Errorf("output missing %q:\n%s", s, out)
			}
		}
		for _, s := range []string{"MINTED_AT", "SECRET", "s1", "private"} {
			if strings.Contains(out, s) {
				t.Errorf("output should not contain %q:\n%s", s, out)
			}
		}
		lines := strings.Split(strings.TrimSpace(out), "\n")
		if len(lines) != 3 {
			t.Errorf("lines = %d, want 3", len(lines))
		}
		if !strings.Contains(lines[2], "-") {
			t.Errorf("empty URI should render as '-': %q", lines[2])
		}
	})

	t.Run("wide", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{Wide: true}).Format(&buf, data); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "MINTED_AT") || !strings.Contains(out, "2025-03-01T12:00:00Z") {
			t.Errorf("wide output missing minted_at:\n%s", out)
		}
	})

	t.Run("pointers", func(t *testing.T) {
		var buf bytes.Buffer
		ptrs := []*claimRow{&data[0], nil, &data[1]}
		if err := (&TableFormatter{}).Format(&buf, ptrs); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if !strings.Contains(buf.String(), "0xbbb") {
			t.Errorf("output missing pointer data:\n%s", buf.String())
		}
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, []claimRow{}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		if buf.Len() != 0 {
			t.Errorf("empty slice output = %q, want empty", buf.String())
		}
	})

	t.Run("scalars", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&TableFormatter{}).Format(&buf, []uint64{4, 7}); err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "VALUE") || !strings.Contains(out, "7") {
			t.Errorf("scalar slice output:\n%s", out)
		}
	})
}

func TestTableFormatter_Format_Map(t *testing.T) {
	data := map[string]any{"zeta": 1, "alpha": "a"}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "KEY") || !strings.Contains(out, "VALUE") {
		t.Error("Format() missing map headers")
	}
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("map rows should be sorted by key:\n%s", out)
	}
}

func TestTableFormatter_Format_SingleStruct(t *testing.T) {
	data := claimRow{ID: 9, Owner: "0xccc"}

	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, &data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "FIELD") || !strings.Contains(out, "owner") || !strings.Contains(out, "0xccc") {
		t.Errorf("struct output:\n%s", out)
	}
}

func TestTableFormatter_Format_FallbackToJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TableFormatter{}).Format(&buf, 42); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if strings.TrimSpace(buf.String()) != "42" {
		t.Errorf("fallback output = %q, want 42", buf.String())
	}
}

func TestTable_Render(t *testing.T) {
	table := &Table{
		Headers: []string{"COL1", "COL2"},
		Rows:    [][]string{{"a", "b"}, {"c", "d"}},
	}

	var buf bytes.Buffer
	if err := table.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("Render() lines = %d, want 3", len(lines))
	}
}

func TestTable_RenderWithOptions_NoRows(t *testing.T) {
	table := &Table{Headers: []string{"COL1", "COL2"}}

	var buf bytes.Buffer
	if err := table.RenderWithOptions(&buf, false); err != nil {
		t.Fatalf("RenderWithOptions() error = %v", err)
	}
	if !strings.Contains(buf.String(), "COL1") {
		t.Error("RenderWithOptions() missing headers")
	}
}

func TestTable_AddRowSetHeaders(t *testing.T) {
	table := &Table{}
	table.SetHeaders("H1", "H2")
	table.AddRow("c1", "c2")

	if len(table.Headers) != 2 || table.Headers[0] != "H1" {
		t.Errorf("Headers = %v", table.Headers)
	}
	if len(table.Rows) != 1 || len(table.Rows[0]) != 2 {
		t.Errorf("Rows = %v", table.Rows)
	}
}

type hexID [2]byte

func (h hexID) String() string { return "0x0102" }

func TestFormatValue(t *testing.T) {
	str := "pointer value"
	var nilPtr *string
	var nilIface any

	testCases := []struct {
		name     string
		input    reflect.Value
		expected string
	}{
		{"string", reflect.ValueOf("hello"), "hello"},
		{"empty string", reflect.ValueOf(""), "-"},
		{"int", reflect.ValueOf(42), "42"},
		{"uint64", reflect.ValueOf(uint64(99)), "99"},
		{"float64", reflect.ValueOf(3.14159), "3.14"},
		{"bool", reflect.ValueOf(true), "true"},
		{"empty slice", reflect.ValueOf([]int{}), "-"},
		{"slice", reflect.ValueOf([]uint64{1, 2, 3}), "1,2,3"},
		{"empty map", reflect.ValueOf(map[string]int{}), "-"},
		{"map", reflect.ValueOf(map[string]int{"a": 1}), `{"a":1}`},
		{"stringer", reflect.ValueOf(hexID{1, 2}), "0x0102"},
		{"pointer", reflect.ValueOf(&str), "pointer value"},
		{"nil pointer", reflect.ValueOf(nilPtr), "-"},
		{"nil interface", reflect.ValueOf(&nilIface).Elem(), "-"},
		{"invalid", reflect.Value{}, "-"},
		{"time", reflect.ValueOf(time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)), "2024-06-15T14:30:00Z"},
		{"zero time", reflect.ValueOf(time.Time{}), "-"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatValue(tc.input); got != tc.expected {
				t.Errorf("formatValue() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Name", "Name"},
		{"TokenID", "Token_I_D"},
		{"metadata_uri", "metadata_uri"},
	}

	for _, tc := range testCases {
		if got := toSnakeCase(tc.input); got != tc.expected {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
