package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

type testTable struct{}

func (testTable) Header() []string { return []string{"uid", "rate"} }

func (testTable) Rows() [][]string {
	return [][]string{{"1000", "4096"}, {"2000", "-1"}}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "csv", want: FormatCSV},
		{in: "yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOutputFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOutputFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("error = %T, want *ConfigError", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseOutputFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "string", data: "test message", want: "test message\n"},
		{name: "lines", data: []string{"a", "b"}, want: "a\nb\n"},
		{name: "empty lines", data: []string{}, want: ""},
		{name: "table", data: testTable{}, want: "1000  4096\n2000  -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&TextFormatter{}).FormatTo(&buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	data := map[string]int64{"uid": 1000, "rate": 4096}

	for _, indent := range []bool{false, true} {
		var buf bytes.Buffer
		if err := (&JSONFormatter{Indent: indent}).FormatTo(&buf, data); err != nil {
			t.Fatalf("FormatTo() error = %v", err)
		}

		var got map[string]int64
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got["rate"] != 4096 {
			t.Errorf("rate = %d, want 4096", got["rate"])
		}
		if indent != bytes.Contains(buf.Bytes(), []byte("\n  ")) {
			t.Errorf("indent %v produced %q", indent, buf.String())
		}
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&CSVFormatter{}).FormatTo(&buf, testTable{}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	want := "uid,rate\n1000,4096\n2000,-1\n"
	if buf.String() != want {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), want)
	}

	if err := (&CSVFormatter{}).FormatTo(&buf, "plain"); err == nil {
		t.Error("FormatTo() of a non-table succeeded")
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) is not a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatCSV).(*CSVFormatter); !ok {
		t.Error("NewFormatter(csv) is not a CSVFormatter")
	}
	if _, ok := NewFormatter("other").(*TextFormatter); !ok {
		t.Error("NewFormatter(other) is not a TextFormatter")
	}
}
