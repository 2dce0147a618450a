package cli

import (
	"bytes"
	"strings"
	"testing"
)

type table [][]string

func (t table) Header() []string { return []string{"SYMBOL", "STATUS"} }
func (t table) Rows() [][]string { return t }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"junit", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTextFormatter_Table(t *testing.T) {
	var buf bytes.Buffer
	data := table{{"f", "success"}, {"Counter", "failure"}}

	if err := NewFormatter(FormatText).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "SYMBOL   STATUS" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[2] != "Counter  failure" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestTextFormatter_Value(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, "hello"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := map[string]int{"reloads": 2}

	if err := NewFormatter(FormatJSON).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	if buf.String() != "{\n  \"reloads\": 2\n}\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer
	data := table{{"f", "success"}, {"a,b", "failure"}}

	if err := NewFormatter(FormatCSV).FormatTo(&buf, data); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}
	want := "SYMBOL,STATUS\nf,success\n\"a,b\",failure\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}

	if err := NewFormatter(FormatCSV).FormatTo(&buf, "scalar"); err == nil {
		t.Error("expected error for non-tabular data")
	}
}
