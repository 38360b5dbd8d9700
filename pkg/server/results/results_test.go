package results

import (
	"strings"
	"testing"

	"github.com/aleksaelezovic/ripple/internal/pattern"
	"github.com/aleksaelezovic/ripple/pkg/value"
)

func sampleResult() Result {
	bindings := []pattern.Bindings{
		{"p": value.Symbol("alice"), "a": value.Number(30)},
		{"p": value.Symbol("bob"), "a": value.Number(40)},
	}
	return NewResult(nil, bindings)
}

func TestNewResultDerivesSortedVars(t *testing.T) {
	r := sampleResult()
	if len(r.Vars) != 2 || r.Vars[0] != "a" || r.Vars[1] != "p" {
		t.Fatalf("expected [a p], got %v", r.Vars)
	}
}

func TestFormatJSON(t *testing.T) {
	b, err := FormatJSON(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"alice"`) {
		t.Fatalf("expected alice in json output, got %s", b)
	}
}

func TestFormatCSV(t *testing.T) {
	b, err := FormatCSV(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if lines[0] != "a,p" {
		t.Fatalf("expected header \"a,p\", got %q", lines[0])
	}
	if len(lines) != 3 {
		t.Fatalf("expected a header row and two data rows, got %d lines", len(lines))
	}
}

func TestFormatTSV(t *testing.T) {
	b, err := FormatTSV(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "a\tp\n") {
		t.Fatalf("expected tab-separated header, got %q", b)
	}
}

func TestFormatXML(t *testing.T) {
	b, err := FormatXML(sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), "<variable name=\"a\">") {
		t.Fatalf("expected a <variable> element for \"a\", got %s", b)
	}
	if !strings.Contains(string(b), "alice") {
		t.Fatalf("expected alice in xml output, got %s", b)
	}
}

func TestFormatsWithNoBindings(t *testing.T) {
	r := NewResult([]string{"p"}, nil)
	if _, err := FormatJSON(r); err != nil {
		t.Fatal(err)
	}
	if _, err := FormatCSV(r); err != nil {
		t.Fatal(err)
	}
	if _, err := FormatTSV(r); err != nil {
		t.Fatal(err)
	}
	if _, err := FormatXML(r); err != nil {
		t.Fatal(err)
	}
}
