package agents

import (
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestSplitFindings(t *testing.T) {
	content := `Steel demand in North America is recovering.

Prices stabilised in Q2.

SOURCES:
- Reuters Steel Desk | https://reuters.com/steel | web
- Internal Category Study | | internal
- World Steel Association | https://worldsteel.org | web`

	findings, sources := splitFindings(content)

	if findings == "" || len(findings) < 20 {
		t.Errorf("Expected prose findings, got %q", findings)
	}
	if len(sources) != 3 {
		t.Fatalf("Expected 3 sources, got %d", len(sources))
	}
	if sources[0].URL != "https://reuters.com/steel" || sources[0].Type != model.SourceWeb {
		t.Errorf("Unexpected first source: %+v", sources[0])
	}
	if sources[1].Type != model.SourceInternal {
		t.Errorf("Expected internal source, got %s", sources[1].Type)
	}
}

func TestSplitFindings_NoSourcesBlock(t *testing.T) {
	findings, sources := splitFindings("Just prose, no block.")
	if findings != "Just prose, no block." {
		t.Errorf("Unexpected findings: %q", findings)
	}
	if sources != nil {
		t.Errorf("Expected no sources, got %v", sources)
	}
}

func TestParseSourceLine(t *testing.T) {
	cases := []struct {
		line string
		ok   bool
		typ  model.SourceType
		url  string
	}{
		{"Reuters | https://reuters.com | web", true, model.SourceWeb, "https://reuters.com"},
		{"Category Intelligence | | beroe", true, model.SourceBeroe, ""},
		{"Internal Benchmark | | internal", true, model.SourceInternal, ""},
		{"Bare web name without URL", false, "", ""},
		{"", false, "", ""},
		{"Name | not-a-url | web", true, model.SourceWeb, ""},
	}
	for _, tc := range cases {
		src, ok := parseSourceLine(tc.line)
		if ok != tc.ok {
			t.Errorf("parseSourceLine(%q) ok = %v, want %v", tc.line, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if src.Type != tc.typ {
			t.Errorf("parseSourceLine(%q) type = %s, want %s", tc.line, src.Type, tc.typ)
		}
		if src.URL != tc.url {
			t.Errorf("parseSourceLine(%q) url = %q, want %q", tc.line, src.URL, tc.url)
		}
	}
}
