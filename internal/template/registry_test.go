package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/procureiq/deepresearch/internal/model"
)

func TestNewRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, st := range []model.StudyType{
		model.StudyMarketAnalysis,
		model.StudySourcingStudy,
		model.StudyCostModel,
		model.StudySupplierAssessment,
		model.StudyRiskAssessment,
		model.StudyCustom,
	} {
		tpl := r.ForStudyType(st)
		if tpl.ID == "" {
			t.Errorf("No builtin template for %s", st)
			continue
		}
		if tpl.StudyType != st {
			t.Errorf("Template %s registered under wrong study type %s", tpl.ID, st)
		}
		if tpl.Sections[0].ID != model.SectionExecutiveSummary {
			t.Errorf("Template %s should open with the executive summary, got %s", tpl.ID, tpl.Sections[0].ID)
		}
	}
}

func TestForStudyTypeFallsBackToCustom(t *testing.T) {
	r := NewRegistry()
	custom := r.ForStudyType(model.StudyCustom)
	got := r.ForStudyType(model.StudyType("unmapped"))
	if got.ID != custom.ID {
		t.Errorf("Expected custom fallback %s, got %s", custom.ID, got.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	section := model.SectionTemplate{ID: "s1", Title: "S1"}

	if err := r.Register(model.ReportTemplate{StudyType: model.StudyCustom, Sections: []model.SectionTemplate{section}}); err == nil {
		t.Error("Missing id should be rejected")
	}
	if err := r.Register(model.ReportTemplate{ID: "x", StudyType: "bogus", Sections: []model.SectionTemplate{section}}); err == nil {
		t.Error("Unknown study type should be rejected")
	}
	if err := r.Register(model.ReportTemplate{ID: "x", StudyType: model.StudyCustom}); err == nil {
		t.Error("Empty section list should be rejected")
	}

	tpl := model.ReportTemplate{ID: "x", Name: "X", StudyType: model.StudyCustom, Sections: []model.SectionTemplate{section}}
	if err := r.Register(tpl); err != nil {
		t.Fatalf("Valid template rejected: %v", err)
	}
	if got := r.ForStudyType(model.StudyCustom); got.ID != "x" {
		t.Errorf("Last registered template should become the study-type default, got %s", got.ID)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	tpl := `
id: acme_custom
name: Acme Custom
study_type: custom
sections:
  - id: overview
    title: Overview
    min_citations: 2
`
	if err := os.WriteFile(filepath.Join(dir, "acme.yaml"), []byte(tpl), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := r.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	got, ok := r.Get("acme_custom")
	if !ok {
		t.Fatal("Loaded template not registered")
	}
	if got.Sections[0].MinCitations != 2 {
		t.Errorf("YAML fields not parsed: %+v", got.Sections[0])
	}
	if r.ForStudyType(model.StudyCustom).ID != "acme_custom" {
		t.Error("Loaded template should override the builtin default")
	}
}

func TestLoadDirBadTemplate(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: only_an_id\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewRegistry().LoadDir(dir); err == nil {
		t.Error("Invalid template file should fail LoadDir")
	}
}
