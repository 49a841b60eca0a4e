// Package template holds the report template registry. The host picks a
// template per study type before synthesis starts.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/procureiq/deepresearch/internal/model"
)

// Registry manages report templates keyed by id.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]model.ReportTemplate
	byStudy   map[model.StudyType]string
}

// NewRegistry creates a registry pre-loaded with the built-in templates for
// every study type.
func NewRegistry() *Registry {
	r := &Registry{
		templates: make(map[string]model.ReportTemplate),
		byStudy:   make(map[model.StudyType]string),
	}
	for _, t := range builtinTemplates() {
		// Built-ins are well-formed by construction.
		_ = r.Register(t)
	}
	return r
}

// Register adds a template, replacing any previous template with the same id.
// The last registered template for a study type becomes its default.
func (r *Registry) Register(t model.ReportTemplate) error {
	if t.ID == "" {
		return fmt.Errorf("template: missing id")
	}
	if !t.StudyType.Valid() {
		return fmt.Errorf("template %s: unknown study type %q", t.ID, t.StudyType)
	}
	if len(t.Sections) == 0 {
		return fmt.Errorf("template %s: no sections", t.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
	r.byStudy[t.StudyType] = t.ID
	return nil
}

// Get returns the template with the given id.
func (r *Registry) Get(id string) (model.ReportTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// ForStudyType returns the default template for a study type, falling back
// to the custom template.
func (r *Registry) ForStudyType(st model.StudyType) model.ReportTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id, ok := r.byStudy[st]; ok {
		return r.templates[id]
	}
	return r.templates[r.byStudy[model.StudyCustom]]
}

// IDs returns all registered template ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadDir registers every *.yaml / *.yml template file in dir. Host-supplied
// templates override built-ins with the same id.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}
		var t model.ReportTemplate
		if err := yaml.Unmarshal(raw, &t); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		if err := r.Register(t); err != nil {
			return fmt.Errorf("register template %s: %w", path, err)
		}
	}
	return nil
}
