package checklist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/vistoria/inspection/internal/models"
	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyTemplate = errors.New("template has no items")
	ErrDuplicateID   = errors.New("duplicate item id")
	ErrEmptyID       = errors.New("item id is empty")
)

// DefaultDefinitions returns the five categories inspected when no template applies.
func DefaultDefinitions() []models.ItemDefinition {
	return []models.ItemDefinition{
		{ID: "1", Name: "Paredes e Teto"},
		{ID: "2", Name: "Piso"},
		{ID: "3", Name: "Portas e Janelas"},
		{ID: "4", Name: "Instalações Elétricas"},
		{ID: "5", Name: "Encanamento"},
	}
}

// DefaultTemplate wraps DefaultDefinitions as a template with no property type.
func DefaultTemplate() *models.ChecklistTemplate {
	return &models.ChecklistTemplate{
		Name:  "Padrão",
		Items: DefaultDefinitions(),
	}
}

// ValidateDefinitions checks that defs is non-empty and ids are present and unique.
func ValidateDefinitions(defs []models.ItemDefinition) error {
	if len(defs) == 0 {
		return ErrEmptyTemplate
	}
	seen := make(map[string]struct{}, len(defs))
	for i, d := range defs {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("%w (item %d)", ErrEmptyID, i)
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}

// LoadTemplate parses a YAML checklist template file.
func LoadTemplate(path string) (*models.ChecklistTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ParseTemplate(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// ParseTemplate parses a checklist template from an io.Reader.
func ParseTemplate(r io.Reader) (*models.ChecklistTemplate, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var t models.ChecklistTemplate
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing template: %w", err)
	}
	t.PropertyType = strings.ToLower(strings.TrimSpace(t.PropertyType))
	if err := ValidateDefinitions(t.Items); err != nil {
		return nil, err
	}
	return &t, nil
}

// Registry holds checklist templates keyed by property type.
// Lookups for unknown property types fall back to the default template.
type Registry struct {
	mu        sync.RWMutex
	fallback  *models.ChecklistTemplate
	templates map[string]*models.ChecklistTemplate
}

// NewRegistry creates a registry whose fallback is DefaultTemplate.
func NewRegistry() *Registry {
	return &Registry{
		fallback:  DefaultTemplate(),
		templates: make(map[string]*models.ChecklistTemplate),
	}
}

// Register adds or replaces the template for t.PropertyType.
// A template without a property type replaces the fallback.
func (r *Registry) Register(t *models.ChecklistTemplate) error {
	if t == nil {
		return errors.New("nil template")
	}
	if err := ValidateDefinitions(t.Items); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(t.PropertyType))
	if key == "" {
		r.fallback = t
		return nil
	}
	r.templates[key] = t
	return nil
}

// Lookup returns the template for propertyType, or the fallback.
func (r *Registry) Lookup(propertyType string) *models.ChecklistTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.templates[strings.ToLower(strings.TrimSpace(propertyType))]; ok {
		return t
	}
	return r.fallback
}

// Templates returns the fallback followed by the registered templates sorted by property type.
func (r *Registry) Templates() []*models.ChecklistTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.templates))
	for k := range r.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]*models.ChecklistTemplate, 0, len(keys)+1)
	out = append(out, r.fallback)
	for _, k := range keys {
		out = append(out, r.templates[k])
	}
	return out
}

// LoadDir registers every *.yaml / *.yml template in dir and returns how many were loaded.
// A missing directory is not an error.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	loaded := 0
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			continue
		}
		t, err := LoadTemplate(filepath.Join(dir, entry.Name()))
		if err != nil {
			return loaded, err
		}
		if err := r.Register(t); err != nil {
			return loaded, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		loaded++
	}
	return loaded, nil
}
