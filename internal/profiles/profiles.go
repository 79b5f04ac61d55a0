// Package profiles manages named scan presets. A preset is a saved set of
// option and script selections that fills the scan form for a target.
package profiles

import (
	"fmt"
	"sort"
	"sync"

	"github.com/anstrom/uplink/internal/config"
	"github.com/anstrom/uplink/internal/errors"
	"github.com/anstrom/uplink/internal/options"
)

// Preset is a named form template.
type Preset struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
	Scripts     []string `json:"scripts"`
	CustomArgs  string   `json:"custom_args"`
	BuiltIn     bool     `json:"built_in"`
}

// Form fills a scan form for target from the preset.
func (p *Preset) Form(target string, alarm bool) options.Form {
	return options.Form{
		Target:     target,
		Options:    append([]string(nil), p.Options...),
		Scripts:    append([]string(nil), p.Scripts...),
		CustomArgs: p.CustomArgs,
		Alarm:      alarm,
	}
}

func builtIns() []*Preset {
	return []*Preset{
		{Name: "quick", Description: "Fast scan of the most common ports", Options: []string{"-F", "-T4"}},
		{Name: "stealth", Description: "SYN scan with slow timing", Options: []string{"-sS", "-T1"}},
		{Name: "full", Description: "Version, OS and default script detection", Options: []string{"-sV", "-sC", "-O"}},
		{Name: "vuln", Description: "Version detection with vulnerability scripts",
			Options: []string{"-sV"}, Scripts: []string{"vuln", "smb-vuln-ms17-010"}},
	}
}

// Manager handles preset operations.
type Manager struct {
	catalog *options.Catalog
	mu      sync.RWMutex
	presets map[string]*Preset
}

// NewManager creates a manager with the built-in presets plus those from configuration.
// Configured presets may not shadow built-ins.
func NewManager(catalog *options.Catalog, configured []config.PresetConfig) (*Manager, error) {
	m := &Manager{
		catalog: catalog,
		presets: make(map[string]*Preset),
	}

	for _, p := range builtIns() {
		p.BuiltIn = true
		m.presets[p.Name] = p
	}

	for _, pc := range configured {
		p := &Preset{
			Name:        pc.Name,
			Description: pc.Description,
			Options:     pc.Options,
			Scripts:     pc.Scripts,
			CustomArgs:  pc.CustomArgs,
		}
		if err := m.Create(p); err != nil {
			return nil, fmt.Errorf("preset %q: %w", pc.Name, err)
		}
	}

	return m, nil
}

// GetAll returns all presets sorted with built-ins first, then by name.
func (m *Manager) GetAll() []*Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Preset, 0, len(m.presets))
	for _, p := range m.presets {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].BuiltIn != all[j].BuiltIn {
			return all[i].BuiltIn
		}
		return all[i].Name < all[j].Name
	})
	return all
}

// Get returns a preset by name.
func (m *Manager) Get(name string) (*Preset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.presets[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, fmt.Sprintf("Preset not found: %s", name))
	}
	return p, nil
}

// Validate checks a preset's selections against the catalog.
func (m *Manager) Validate(p *Preset) error {
	if p.Name == "" {
		return errors.New(errors.CodeValidation, "Preset name is required")
	}
	for _, flag := range p.Options {
		if _, ok := m.catalog.Option(flag); !ok {
			return errors.New(errors.CodeValidation, fmt.Sprintf("Unknown option: %s", flag))
		}
	}
	for _, name := range p.Scripts {
		if _, ok := m.catalog.Script(name); !ok {
			return errors.New(errors.CodeValidation, fmt.Sprintf("Unknown script: %s", name))
		}
	}
	return nil
}

// Create adds a custom preset.
func (m *Manager) Create(p *Preset) error {
	if err := m.Validate(p); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.presets[p.Name]; ok {
		if existing.BuiltIn {
			return errors.New(errors.CodeConflict, fmt.Sprintf("Preset %s is built-in", p.Name))
		}
		return errors.New(errors.CodeConflict, fmt.Sprintf("Preset %s already exists", p.Name))
	}

	p.BuiltIn = false
	m.presets[p.Name] = p
	return nil
}

// Delete removes a custom preset. Built-in presets cannot be deleted.
func (m *Manager) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presets[name]
	if !ok {
		return errors.New(errors.CodeNotFound, fmt.Sprintf("Preset not found: %s", name))
	}
	if p.BuiltIn {
		return errors.New(errors.CodeConflict, fmt.Sprintf("Preset %s is built-in", name))
	}
	delete(m.presets, name)
	return nil
}
