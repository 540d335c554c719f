package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"

	"aster/internal/fsutil"
)

const (
	DefaultComponentsDir = "components/ui"
	DefaultLibDir        = "lib"
	DefaultHooksDir      = "hooks"
	ProjectSchemaURL     = "https://aster.dev/schema.json"
)

// ErrProjectMissing is returned when the working directory has no aster.json.
var ErrProjectMissing = errors.New("DOC_PROJECT_MISSING: aster.json not found; run \"aster init\" first")

// ProjectConfig is the per-project aster.json document.
type ProjectConfig struct {
	Schema     string                   `json:"$schema,omitempty"`
	Framework  string                   `json:"framework,omitempty"`
	Style      string                   `json:"style"`
	TypeScript bool                     `json:"typescript"`
	Paths      ProjectPaths             `json:"paths"`
	Registries map[string]RegistryEntry `json:"registries,omitempty"`
}

type ProjectPaths struct {
	Components string `json:"components"`
	Lib        string `json:"lib"`
	Hooks      string `json:"hooks,omitempty"`
}

// RegistryEntry is a namespace registry: either a bare URL template or an
// object carrying the template plus request headers.
type RegistryEntry struct {
	URL     string            `json:"url" mapstructure:"url"`
	Headers map[string]string `json:"headers,omitempty" mapstructure:"headers"`
}

func (e *RegistryEntry) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*e = RegistryEntry{URL: s}
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("registry entry must be a string or an object: %w", err)
	}
	var out RegistryEntry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &out, ErrorUnused: true})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("registry entry: %w", err)
	}
	*e = out
	return nil
}

func (e RegistryEntry) MarshalJSON() ([]byte, error) {
	if len(e.Headers) == 0 {
		return json.Marshal(e.URL)
	}
	type plain RegistryEntry
	return json.Marshal(plain(e))
}

func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Schema:     ProjectSchemaURL,
		Framework:  DefaultFramework,
		Style:      StyleNativewind,
		TypeScript: true,
		Paths: ProjectPaths{
			Components: DefaultComponentsDir,
			Lib:        DefaultLibDir,
			Hooks:      DefaultHooksDir,
		},
	}
}

func NormalizeProject(p ProjectConfig) ProjectConfig {
	if p.Framework == "" {
		p.Framework = DefaultFramework
	}
	if p.Style == "" {
		p.Style = StyleNativewind
	}
	if p.Paths.Components == "" {
		p.Paths.Components = DefaultComponentsDir
	}
	if p.Paths.Lib == "" {
		p.Paths.Lib = DefaultLibDir
	}
	if p.Paths.Hooks == "" {
		p.Paths.Hooks = DefaultHooksDir
	}
	return p
}

func ValidateProject(p ProjectConfig) error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Style, validation.Required, validation.In(styles...)),
		validation.Field(&p.Paths),
		validation.Field(&p.Registries, validation.By(registryKeys)),
	)
	if err != nil {
		return fmt.Errorf("DOC_PROJECT_INVALID: %w", err)
	}
	return nil
}

func (p ProjectPaths) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Components, validation.Required),
		validation.Field(&p.Lib, validation.Required),
	)
}

func registryKeys(value interface{}) error {
	regs, _ := value.(map[string]RegistryEntry)
	for name, entry := range regs {
		if !strings.HasPrefix(name, "@") || len(name) < 2 {
			return fmt.Errorf("registry name %q must start with @", name)
		}
		if strings.TrimSpace(entry.URL) == "" {
			return fmt.Errorf("registry %q has no url", name)
		}
	}
	return nil
}

// LoadProject reads and validates aster.json at path.
func LoadProject(fs afero.Fs, path string) (ProjectConfig, error) {
	blob, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return ProjectConfig{}, ErrProjectMissing
		}
		return ProjectConfig{}, fmt.Errorf("DOC_PROJECT_READ: %w", err)
	}
	var p ProjectConfig
	if err := json.Unmarshal(blob, &p); err != nil {
		return ProjectConfig{}, fmt.Errorf("DOC_PROJECT_PARSE: %w", err)
	}
	p = NormalizeProject(p)
	if err := ValidateProject(p); err != nil {
		return ProjectConfig{}, err
	}
	return p, nil
}

func SaveProject(fs afero.Fs, path string, p ProjectConfig) error {
	if err := ValidateProject(NormalizeProject(p)); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("DOC_PROJECT_ENCODE: %w", err)
	}
	return fsutil.AtomicWrite(fs, path, append(blob, '\n'), 0o644)
}

// DirForType maps a resource file type (with or without the "registry:"
// prefix) to its configured destination directory.
func (p ProjectConfig) DirForType(fileType string) string {
	switch strings.TrimPrefix(fileType, "registry:") {
	case "ui":
		return p.Paths.Components
	case "hook":
		if p.Paths.Hooks != "" {
			return p.Paths.Hooks
		}
		return DefaultHooksDir
	default:
		return p.Paths.Lib
	}
}

func (p ProjectConfig) Registry(namespace string) (RegistryEntry, bool) {
	if !strings.HasPrefix(namespace, "@") {
		namespace = "@" + namespace
	}
	e, ok := p.Registries[namespace]
	return e, ok
}

func (p *ProjectConfig) AddRegistry(name string, entry RegistryEntry) error {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	if err := registryKeys(map[string]RegistryEntry{name: entry}); err != nil {
		return fmt.Errorf("DOC_PROJECT_REGISTRY: %w", err)
	}
	if p.Registries == nil {
		p.Registries = map[string]RegistryEntry{}
	}
	p.Registries[name] = entry
	return nil
}

func (p *ProjectConfig) RemoveRegistry(name string) bool {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	if _, ok := p.Registries[name]; !ok {
		return false
	}
	delete(p.Registries, name)
	return true
}

func (p ProjectConfig) RegistryNames() []string {
	names := make([]string, 0, len(p.Registries))
	for name := range p.Registries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
