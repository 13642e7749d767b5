package prompt

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	contractx "github.com/tanpawarit/Busan-Civil-Complaint-Agent/agent/contract"
	yaml "go.yaml.in/yaml/v3"
)

//go:embed template/civil_complaint.yaml
var civilComplaintRaw []byte

const DefaultDepartment = "민원팀"

// Profile bundles the standing instructions and the tool schema set so both
// can be versioned together.
type Profile struct {
	Version      string       `yaml:"version"`
	SystemPrompt string       `yaml:"system_prompt"`
	Tools        []ToolSpec   `yaml:"tools"`
	Departments  Departments  `yaml:"departments"`
	Manual       []ManualItem `yaml:"manual"`
}

type ToolSpec struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Parameters  []ParamSpec `yaml:"parameters"`
}

type ParamSpec struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Required    bool     `yaml:"required"`
	Enum        []string `yaml:"enum"`
}

type Departments struct {
	Default    string            `yaml:"default"`
	ByCategory map[string]string `yaml:"by_category"`
}

type ManualItem struct {
	Title    string   `yaml:"title"`
	Keywords []string `yaml:"keywords"`
	Body     string   `yaml:"body"`
}

// LoadProfile returns the embedded civil-complaint profile.
func LoadProfile() (*Profile, error) {
	return Parse(civilComplaintRaw)
}

// LoadProfileFile reads a profile from disk, falling back to the embedded one
// when path is blank.
func LoadProfileFile(path string) (*Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return LoadProfile()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", contractx.ErrValidation, err)
	}
	p.SystemPrompt = strings.TrimSpace(p.SystemPrompt)
	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("%w: system_prompt", contractx.ErrPromptMissing)
	}
	seen := make(map[string]struct{}, len(p.Tools))
	for _, t := range p.Tools {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %s", contractx.ErrValidation, name)
		}
		seen[name] = struct{}{}
	}
	if strings.TrimSpace(p.Departments.Default) == "" {
		p.Departments.Default = DefaultDepartment
	}
	return &p, nil
}

func (p *Profile) Tool(name string) (ToolSpec, bool) {
	for _, t := range p.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// DepartmentFor maps a complaint category to the department that owns it.
func (p *Profile) DepartmentFor(category string) string {
	if dep, ok := p.Departments.ByCategory[strings.TrimSpace(category)]; ok && dep != "" {
		return dep
	}
	return p.Departments.Default
}
