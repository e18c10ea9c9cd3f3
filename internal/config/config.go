package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models specflow.yml.
type Config struct {
	Project struct {
		Name string `yaml:"name"`
	} `yaml:"project"`
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Labels []Label  `yaml:"labels"`
	Team   []Member `yaml:"team"`
}

// Label is a catalog entry tickets can attach.
type Label struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Member is a team member tickets can be assigned to.
type Member struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Avatar string `yaml:"avatar" json:"avatar,omitempty"`
	Color  string `yaml:"color" json:"color,omitempty"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with sf init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(filepath.Base(absOrDot(workspace))), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

func absOrDot(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	abs, err := filepath.Abs(workspace)
	if err != nil {
		return workspace
	}
	return abs
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.Name == "" {
		return fmt.Errorf("config.project.name is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config.server.port %d out of range", c.Server.Port)
	}
	seen := map[string]bool{}
	for _, l := range c.Labels {
		if l.ID == "" {
			return fmt.Errorf("config.labels contains empty label id")
		}
		if seen[l.ID] {
			return fmt.Errorf("config.labels has duplicate id %s", l.ID)
		}
		seen[l.ID] = true
		if l.Color == "" {
			return fmt.Errorf("label %s has no color", l.ID)
		}
	}
	seen = map[string]bool{}
	for _, m := range c.Team {
		if m.ID == "" {
			return fmt.Errorf("config.team contains empty member id")
		}
		if seen[m.ID] {
			return fmt.Errorf("config.team has duplicate id %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// LabelByID looks up a catalog label.
func (c *Config) LabelByID(id string) (Label, bool) {
	for _, l := range c.Labels {
		if l.ID == id {
			return l, true
		}
	}
	return Label{}, false
}

// MemberByID looks up a team member.
func (c *Config) MemberByID(id string) (Member, bool) {
	for _, m := range c.Team {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "specflow.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectName string) string {
	return fmt.Sprintf(defaultTemplate, projectName)
}

// Default returns the default Config struct for a project.
func Default(projectName string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(fmt.Sprintf(defaultTemplate, projectName)), &cfg)
	cfg.Project.Name = projectName
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `project:
  name: %s

server:
  host: 127.0.0.1
  port: 4664

labels:
  - id: bug
    name: Bug
    color: red
  - id: feature
    name: Feature
    color: purple
  - id: improvement
    name: Improvement
    color: blue
  - id: docs
    name: Documentation
    color: yellow
  - id: design
    name: Design
    color: pink
  - id: tech-debt
    name: Tech Debt
    color: orange

team: []
`
