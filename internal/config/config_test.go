package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTemplateParsesAndValidates(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault("demo")))
	if err != nil {
		t.Fatalf("default template invalid: %v", err)
	}
	if cfg.Project.Name != "demo" {
		t.Fatalf("project name = %q", cfg.Project.Name)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 4664 {
		t.Fatalf("server = %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if len(cfg.Labels) != 6 {
		t.Fatalf("labels = %d", len(cfg.Labels))
	}
	if l, ok := cfg.LabelByID("bug"); !ok || l.Color != "red" {
		t.Fatalf("bug label = %+v ok=%v", l, ok)
	}
	if _, ok := cfg.LabelByID("nope"); ok {
		t.Fatal("unknown label found")
	}
	if len(cfg.Team) != 0 {
		t.Fatalf("team = %d", len(cfg.Team))
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing project name",
			yaml: "server:\n  port: 80\n",
			want: "project.name",
		},
		{
			name: "port out of range",
			yaml: "project:\n  name: x\nserver:\n  port: 99999\n",
			want: "out of range",
		},
		{
			name: "duplicate label id",
			yaml: "project:\n  name: x\nlabels:\n  - id: bug\n    color: red\n  - id: bug\n    color: blue\n",
			want: "duplicate id bug",
		},
		{
			name: "label without color",
			yaml: "project:\n  name: x\nlabels:\n  - id: bug\n",
			want: "no color",
		},
		{
			name: "empty member id",
			yaml: "project:\n  name: x\nteam:\n  - name: Ada\n",
			want: "empty member id",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromYAML([]byte(tc.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoadOptionalFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Project.Name != filepath.Base(dir) {
		t.Fatalf("project name = %q, want dir base %q", cfg.Project.Name, filepath.Base(dir))
	}

	custom := "project:\n  name: custom\nteam:\n  - id: ada\n    name: Ada\n    color: green\n"
	if err := os.WriteFile(Path(dir), []byte(custom), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional with file: %v", err)
	}
	if cfg.Project.Name != "custom" {
		t.Fatalf("project name = %q", cfg.Project.Name)
	}
	if m, ok := cfg.MemberByID("ada"); !ok || m.Name != "Ada" {
		t.Fatalf("member = %+v ok=%v", m, ok)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "sf init") {
		t.Fatalf("error %q does not point at sf init", err)
	}
}
