package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromYAMLAndEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.yaml")

	yaml := `
gitlab:
  base_url: https://example.com
  token: token-yaml
  timeout: 5s

slack:
  token: xoxb-123

watch:
  branches: develop|master
  max_age: 1h
  projects:
    - path: g/x
      enabled: true
    - path: g/y
      enabled: false

server:
  addr: ":9999"
`
	if err := os.WriteFile(cfgFile, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("GITLAB_TOKEN", "token-env")
	defer os.Unsetenv("GITLAB_TOKEN")

	c, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.GitLab.Token != "token-env" {
		t.Errorf("env override failed, got %s", c.GitLab.Token)
	}
	if len(c.Watch.Projects) != 2 {
		t.Errorf("expected 2 projects, got %d", len(c.Watch.Projects))
	}
	if got := c.EnabledProjects(); len(got) != 1 || got[0] != "g/x" {
		t.Errorf("expected enabled projects [g/x], got %v", got)
	}
	if c.Watch.MaxAge != time.Hour {
		t.Errorf("expected max_age 1h, got %v", c.Watch.MaxAge)
	}
	if c.Server.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %s", c.Server.Addr)
	}
}

func TestLoad_DefaultStageReactions(t *testing.T) {
	os.Setenv("GITLAB_TOKEN", "t")
	os.Setenv("SLACK_TOKEN", "t")
	os.Setenv("WATCH_PROJECTS", "g/x")
	defer func() {
		os.Unsetenv("GITLAB_TOKEN")
		os.Unsetenv("SLACK_TOKEN")
		os.Unsetenv("WATCH_PROJECTS")
	}()

	c, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Watch.StageReactions["test"] != "male-detective" {
		t.Errorf("expected default test reaction, got %q", c.Watch.StageReactions["test"])
	}
	if c.Watch.MaxAge != 2*time.Hour {
		t.Errorf("expected default max_age 2h, got %v", c.Watch.MaxAge)
	}
}

func TestLoad_RequiresSlackToken(t *testing.T) {
	os.Setenv("GITLAB_TOKEN", "t")
	os.Setenv("WATCH_PROJECTS", "g/x")
	os.Unsetenv("SLACK_TOKEN")
	defer func() {
		os.Unsetenv("GITLAB_TOKEN")
		os.Unsetenv("WATCH_PROJECTS")
	}()

	if _, err := Load(""); err == nil {
		t.Fatal("expected error for missing slack token")
	}
}
