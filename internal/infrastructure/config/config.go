package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

type Project struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name,omitempty"`
}

type Config struct {
	GitLab struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"gitlab"`

	Slack struct {
		Token string `yaml:"token"`
	} `yaml:"slack"`

	Jira struct {
		URL         string        `yaml:"url"`
		Username    string        `yaml:"username"`
		Password    string        `yaml:"password"`
		IgnoreUsers string        `yaml:"ignore_users"`
		Timeout     time.Duration `yaml:"timeout"`
		CacheTTL    time.Duration `yaml:"cache_ttl"`
	} `yaml:"jira"`

	Watch struct {
		Projects       []Project         `yaml:"projects"`
		Branches       string            `yaml:"branches"`
		MaxAge         time.Duration     `yaml:"max_age"`
		SweepInterval  time.Duration     `yaml:"sweep_interval"`
		StageReactions map[string]string `yaml:"stage_reactions"`
	} `yaml:"watch"`

	Server struct {
		Addr          string `yaml:"addr"`
		WebhookSecret string `yaml:"webhook_secret"`
	} `yaml:"server"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`
}

// EnabledProjects returns the allow-list fed to the watch filter.
func (c Config) EnabledProjects() []string {
	var out []string
	for _, p := range c.Watch.Projects {
		if p.Enabled && p.Path != "" {
			out = append(out, p.Path)
		}
	}
	return out
}

func Load(path string) (Config, error) {
	var c Config

	c.GitLab.BaseURL = "https://gitlab.com"
	c.GitLab.Timeout = 10 * time.Second
	c.Jira.Timeout = 10 * time.Second
	c.Jira.CacheTTL = 2 * time.Minute
	c.Watch.Branches = `develop|master|\d+([.-_]\d+)*`
	c.Watch.MaxAge = 2 * time.Hour
	c.Watch.SweepInterval = time.Minute
	c.Server.Addr = ":8080"
	c.Cache.Path = expandHome("~/.cache/chatops_watchlist.json")

	if path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}

	if v := os.Getenv("GITLAB_BASE_URL"); v != "" {
		c.GitLab.BaseURL = v
	}

	if v := os.Getenv("GITLAB_TOKEN"); v != "" {
		c.GitLab.Token = v
	}

	if v := os.Getenv("GITLAB_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitLab.Timeout = d
		}
	}

	if v := os.Getenv("SLACK_TOKEN"); v != "" {
		c.Slack.Token = v
	}

	if v := os.Getenv("JIRA_URL"); v != "" {
		c.Jira.URL = v
	}

	if v := os.Getenv("JIRA_USERNAME"); v != "" {
		c.Jira.Username = v
	}

	if v := os.Getenv("JIRA_PASSWORD"); v != "" {
		c.Jira.Password = v
	}

	if s := os.Getenv("WATCH_PROJECTS"); s != "" {
		var ps []Project
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			if item == "" {
				continue
			}
			ps = append(ps, Project{Path: item, Enabled: true})
		}
		if len(ps) > 0 {
			c.Watch.Projects = ps
		}
	}

	if v := os.Getenv("WATCH_BRANCHES"); v != "" {
		c.Watch.Branches = v
	}

	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.Addr = v
	}

	if v := os.Getenv("CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}

	c.Cache.Path = expandHome(c.Cache.Path)

	if c.Watch.MaxAge <= 0 {
		c.Watch.MaxAge = 2 * time.Hour
	}

	if c.Watch.SweepInterval <= 0 {
		c.Watch.SweepInterval = time.Minute
	}

	if c.GitLab.Timeout <= 0 {
		c.GitLab.Timeout = 10 * time.Second
	}

	if c.Jira.Timeout <= 0 {
		c.Jira.Timeout = 10 * time.Second
	}

	if c.Jira.CacheTTL <= 0 {
		c.Jira.CacheTTL = 2 * time.Minute
	}

	if len(c.Watch.StageReactions) == 0 {
		c.Watch.StageReactions = map[string]string{
			"build":  "construction_worker",
			"test":   "male-detective",
			"docker": "docker",
			"deploy": "rocket",
		}
	}

	if c.GitLab.Token == "" {
		return c, errors.New("GITLAB_TOKEN is required")
	}

	if c.Slack.Token == "" {
		return c, errors.New("SLACK_TOKEN is required")
	}

	if len(c.Watch.Projects) == 0 {
		return c, errors.New("no watched projects configured (YAML or ENV)")
	}

	return c, nil
}

func Save(path string, c Config) error {
	if path == "" {
		return errors.New("empty config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lockFile := path + ".lock"
	lf, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}
	defer func() { _ = lf.Close() }()

	if runtime.GOOS != "windows" {
		if err := syscall.Flock(int(lf.Fd()), syscall.LOCK_EX); err != nil {
			return err
		}
		defer func() { _ = syscall.Flock(int(lf.Fd()), syscall.LOCK_UN) }()
	}

	b, err := yaml.Marshal(&c)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	defer func() { _ = f.Close() }()

	if _, err := f.Write(b); err != nil {
		return err
	}

	if err := f.Sync(); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if h, _ := os.UserHomeDir(); h != "" {
			return h + p[1:]
		}
	}
	return p
}
