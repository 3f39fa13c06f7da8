package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domainerr "mysite/internal/domain/errors"
)

// Duration decodes from yaml in the human form ("30s", "1m") as well as a
// plain nanosecond integer.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if parsed, err := time.ParseDuration(value.Value); err == nil {
		*d = Duration(parsed)
		return nil
	}
	if n, err := strconv.ParseInt(value.Value, 10, 64); err == nil {
		*d = Duration(n)
		return nil
	}
	return fmt.Errorf("invalid duration %q", value.Value)
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Cache     CacheConfig     `yaml:"cache"`
	Serve     ServeConfig     `yaml:"serve"`
	LogLevel  string          `yaml:"log_level"`
}

type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
	SiteURL     string `yaml:"site_url"`
	Language    string `yaml:"language"`
}

// WorkspaceConfig points at the external content workspace. The token is
// normally supplied via the environment (the yaml value is expanded with
// os.ExpandEnv, so `token: ${WORKSPACE_TOKEN}` works).
type WorkspaceConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Token              string        `yaml:"token"`
	PostsDataSourceID  string        `yaml:"posts_data_source_id"`
	PhotosDataSourceID string        `yaml:"photos_data_source_id"`
	PageSize           int         `yaml:"page_size"`
	Timeout            Duration    `yaml:"timeout"`
	Retry              RetryConfig `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
	MaxBackoff     Duration `yaml:"max_backoff"`
}

type CacheConfig struct {
	PostsFile  string `yaml:"posts_file"`
	PhotosFile string `yaml:"photos_file"`
	ImagesDir  string `yaml:"images_dir"`
	IndexPath  string `yaml:"index_path"`
}

type ServeConfig struct {
	Addr string `yaml:"addr"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:    "mysite",
			Language: "en",
		},
		Workspace: WorkspaceConfig{
			PageSize: 100,
			Timeout:  Duration(30 * time.Second),
			Retry: RetryConfig{
				MaxAttempts:    3,
				InitialBackoff: Duration(1 * time.Second),
				MaxBackoff:     Duration(15 * time.Second),
			},
		},
		Cache: CacheConfig{
			PostsFile:  "posts-cache.json",
			PhotosFile: "photos-cache.json",
			ImagesDir:  "public/images",
			IndexPath:  ".mysite/index.db",
		},
		Serve: ServeConfig{
			Addr: ":8080",
		},
		LogLevel: "info",
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}
	if strings.TrimSpace(c.Site.Author) == "" {
		ve.Add("site.author", "must not be empty")
	}
	if strings.TrimSpace(c.Site.SiteURL) == "" {
		ve.Add("site.site_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.SiteURL) {
		ve.Add("site.site_url", "must be a valid absolute URL")
	}

	if strings.TrimSpace(c.Cache.PostsFile) == "" {
		ve.Add("cache.posts_file", "must not be empty")
	}
	if strings.TrimSpace(c.Cache.PhotosFile) == "" {
		ve.Add("cache.photos_file", "must not be empty")
	}
	if strings.TrimSpace(c.Cache.ImagesDir) == "" {
		ve.Add("cache.images_dir", "must not be empty")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

// ValidateWorkspace covers the fields only the cache batch needs. The serve
// command never talks to the workspace, so these stay out of Validate.
func (c Config) ValidateWorkspace() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Workspace.BaseURL) == "" {
		ve.Add("workspace.base_url", "must not be empty")
	} else if !isValidAbsURL(c.Workspace.BaseURL) {
		ve.Add("workspace.base_url", "must be a valid absolute URL")
	}
	if strings.TrimSpace(c.Workspace.Token) == "" {
		ve.Add("workspace.token", "must not be empty (set it in the environment)")
	}
	if strings.TrimSpace(c.Workspace.PostsDataSourceID) == "" {
		ve.Add("workspace.posts_data_source_id", "must not be empty")
	}
	if strings.TrimSpace(c.Workspace.PhotosDataSourceID) == "" {
		ve.Add("workspace.photos_data_source_id", "must not be empty")
	}

	if ve.HasAny() {
		return ve
	}
	return nil
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Load reads the yaml config, expanding ${VAR} references from the
// environment after an optional .env overlay.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
