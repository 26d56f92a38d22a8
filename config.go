package main

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// envPrefix marks environment overrides. Nested keys use a double underscore:
// UIVIEW_FETCH__TIMEOUT=5s sets fetch.timeout.
const envPrefix = "UIVIEW_"

// Config is the top-level uiview configuration, corresponding to uiview.yml.
type Config struct {
	Listen          string            `yaml:"listen" koanf:"listen"`
	Upstream        string            `yaml:"upstream" koanf:"upstream"`
	Roots           map[string]string `yaml:"roots" koanf:"roots"`
	StateDir        string            `yaml:"state_dir" koanf:"state_dir"`
	Theme           string            `yaml:"theme" koanf:"theme"`
	LiveReload      bool              `yaml:"live_reload" koanf:"live_reload"`
	AllowAllOrigins bool              `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Fetch           FetchConfig       `yaml:"fetch" koanf:"fetch"`
	Markdown        MarkdownConfig    `yaml:"markdown" koanf:"markdown"`
	Code            CodeConfig        `yaml:"code" koanf:"code"`
}

// FetchConfig bounds requests against the file server.
type FetchConfig struct {
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout"`
	MaxBytes int64         `yaml:"max_bytes" koanf:"max_bytes"`
}

// MarkdownConfig holds the optional diagram/math engines and the fragment policy switch.
// An empty URL means the engine is absent.
type MarkdownConfig struct {
	MermaidURL         string `yaml:"mermaid_url" koanf:"mermaid_url"`
	KatexCSSURL        string `yaml:"katex_css_url" koanf:"katex_css_url"`
	KatexJSURL         string `yaml:"katex_js_url" koanf:"katex_js_url"`
	KatexAutoRenderURL string `yaml:"katex_auto_render_url" koanf:"katex_auto_render_url"`
	Sanitize           bool   `yaml:"sanitize" koanf:"sanitize"`
}

// CodeConfig controls code-mode highlighting.
type CodeConfig struct {
	Highlight bool   `yaml:"highlight" koanf:"highlight"`
	Style     string `yaml:"style" koanf:"style"`
}

// DefaultConfig returns a Config with sensible defaults. The upstream default
// matches the stock static file server address.
func DefaultConfig() *Config {
	return &Config{
		Listen:     "127.0.0.1:8765",
		Upstream:   "http://127.0.0.1:8000",
		Roots:      map[string]string{},
		Theme:      defaultTheme,
		LiveReload: true,
		Fetch: FetchConfig{
			Timeout:  15 * time.Second,
			MaxBytes: 10 << 20,
		},
		Markdown: MarkdownConfig{
			MermaidURL:         "https://cdn.jsdelivr.net/npm/mermaid@10.9.1/dist/mermaid.min.js",
			KatexCSSURL:        "https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.css",
			KatexJSURL:         "https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/katex.min.js",
			KatexAutoRenderURL: "https://cdn.jsdelivr.net/npm/katex@0.16.9/dist/contrib/auto-render.min.js",
		},
		Code: CodeConfig{
			Highlight: true,
			Style:     "github",
		},
	}
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (UIVIEW_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps UIVIEW_MARKDOWN__MERMAID_URL to markdown.mermaid_url.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", c.Listen, err)
	}

	if !validThemes[c.Theme] {
		return fmt.Errorf("invalid theme %q: must be dark or light", c.Theme)
	}

	if c.Upstream == "" && len(c.Roots) == 0 {
		return fmt.Errorf("upstream or roots is required")
	}
	if c.Upstream != "" {
		if err := checkHTTPURL(c.Upstream); err != nil {
			return fmt.Errorf("invalid upstream: %w", err)
		}
	}

	for name, dir := range c.Roots {
		if !isServedRoot(name) {
			return fmt.Errorf("invalid root %q: must be one of %s", name, strings.Join(servedRoots, ", "))
		}
		if dir == "" {
			return fmt.Errorf("root %q has no directory", name)
		}
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		return fmt.Errorf("fetch.max_bytes must be positive")
	}

	for key, u := range map[string]string{
		"markdown.mermaid_url":           c.Markdown.MermaidURL,
		"markdown.katex_css_url":         c.Markdown.KatexCSSURL,
		"markdown.katex_js_url":          c.Markdown.KatexJSURL,
		"markdown.katex_auto_render_url": c.Markdown.KatexAutoRenderURL,
	} {
		if u == "" {
			continue
		}
		if err := checkHTTPURL(u); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%q: missing host", raw)
	}
	return nil
}

// stateDir returns the directory for persisted preferences, ~/.uiview by default.
func (c *Config) stateDir() (string, error) {
	if c.StateDir != "" {
		return c.StateDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".uiview"), nil
}

// rootDirs returns the configured local directories with absolute paths.
func (c *Config) rootDirs() (map[string]string, error) {
	dirs := make(map[string]string, len(c.Roots))
	for name, dir := range c.Roots {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("root %s: %w", name, err)
		}
		dirs[name] = abs
	}
	return dirs, nil
}
