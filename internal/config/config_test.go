package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvFeedsFile, "")
	t.Setenv(EnvToken, "")
	t.Setenv(EnvRepository, "")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"FeedsFile", cfg.FeedsFile, "rss_feeds.txt"},
		{"GitHub.Path", cfg.GitHub.Path, "index.html"},
		{"Cache.MaxEntries", cfg.Cache.MaxEntries, 100},
		{"Cache.TTLSeconds", cfg.Cache.TTLSeconds, 600},
		{"Pipeline.MaxWorkers", cfg.Pipeline.MaxWorkers, 8},
		{"Render.Title", cfg.Render.Title, "Daily Gazette"},
		{"Render.Timezone", cfg.Render.Timezone, "UTC"},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		FeedsFile: "feeds.txt",
		Cache:     CacheConfig{MaxEntries: 10, TTLSeconds: 30},
		Pipeline:  PipelineConfig{MaxWorkers: 2},
		Render:    RenderConfig{Title: "Morning Post", Timezone: "Asia/Shanghai"},
	}
	setDefaults(cfg)

	if cfg.FeedsFile != "feeds.txt" {
		t.Errorf("FeedsFile should not be overridden: got %s", cfg.FeedsFile)
	}
	if cfg.Cache.MaxEntries != 10 || cfg.Cache.TTLSeconds != 30 {
		t.Errorf("Cache should not be overridden: got %+v", cfg.Cache)
	}
	if cfg.Pipeline.MaxWorkers != 2 {
		t.Errorf("MaxWorkers should not be overridden: got %d", cfg.Pipeline.MaxWorkers)
	}
	if cfg.Render.Title != "Morning Post" || cfg.Render.Timezone != "Asia/Shanghai" {
		t.Errorf("Render should not be overridden: got %+v", cfg.Render)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
feeds_file: /etc/gazette/feeds.txt
github:
  token: file-token
  repository: alice/news
  branch: gh-pages
cache:
  ttl_seconds: 120
render:
  title: Evening Edition
log:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FeedsFile != "/etc/gazette/feeds.txt" {
		t.Errorf("FeedsFile: got %q", cfg.FeedsFile)
	}
	if cfg.Owner() != "alice" || cfg.RepoName() != "news" {
		t.Errorf("repository split: got %q / %q", cfg.Owner(), cfg.RepoName())
	}
	if cfg.GitHub.Branch != "gh-pages" {
		t.Errorf("Branch: got %q", cfg.GitHub.Branch)
	}
	if cfg.CacheTTL().Seconds() != 120 {
		t.Errorf("CacheTTL: got %v", cfg.CacheTTL())
	}
	if cfg.Cache.MaxEntries != 100 {
		t.Errorf("Cache.MaxEntries should default to 100, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Render.Title != "Evening Edition" {
		t.Errorf("Render.Title: got %q", cfg.Render.Title)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_GAZETTE_TOKEN", "secret-from-env")

	path := writeConfig(t, `
github:
  token: "${TEST_GAZETTE_TOKEN}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.GitHub.Token != "secret-from-env" {
		t.Errorf("expected env var expansion, got %q", cfg.GitHub.Token)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvFeedsFile, "env-feeds.txt")
	t.Setenv(EnvToken, "  env-token\n")
	t.Setenv(EnvRepository, "bob/digest")

	path := writeConfig(t, `
feeds_file: file-feeds.txt
github:
  token: file-token
  repository: alice/news
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.FeedsFile != "env-feeds.txt" {
		t.Errorf("FeedsFile: got %q", cfg.FeedsFile)
	}
	if cfg.GitHub.Token != "env-token" {
		t.Errorf("Token should be trimmed env value, got %q", cfg.GitHub.Token)
	}
	if cfg.GitHub.Repository != "bob/digest" {
		t.Errorf("Repository: got %q", cfg.GitHub.Repository)
	}
}

func TestLoad_ExplicitFileNotFound(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "github: [unclosed")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		github  GitHubConfig
		wantErr string
	}{
		{"ok", GitHubConfig{Token: "t", Repository: "owner/repo"}, ""},
		{"missing token", GitHubConfig{Repository: "owner/repo"}, EnvToken},
		{"missing repo", GitHubConfig{Token: "t"}, EnvRepository},
		{"no slash", GitHubConfig{Token: "t", Repository: "ownerrepo"}, "owner/name"},
		{"empty owner", GitHubConfig{Token: "t", Repository: "/repo"}, "owner/name"},
		{"too many parts", GitHubConfig{Token: "t", Repository: "a/b/c"}, "owner/name"},
	}

	for _, tc := range tests {
		cfg := &Config{GitHub: tc.github}
		setDefaults(cfg)
		err := cfg.Validate()
		if tc.wantErr == "" {
			if err != nil {
				t.Errorf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("%s: got %v, want error containing %q", tc.name, err, tc.wantErr)
		}
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := &Config{GitHub: GitHubConfig{Token: "t", Repository: "o/r"}}
	setDefaults(cfg)
	cfg.Render.Timezone = "Mars/Olympus_Mons"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}
