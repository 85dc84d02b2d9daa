package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Name != "qbshop" {
		t.Errorf("app.name = %q", cfg.App.Name)
	}
	if cfg.Refresh.Interval != time.Hour {
		t.Errorf("refresh.interval = %s", cfg.Refresh.Interval)
	}
	if cfg.Catalog.TitlePrefix != "iPhone" {
		t.Errorf("catalog.title_prefix = %q", cfg.Catalog.TitlePrefix)
	}
	if cfg.Fetch.Retries != 4 {
		t.Errorf("fetch.retries = %d", cfg.Fetch.Retries)
	}
	if cfg.Markup.Path != "markup.json" {
		t.Errorf("markup.path = %q", cfg.Markup.Path)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
refresh:
  interval: 30m
  page_delay: 2s
catalog:
  base_url: https://example.com
  catalog_url: https://example.com/catalog
fetch:
  retries: 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Refresh.Interval != 30*time.Minute {
		t.Errorf("refresh.interval = %s", cfg.Refresh.Interval)
	}
	if cfg.Refresh.PageDelay != 2*time.Second {
		t.Errorf("refresh.page_delay = %s", cfg.Refresh.PageDelay)
	}
	if cfg.Catalog.BaseURL != "https://example.com" {
		t.Errorf("catalog.base_url = %q", cfg.Catalog.BaseURL)
	}
	if cfg.Fetch.Retries != 2 {
		t.Errorf("fetch.retries = %d", cfg.Fetch.Retries)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	orig := *cfg
	cfg.Refresh.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero interval must fail validation")
	}

	*cfg = orig
	cfg.Catalog.CatalogURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing catalog url must fail validation")
	}

	*cfg = orig
	cfg.Fetch.Retries = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero retries must fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.ResolveMaxPoints(0); got != cfg.Export.MaxDataPoints {
		t.Errorf("ResolveMaxPoints(0) = %d", got)
	}
	if got := cfg.ResolveMaxPoints(42); got != 42 {
		t.Errorf("ResolveMaxPoints(42) = %d", got)
	}
}
