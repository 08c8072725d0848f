package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/komsit37/thematic-wl/pkg/wl/enrich"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Prices.Source != "massive" || c.Prices.BatchSize != enrich.DefaultBatchSize {
		t.Errorf("prices = %+v", c.Prices)
	}
	if c.Prices.Timeout != 10*time.Second {
		t.Errorf("timeout = %s", c.Prices.Timeout)
	}
	if c.Massive.BaseURL != enrich.DefaultMassiveURL {
		t.Errorf("base url = %q", c.Massive.BaseURL)
	}
	if c.Render.MaxColWidth != 40 || c.Log.Level != "info" {
		t.Errorf("render/log = %+v %+v", c.Render, c.Log)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wl.yaml")
	body := "prices:\n  source: proxy\n  batch_size: 3\nproxy:\n  url: http://example.test\nrender:\n  max_col_width: 0\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WL_PRICES_BATCH_SIZE", "9")

	c, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Prices.Source != "proxy" || c.Proxy.URL != "http://example.test" {
		t.Errorf("file values not applied: %+v", c)
	}
	if c.Prices.BatchSize != 9 {
		t.Errorf("env should win over file, batch_size = %d", c.Prices.BatchSize)
	}
	if c.Render.MaxColWidth != 0 {
		t.Errorf("max_col_width = %d", c.Render.MaxColWidth)
	}
}

func TestAPIKeyFallback(t *testing.T) {
	t.Setenv("MASSIVE_API_KEY", "plain")
	c, err := Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Massive.APIKey != "plain" {
		t.Errorf("api key = %q", c.Massive.APIKey)
	}

	t.Setenv("WL_MASSIVE_API_KEY", "prefixed")
	c, err = Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Massive.APIKey != "prefixed" {
		t.Errorf("prefixed key should win, got %q", c.Massive.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]func(*Config){
		"source":  func(c *Config) { c.Prices.Source = "bloomberg" },
		"batch":   func(c *Config) { c.Prices.BatchSize = 0 },
		"timeout": func(c *Config) { c.Prices.Timeout = 0 },
		"width":   func(c *Config) { c.Render.MaxColWidth = -1 },
	}
	for name, mut := range cases {
		c := base
		mut(&c)
		if c.Validate() == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestPriceSource(t *testing.T) {
	c, err := Load(New(), "")
	if err != nil {
		t.Fatal(err)
	}
	c.Massive.APIKey = ""
	if _, err := c.PriceSource(); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("massive without key: err = %v", err)
	}

	c.Massive.APIKey = "k"
	src, err := c.PriceSource()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := src.(*enrich.MassiveSource); !ok {
		t.Errorf("massive source type = %T", src)
	}

	c.Prices.Source = "proxy"
	if src, _ := c.PriceSource(); src == nil {
		t.Error("proxy source is nil")
	}
	c.Prices.Source = "yahoo"
	if src, _ := c.PriceSource(); src == nil {
		t.Error("yahoo source is nil")
	}
	c.Prices.Source = "none"
	if src, err := c.PriceSource(); src != nil || err != nil {
		t.Errorf("none = %v, %v", src, err)
	}
}
