package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hanzlahyasir/price-alert-notifier-telegram-bot/config"
)

func TestInitConfigReadsFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `env: prod
sources:
  - name: shop
    kind: jsonld
    urls: ["https://shop.example/list"]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetArgs([]string{"--config", path, "--db", filepath.Join(dir, "p.db"), "sources"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if cfg.Env != config.EnvProd {
		t.Fatalf("env = %q, want prod", cfg.Env)
	}
	if len(cfg.Sources) != 1 || cfg.Sources[0].Name != "shop" {
		t.Fatalf("sources = %+v", cfg.Sources)
	}
	if cfg.Store.Path != filepath.Join(dir, "p.db") {
		t.Fatalf("db flag not applied: %q", cfg.Store.Path)
	}
	if log == nil {
		t.Fatal("logger not set up")
	}
}
