package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestRefresh_PicksUpCategoryEdits(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, cfgPath, "categories:\n  - invoices\nllm:\n  api_key: test-key\n")

	a, err := newApp(cfgPath, filepath.Join(dir, "home"))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if !reflect.DeepEqual(a.cfg.Categories, []string{"invoices"}) {
		t.Fatalf("initial categories = %v, want [invoices]", a.cfg.Categories)
	}
	before := a.pipeline

	writeConfig(t, cfgPath, "categories:\n  - invoices\n  - permits\nllm:\n  api_key: test-key\n")
	if err := a.refresh(); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}

	if !reflect.DeepEqual(a.cfg.Categories, []string{"invoices", "permits"}) {
		t.Fatalf("categories after edit = %v, want [invoices permits]", a.cfg.Categories)
	}
	if a.pipeline == before {
		t.Error("pipeline should be rebuilt so the next batch classifies against the edited list")
	}
}

func TestRefresh_NoChangeKeepsPipeline(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeConfig(t, cfgPath, "categories:\n  - invoices\nllm:\n  api_key: test-key\n")

	a, err := newApp(cfgPath, filepath.Join(dir, "home"))
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	before := a.pipeline
	if err := a.refresh(); err != nil {
		t.Fatalf("refresh() error = %v", err)
	}
	if a.pipeline != before {
		t.Error("unchanged config should not rebuild the pipeline")
	}
}
