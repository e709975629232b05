package opal

import "testing"

func TestOpalConfig(t *testing.T) {
	cfg := opalConfig()
	if cfg.outputDir == "" {
		t.Fatal("output directory must never be empty")
	}
	// The loader is memoized.
	if cfg != opalConfig() {
		t.Fatal("config must be loaded once")
	}
}
