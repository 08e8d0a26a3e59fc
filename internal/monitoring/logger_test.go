package monitoring

import (
	"fmt"
	"strings"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("tile complete")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op logger
	called = false
	SetLogger(nil)
	Logf("tile complete")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestWarnfPrefix(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = fmt.Sprintf(format, v...)
	})
	Warnf("falling back to raster for %s", "species_richness")

	if !strings.HasPrefix(got, "warning: ") {
		t.Errorf("Warnf output = %q, want warning: prefix", got)
	}
	if !strings.Contains(got, "species_richness") {
		t.Errorf("Warnf output = %q, want metric name", got)
	}
}
