package opal

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestExportConfigIsUseless(t *testing.T) {
	if !(ExportConfig{}).IsUseless() {
		t.Fatal("an empty export config must be useless")
	}
	if (ExportConfig{Filename: "x", XYZV: true}).IsUseless() {
		t.Fatal("an XYZV export config is not useless")
	}
}

func TestStreamSamples(t *testing.T) {
	conf := ExportConfig{Filename: "streamtest", XYZV: true}
	ch := make(chan Sample, 2)
	dt := time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)
	ch <- Sample{DT: dt, R: []float64{7000, 0, 0}, V: []float64{0, 7.5, 0}}
	ch <- Sample{DT: dt.Add(time.Minute), R: []float64{6999, 450, 0}, V: []float64{-0.5, 7.5, 0}}
	close(ch)
	StreamSamples(conf, ch)

	fname := opalConfig().outputDir + "/prop-streamtest.xyzv"
	defer os.Remove(fname)
	body, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	content := string(body)
	if !strings.Contains(content, "2451545.000000 7000.000000") {
		t.Fatalf("missing first record:\n%s", content)
	}
	if !strings.Contains(content, "# Simulation time end (UTC):") {
		t.Fatal("missing end of simulation marker")
	}
	lines := 0
	for _, l := range strings.Split(content, "\n") {
		if len(l) > 0 && !strings.HasPrefix(l, "#") {
			lines++
		}
	}
	if lines != 2 {
		t.Fatalf("expected 2 records, found %d", lines)
	}
}
