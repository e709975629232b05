package opal

import (
	"fmt"
	"os"
	"time"

	"github.com/soniakeys/meeus/julian"
)

// ExportConfig configures the exporting of a propagation.
type ExportConfig struct {
	Filename  string
	XYZV      bool
	Timestamp bool
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.XYZV
}

// createXYZVFile returns a file which requires a defer close statement!
func createXYZVFile(filename string, stamped bool, stateDT time.Time) *os.File {
	config := opalConfig()
	if stamped {
		t := time.Now()
		filename = fmt.Sprintf("%s/prop-%s-%d-%02d-%02dT%02d.%02d.%02d.xyzv", config.outputDir, filename, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	} else {
		filename = fmt.Sprintf("%s/prop-%s.xyzv", config.outputDir, filename)
	}
	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	// Header
	f.WriteString(fmt.Sprintf(`# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a UTC Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, time.Now(), stateDT.UTC()))
	return f
}

// StreamSamples streams the accepted states of a session to an .xyzv
// trajectory file, one record per sample. It returns when the channel closes.
func StreamSamples(conf ExportConfig, samples <-chan Sample) {
	var f *os.File
	var prev *Sample
	for sample := range samples {
		if f == nil {
			f = createXYZVFile(conf.Filename, conf.Timestamp, sample.DT)
		}
		line := fmt.Sprintf("%f %f %f %f %f %f %f", julian.TimeToJD(sample.DT), sample.R[0], sample.R[1], sample.R[2], sample.V[0], sample.V[1], sample.V[2])
		if _, err := f.WriteString("\n" + line); err != nil {
			panic(err)
		}
		prev = &sample
	}
	if f != nil {
		if prev != nil {
			f.WriteString(fmt.Sprintf("\n# Simulation time end (UTC): %s\n", prev.DT.UTC()))
		}
		f.Close()
	}
}
