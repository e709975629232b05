package opal

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/kit/log"
)

// Spacecraft defines the physical parameters of the vehicle being propagated.
// These are scalar inputs to the force model and are immutable for the
// duration of one propagation.
type Spacecraft struct {
	Name     string
	DryMass  float64 // kg
	Cd       float64 // drag coefficient
	Cr       float64 // reflectivity coefficient
	DragArea float64 // m^2
	SRPArea  float64 // m^2
	logger   kitlog.Logger
}

// Mass returns the total mass in kg.
func (s *Spacecraft) Mass() float64 {
	return s.DryMass
}

// LogInfo logs the information of this spacecraft.
func (s *Spacecraft) LogInfo() {
	s.logger.Log("level", "info", "subsys", "sc", "mass(kg)", s.DryMass, "Cd", s.Cd, "Cr", s.Cr)
}

// Validate checks the physical parameters.
func (s *Spacecraft) Validate() error {
	if s.DryMass <= 0 {
		return NewConfigError("spacecraft.drymass", "mass must be positive (got %f kg)", s.DryMass)
	}
	if s.Cd < 0 || s.Cr < 0 {
		return NewConfigError("spacecraft", "Cd and Cr must be non negative")
	}
	if s.DragArea < 0 || s.SRPArea < 0 {
		return NewConfigError("spacecraft", "areas must be non negative")
	}
	return nil
}

// NewSpacecraft returns a spacecraft with the provided physical parameters.
func NewSpacecraft(name string, dryMass, cd, cr, dragArea, srpArea float64) *Spacecraft {
	klog := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stdout))
	klog = kitlog.With(klog, "spacecraft", name)
	return &Spacecraft{name, dryMass, cd, cr, dragArea, srpArea, klog}
}

func (s *Spacecraft) String() string {
	return fmt.Sprintf("%s (%.1f kg)", s.Name, s.DryMass)
}
