package opal

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

/* Scenario files are TOML. A scenario fully describes one propagation: the
vehicle, its initial state, the force model, the integrator and the stop
condition. Every enumerated value (epoch format, state type, drag model,
integrator type, celestial body) is a closed set: anything else aborts the
load with a ConfigError. */

// Scenario is the parsed, validated content of a scenario file.
type Scenario struct {
	Name         string
	Vehicle      *Spacecraft
	InitialOrbit *Orbit
	StartDT      time.Time
	StopDT       time.Time
	Forces       ForceModel
	Integ        IntegratorConfig
	Export       ExportConfig
}

// NewSession builds a ready to run session from this scenario.
func (s *Scenario) NewSession() (*PropagationSession, error) {
	return NewSession(s.Vehicle, s.InitialOrbit, s.StartDT, s.StopDT, s.Forces, s.Integ, s.Export)
}

// LoadScenario reads and validates a scenario TOML file. All problems surface
// as ConfigErrors naming the offending key.
func LoadScenario(path string) (*Scenario, error) {
	v := viper.New()
	v.SetConfigType("toml")
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	v.SetConfigName(strings.TrimSuffix(base, filepath.Ext(base)))
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		return nil, NewConfigError("scenario", "%s: %s", path, err)
	}
	s := &Scenario{Name: v.GetString("general.name")}

	// [spacecraft]
	if !v.IsSet("spacecraft.name") {
		return nil, NewConfigError("spacecraft.name", "missing")
	}
	s.Vehicle = NewSpacecraft(v.GetString("spacecraft.name"), v.GetFloat64("spacecraft.drymass"),
		v.GetFloat64("spacecraft.cd"), v.GetFloat64("spacecraft.cr"),
		v.GetFloat64("spacecraft.dragarea"), v.GetFloat64("spacecraft.srparea"))
	if err := s.Vehicle.Validate(); err != nil {
		return nil, err
	}

	// [forces]
	centralName := v.GetString("forces.centralbody")
	if centralName == "" {
		centralName = "Earth"
	}
	central, err := CelestialObjectFromString(centralName)
	if err != nil {
		return nil, err
	}
	s.Forces.Central = central
	if gravFile := v.GetString("forces.gravityfile"); gravFile != "" {
		degree := uint(v.GetInt("forces.degree"))
		order := uint(v.GetInt("forces.order"))
		field, err := LoadGravityField(gravFile, degree, order)
		if err != nil {
			return nil, err
		}
		s.Forces.Gravity = field
	}
	for _, name := range v.GetStringSlice("forces.thirdbodies") {
		body, err := CelestialObjectFromString(name)
		if err != nil {
			return nil, err
		}
		s.Forces.Bodies = append(s.Forces.Bodies, body)
	}
	dragName := v.GetString("forces.drag")
	if dragName == "" {
		dragName = "none"
	}
	if s.Forces.Drag, err = DragModelFromString(dragName); err != nil {
		return nil, err
	}
	s.Forces.SRP = v.GetBool("forces.srp")
	s.Forces.Relativity = v.GetBool("forces.relativity")

	// [state]
	epochFmt, err := EpochFormatFromString(v.GetString("state.epochformat"))
	if err != nil {
		return nil, err
	}
	if s.StartDT, err = ParseEpoch(epochFmt, v.GetString("state.epoch")); err != nil {
		return nil, err
	}
	switch strings.ToLower(v.GetString("state.type")) {
	case "keplerian":
		s.InitialOrbit = NewOrbitFromOE(v.GetFloat64("state.sma"), v.GetFloat64("state.ecc"),
			v.GetFloat64("state.inc"), v.GetFloat64("state.raan"), v.GetFloat64("state.aop"),
			v.GetFloat64("state.ta"), central)
	case "cartesian":
		R := []float64{v.GetFloat64("state.x"), v.GetFloat64("state.y"), v.GetFloat64("state.z")}
		V := []float64{v.GetFloat64("state.vx"), v.GetFloat64("state.vy"), v.GetFloat64("state.vz")}
		s.InitialOrbit = NewOrbitFromRV(R, V, central)
	default:
		return nil, NewConfigError("state.type", "undefined state type '%s'", v.GetString("state.type"))
	}

	// [integrator]
	s.Integ = DefaultIntegratorConfig()
	if v.IsSet("integrator.type") {
		if s.Integ.Type, err = IntegratorTypeFromString(v.GetString("integrator.type")); err != nil {
			return nil, err
		}
	}
	if v.IsSet("integrator.initialstep") {
		s.Integ.InitialStep = v.GetFloat64("integrator.initialstep")
	}
	if v.IsSet("integrator.minstep") {
		s.Integ.MinStep = v.GetFloat64("integrator.minstep")
	}
	if v.IsSet("integrator.maxstep") {
		s.Integ.MaxStep = v.GetFloat64("integrator.maxstep")
	}
	if v.IsSet("integrator.tolerance") {
		s.Integ.Tolerance = v.GetFloat64("integrator.tolerance")
	}
	if v.IsSet("integrator.maxattempts") {
		s.Integ.MaxStepAttempts = uint(v.GetInt("integrator.maxattempts"))
	}
	if v.IsSet("integrator.stopifaccuracyisviolated") {
		s.Integ.StopIfAccuracyIsViolated = v.GetBool("integrator.stopifaccuracyisviolated")
	}
	if err = s.Integ.Validate(); err != nil {
		return nil, err
	}

	// [propagate]
	stopFmt := epochFmt
	if v.IsSet("propagate.epochformat") {
		if stopFmt, err = EpochFormatFromString(v.GetString("propagate.epochformat")); err != nil {
			return nil, err
		}
	}
	if !v.IsSet("propagate.epoch") {
		return nil, NewConfigError("propagate.epoch", "missing")
	}
	if s.StopDT, err = ParseEpoch(stopFmt, v.GetString("propagate.epoch")); err != nil {
		return nil, err
	}

	// [export]
	s.Export = ExportConfig{
		Filename:  v.GetString("export.filename"),
		XYZV:      v.GetBool("export.xyzv"),
		Timestamp: v.GetBool("export.timestamp"),
	}
	if s.Export.XYZV && s.Export.Filename == "" {
		s.Export.Filename = s.Vehicle.Name
	}
	return s, nil
}
