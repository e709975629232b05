package opal

import "testing"

func TestSpacecraftValidate(t *testing.T) {
	sc := NewSpacecraft("Probe", 1200, 2.2, 1.8, 20, 20)
	if err := sc.Validate(); err != nil {
		t.Fatal(err)
	}
	if sc.Mass() != 1200 {
		t.Fatalf("mass %f", sc.Mass())
	}
	sc.LogInfo()

	bad := NewSpacecraft("NoMass", 0, 2.2, 1.8, 20, 20)
	isConfigError(t, bad.Validate(), "zero mass")
	bad = NewSpacecraft("NegCd", 100, -2.2, 1.8, 20, 20)
	isConfigError(t, bad.Validate(), "negative Cd")
	bad = NewSpacecraft("NegArea", 100, 2.2, 1.8, -20, 20)
	isConfigError(t, bad.Validate(), "negative area")
}
