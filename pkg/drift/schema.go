package drift

import "fmt"

// Input columns.
const (
	ColTime = "datetime_iso"
	ColX    = "X_km"
	ColY    = "Y_km"
	ColZ    = "Z_km"
	ColVX   = "VX_kms"
	ColVY   = "VY_kms"
	ColVZ   = "VZ_kms"
)

// Derived columns written on export.
const (
	ColRadial     = "R_km"
	ColBaseline   = "GR_drift_km"
	ColCorrected  = "MQUDE_drift_km"
	ColResidualKm = "Residual_km"
	ColResidualM  = "Residual_m"
	ColAlpha      = "alpha"
	ColLambda     = "lambda_km"
)

// Unsuffixed names used by older exports. Accepted when reading an export
// back, never written.
const (
	legacyBaseline  = "GR_drift"
	legacyCorrected = "MQUDE_drift"
)

// DerivedColumns lists the columns appended on export, in order.
var DerivedColumns = []string{
	ColRadial, ColBaseline, ColCorrected, ColResidualKm, ColResidualM, ColAlpha, ColLambda,
}

// Profile selects which columns an input table must carry.
type Profile string

const (
	// ProfileMinimal requires the timestamp and the three position components.
	ProfileMinimal Profile = "minimal"
	// ProfileStrict also requires the three velocity components.
	ProfileStrict Profile = "strict"
)

// ParseProfile maps a configuration value to a Profile.
func ParseProfile(s string) (Profile, error) {
	switch Profile(s) {
	case ProfileMinimal:
		return ProfileMinimal, nil
	case ProfileStrict, "":
		return ProfileStrict, nil
	default:
		return "", fmt.Errorf("unknown schema profile %q (want %q or %q)", s, ProfileMinimal, ProfileStrict)
	}
}

// Columns returns the required column names for the profile.
func (p Profile) Columns() []string {
	cols := []string{ColTime, ColX, ColY, ColZ}
	if p == ProfileStrict {
		cols = append(cols, ColVX, ColVY, ColVZ)
	}
	return cols
}

// Validate checks that every required column is present in t. On failure
// the returned *SchemaError lists all missing columns in required order.
// On success t is returned unchanged.
func Validate(t *Table, required []string) (*Table, error) {
	var missing []string
	for _, name := range required {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}
	return t, nil
}
