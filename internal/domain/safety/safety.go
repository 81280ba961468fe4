// Package safety models the inputs of safety constraint evaluation: red
// flags with a closed severity table, coordinates, and dating preferences.
package safety

// RedFlag identifies a moderation signal attached to a user.
type RedFlag string

// Known red flags. Severity 1.0 flags are critical and short-circuit
// safety evaluation to the maximum penalty.
const (
	FlagHarassmentHistory   RedFlag = "harassment_history"
	FlagViolenceHistory     RedFlag = "violence_history"
	FlagScamReports         RedFlag = "scam_reports"
	FlagCatfishReports      RedFlag = "catfish_reports"
	FlagAggressiveMessaging RedFlag = "aggressive_messaging"
	FlagSpamBehavior        RedFlag = "spam_behavior"
	FlagGhostingPattern     RedFlag = "ghosting_pattern"
)

// CriticalSeverity marks flags that void a pairing outright.
const CriticalSeverity = 1.0

// UnknownFlagSeverity is applied to flag identifiers missing from the
// severity table, so an unrecognized flag is never silently ignored.
const UnknownFlagSeverity = 0.5

var severities = map[RedFlag]float64{
	FlagHarassmentHistory:   1.0,
	FlagViolenceHistory:     1.0,
	FlagScamReports:         0.9,
	FlagCatfishReports:      0.8,
	FlagAggressiveMessaging: 0.6,
	FlagSpamBehavior:        0.4,
	FlagGhostingPattern:     0.3,
}

// Severity returns the severity of a flag and whether the flag is known.
// Unknown flags fall back to UnknownFlagSeverity.
func Severity(f RedFlag) (float64, bool) {
	if s, ok := severities[f]; ok {
		return s, true
	}
	return UnknownFlagSeverity, false
}

// Critical reports whether a flag voids a pairing regardless of other factors.
func Critical(f RedFlag) bool {
	s, _ := Severity(f)
	return s >= CriticalSeverity
}

// Coordinates is a lat/lon pair in degrees.
type Coordinates struct {
	Lat float64
	Lon float64
}

// Valid reports whether the coordinates are within geographic bounds.
func (c Coordinates) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Preferences are a user's optional match constraints. Nil means unset.
type Preferences struct {
	MaxDistanceKm *float64
	MinAge        *int
	MaxAge        *int
}

// AcceptsAge reports whether the given age passes the user's age bounds.
func (p Preferences) AcceptsAge(age int) bool {
	if p.MinAge != nil && age < *p.MinAge {
		return false
	}
	if p.MaxAge != nil && age > *p.MaxAge {
		return false
	}
	return true
}

// Profile is the safety-relevant slice of a user.
type Profile struct {
	UserID      string
	Age         int
	Location    Coordinates
	RedFlags    []RedFlag
	Preferences Preferences
}

// MaxFlagSeverity returns the highest severity among the user's flags,
// and whether any of them is critical.
func (p Profile) MaxFlagSeverity() (maxSeverity float64, critical bool) {
	for _, f := range p.RedFlags {
		s, _ := Severity(f)
		if s > maxSeverity {
			maxSeverity = s
		}
		if s >= CriticalSeverity {
			critical = true
		}
	}
	return maxSeverity, critical
}
