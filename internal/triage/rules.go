package triage

import "strings"

// emergencyFlags are the danger signs that escalate to an emergency visit.
// Every flag the current rules can raise is in here; the set exists so a
// future sub-emergency sign slots into the PRIORITY tier without touching
// the classification below.
var emergencyFlags = map[string]bool{
	FlagPPH:          true,
	FlagFeverHigh:    true,
	FlagPreeclampsia: true,
	"SEPSIS":         true,
	FlagFeedIssue:    true,
}

// Assess runs the danger-sign rules over a mother record. It is pure: no
// store access, no clock, so the dashboard can recompute it on every read.
func Assess(m *Mother) Assessment {
	var flags []string

	if strings.EqualFold(m.Bleeding, "heavy") {
		flags = append(flags, FlagPPH)
	}
	if m.TempC >= 38.0 {
		flags = append(flags, FlagFeverHigh)
	}
	if m.Headache && m.VisionBlur {
		flags = append(flags, FlagPreeclampsia)
	}
	if !m.BabyFeeding {
		flags = append(flags, FlagFeedIssue)
	}

	a := Assessment{Flags: flags}
	switch {
	case hasEmergency(flags):
		a.Risk = RiskEmergency
		a.SLAHours = SLAEmergencyHours
	case len(flags) > 0:
		a.Risk = RiskPriority
		a.SLAHours = SLAPriorityHours
	default:
		a.Risk = RiskRoutine
		a.SLAHours = SLARoutineHours
	}

	a.FinalPriority = string(a.Risk)
	if m.Priority != "" && !strings.EqualFold(m.Priority, PriorityAuto) {
		a.FinalPriority = m.Priority
	}
	return a
}

func hasEmergency(flags []string) bool {
	for _, f := range flags {
		if emergencyFlags[f] {
			return true
		}
	}
	return false
}
