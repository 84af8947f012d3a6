package triage

// Risk is the triage outcome for a mother.
type Risk string

const (
	// RiskEmergency needs a visit within hours
	RiskEmergency Risk = "EMERGENCY"

	// RiskPriority needs a visit within a day
	RiskPriority Risk = "PRIORITY"

	// RiskRoutine is the regular follow-up cadence
	RiskRoutine Risk = "ROUTINE"
)

// Danger-sign flags raised by Assess.
const (
	FlagPPH          = "PPH"
	FlagFeverHigh    = "FEVER_HIGH"
	FlagPreeclampsia = "PREECLAMPSIA"
	FlagFeedIssue    = "NB_FEED_ISSUE"
)

// Visit SLAs in hours per risk level.
const (
	SLAEmergencyHours = 4
	SLAPriorityHours  = 24
	SLARoutineHours   = 72
)

// PriorityAuto means the final priority follows the computed risk; any other
// value is a manual override set by the operator.
const PriorityAuto = "auto"

// Mother is one postpartum mother under follow-up.
type Mother struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	DaysPostpartum int     `json:"days_postpartum"`
	Bleeding       string  `json:"bleeding"` // none, light, heavy
	TempC          float64 `json:"temp_c"`
	Headache       bool    `json:"headache"`
	VisionBlur     bool    `json:"vision_blur"`
	BabyFeeding    bool    `json:"baby_feeding"`
	Priority       string  `json:"priority"` // "auto" or a manual Risk value
	Lat            float64 `json:"lat"`
	Lng            float64 `json:"lng"`
}

// CHW is a community health worker with a home base and a daily visit budget.
type CHW struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	BaseLat      float64 `json:"base_lat"`
	BaseLng      float64 `json:"base_lng"`
	MaxVisitsDay int     `json:"max_visits_day"`
}

// Assessment is the computed triage for a mother.
type Assessment struct {
	Risk     Risk     `json:"risk"`
	Flags    []string `json:"flags"`
	SLAHours int      `json:"sla_hours"`

	// FinalPriority is the risk unless the record carries a manual override.
	FinalPriority string `json:"priority_final"`
}
