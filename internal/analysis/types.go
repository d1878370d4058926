package analysis

type FindingType string

const (
	FindingPainPoint           FindingType = "pain_point"
	FindingOpportunity         FindingType = "opportunity"
	FindingProcessGap          FindingType = "process_gap"
	FindingAutomationCandidate FindingType = "automation_candidate"
	FindingIntegrationNeed     FindingType = "integration_need"
	FindingUserRequest         FindingType = "user_request"
)

func (t FindingType) Valid() bool {
	switch t {
	case FindingPainPoint, FindingOpportunity, FindingProcessGap,
		FindingAutomationCandidate, FindingIntegrationNeed, FindingUserRequest:
		return true
	}
	return false
}

// KeyQuote is a verbatim line worth surfacing on the interview page.
type KeyQuote struct {
	Quote   string `json:"quote"`
	Speaker string `json:"speaker"`
	Topic   string `json:"topic"`
}

// Finding is one discovery insight extracted from an interview.
type Finding struct {
	FindingType      FindingType `json:"finding_type"`
	Title            string      `json:"title"`
	Description      string      `json:"description"`
	ImpactLevel      int         `json:"impact_level"` // 1 (minor) .. 5 (critical)
	Frequency        int         `json:"frequency"`
	BusinessArea     string      `json:"business_area,omitempty"`
	ProcessName      string      `json:"process_name,omitempty"`
	SupportingQuotes []string    `json:"supporting_quotes"`
	Tags             []string    `json:"tags"`
}

// Result holds everything extracted from one transcript.
type Result struct {
	Summary   string     `json:"summary"`
	KeyQuotes []KeyQuote `json:"key_quotes"`
	Findings  []Finding  `json:"findings"`
}
