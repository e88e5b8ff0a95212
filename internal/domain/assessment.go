package domain

// RiskLevel is the four-level bucket of a dry eye probability.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "VeryHigh"
)

// Elevated reports whether the level forces the overall status to danger.
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskVeryHigh
}

// Status is the traffic-light outcome of a domain report.
type Status string

const (
	StatusGood    Status = "good"
	StatusWarning Status = "warning"
	StatusDanger  Status = "danger"
)

// Severity orders statuses: good < warning < danger.
func (s Status) Severity() int {
	switch s {
	case StatusDanger:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Impact buckets for ranked risk factors.
const (
	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// Contribution directions.
const (
	DirectionIncreases = "increases"
	DirectionDecreases = "decreases"
)

// PredictionResult is the classifier output for one questionnaire.
type PredictionResult struct {
	Probability float64   `json:"probability"`
	RiskLevel   RiskLevel `json:"riskLevel"`
}

// RiskFactor is one ranked feature attribution.
type RiskFactor struct {
	Feature      string  `json:"feature"`
	Label        string  `json:"label"`
	Value        float64 `json:"value"`
	Contribution float64 `json:"contribution"`
	Impact       string  `json:"impact"`
	Direction    string  `json:"direction"`
}

// Explanation is the ranked attribution of a prediction.
// Baseline plus every contribution of the full (unranked) attribution
// reconstructs the predicted probability.
type Explanation struct {
	Baseline float64      `json:"baseline"`
	Factors  []RiskFactor `json:"factors"`
}

// DomainReport is the outcome of one domain analyzer.
type DomainReport struct {
	Domain   string `json:"domain"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Category string `json:"category"`
	Value    string `json:"value"`
	Message  string `json:"message"`

	// Findings are the inputs that lowered the score, for analyzers that
	// combine several answers.
	Findings []string `json:"findings,omitempty"`
}

// AssessmentSummary is the aggregated view over every report.
type AssessmentSummary struct {
	OverallStatus      Status   `json:"overallStatus"`
	OverallMessage     string   `json:"overallMessage"`
	DangerCount        int      `json:"dangerCount"`
	WarningCount       int      `json:"warningCount"`
	GoodCount          int      `json:"goodCount"`
	TopRecommendations []string `json:"topRecommendations"`
}

// PredictionResponse answers the predict_dry_eye verb.
type PredictionResponse struct {
	Prediction  PredictionResult `json:"prediction"`
	RiskFactors []RiskFactor     `json:"riskFactors"`
	Baseline    float64          `json:"baseline"`
}

// AssessmentResponse is the complete result of one assessment.
type AssessmentResponse struct {
	Prediction      PredictionResult  `json:"prediction"`
	RiskFactors     []RiskFactor      `json:"riskFactors"`
	Baseline        float64           `json:"baseline"`
	BasicReports    []DomainReport    `json:"basicReports"`
	AdvancedReports []DomainReport    `json:"advancedReports"`
	Summary         AssessmentSummary `json:"summary"`
}

// Reports returns basic and advanced reports in evaluation order.
func (r *AssessmentResponse) Reports() []DomainReport {
	all := make([]DomainReport, 0, len(r.BasicReports)+len(r.AdvancedReports))
	all = append(all, r.BasicReports...)
	return append(all, r.AdvancedReports...)
}
