// Package summary aggregates the prediction and every domain report into one
// overall status and a prioritized recommendation list.
package summary

import (
	"sort"

	"github.com/healthcatchers/iris/internal/analyzers"
	"github.com/healthcatchers/iris/internal/domain"
)

// MaxRecommendations caps the summary recommendation list.
const MaxRecommendations = 5

// fallbackPerDomain is how many risk-level actions a domain without its own
// table entry contributes.
const fallbackPerDomain = 2

// DomainPriority orders recommendations of equal severity.
var DomainPriority = []string{
	analyzers.DomainDryEye,
	analyzers.DomainBloodPressure,
	analyzers.DomainCardiovascular,
	analyzers.DomainBMI,
	analyzers.DomainSleep,
	analyzers.DomainSleepDisorder,
	analyzers.DomainStress,
	analyzers.DomainLifestyle,
}

// OverallMessages is the summary message for each overall status.
var OverallMessages = map[domain.Status]string{
	domain.StatusGood:    "Overall health is good",
	domain.StatusWarning: "Some metrics need monitoring",
	domain.StatusDanger:  "Health issues require attention",
}

// Key selects remediation messages.
type Key struct {
	Domain string
	Status domain.Status
}

// Recommendations holds the remediation messages for each non-good (domain, status).
var Recommendations = map[Key][]string{
	{analyzers.DomainBMI, domain.StatusWarning}: {
		"Move your weight toward the healthy BMI range with balanced meals",
		"Increase physical activity",
	},
	{analyzers.DomainBMI, domain.StatusDanger}: {
		"Consult a doctor about a weight loss plan",
		"Start with light exercise and gradually increase intensity",
	},
	{analyzers.DomainSleep, domain.StatusWarning}: {
		"Improve your sleep environment",
		"Avoid screens 1 hour before bed",
	},
	{analyzers.DomainSleep, domain.StatusDanger}: {
		"Try to sleep at least 7 hours per night",
		"Establish a regular bedtime routine",
	},
	{analyzers.DomainStress, domain.StatusWarning}: {
		"Practice meditation or yoga",
		"Reduce workload if possible",
	},
	{analyzers.DomainStress, domain.StatusDanger}: {
		"Consider professional counseling",
		"Prioritize rest",
	},
	{analyzers.DomainBloodPressure, domain.StatusWarning}: {
		"Reduce salt in your diet",
		"Monitor blood pressure frequently",
	},
	{analyzers.DomainBloodPressure, domain.StatusDanger}: {
		"Consult a doctor about your blood pressure",
		"Limit alcohol and tobacco",
	},
	{analyzers.DomainCardiovascular, domain.StatusWarning}: {
		"Watch for symptoms like dizziness or palpitations",
		"Consult a doctor if your resting heart rate stays outside 60-100 bpm",
	},
	{analyzers.DomainSleepDisorder, domain.StatusWarning}: {
		"Turn off devices at least 1 hour before sleep",
		"Take short 15-20 minute naps",
	},
	{analyzers.DomainSleepDisorder, domain.StatusDanger}: {
		"Consult a doctor about sleep disorder treatment",
		"Turn off devices at least 1 hour before sleep",
	},
	{analyzers.DomainLifestyle, domain.StatusWarning}: {
		"Review the daily habits that lowered your lifestyle score",
	},
	{analyzers.DomainLifestyle, domain.StatusDanger}: {
		"Talk to a doctor about a plan for healthier daily habits",
	},
}

// FindingRecommendations holds the remediation message for each input a
// report lists in its findings. They replace the (domain, status) entry.
var FindingRecommendations = map[string]string{
	domain.FieldDailySteps:       "Increase daily steps to 8000",
	domain.FieldPhysicalActivity: "Increase exercise to 30 min/day",
	domain.FieldSmoking:          "Quit smoking to significantly improve health",
	domain.FieldAlcohol:          "Limit alcohol consumption",
	domain.FieldCaffeine:         "Cut back on caffeine, especially after midday",
}

// RiskActions is the default action list for each risk level.
var RiskActions = map[domain.RiskLevel][]string{
	domain.RiskVeryHigh: highRiskActions,
	domain.RiskHigh:     highRiskActions,
	domain.RiskModerate: {
		"Take regular breaks every 45-60 minutes.",
		"Consider a warm compress for your eyes in the evening.",
		"Adjust medical/lifestyle factors like hydration and sleep.",
		"Blink more often when using screens.",
	},
	domain.RiskLow: {
		"Maintain your good habits.",
		"Stay hydrated.",
		"Ensure generic eye hygiene when using screens.",
	},
}

var highRiskActions = []string{
	"Schedule an eye examination with an ophthalmologist immediately.",
	"Strictly follow the 20-20-20 rule: Every 20 mins, look 20 ft away for 20 sec.",
	"Use artificial tears to lubricate your eyes.",
	"Reduce screen time significantly below 6 hours.",
}

// Aggregator builds assessment summaries. It holds no state.
type Aggregator struct {
	priority map[string]int
}

// NewAggregator creates an aggregator over the fixed domain priority.
func NewAggregator() *Aggregator {
	priority := make(map[string]int, len(DomainPriority))
	for i, d := range DomainPriority {
		priority[d] = i
	}
	return &Aggregator{priority: priority}
}

type candidate struct {
	text     string
	severity int
	priority int
}

// Summarize merges the prediction and reports into a summary.
func (a *Aggregator) Summarize(prediction domain.PredictionResult, reports []domain.DomainReport) domain.AssessmentSummary {
	s := domain.AssessmentSummary{OverallStatus: domain.StatusGood}

	var candidates []candidate
	for _, r := range reports {
		switch r.Status {
		case domain.StatusDanger:
			s.DangerCount++
		case domain.StatusWarning:
			s.WarningCount++
		default:
			s.GoodCount++
		}
		if r.Status.Severity() > s.OverallStatus.Severity() {
			s.OverallStatus = r.Status
		}

		if r.Status == domain.StatusGood {
			continue
		}
		for _, text := range a.messages(r, prediction.RiskLevel) {
			candidates = append(candidates, candidate{
				text:     text,
				severity: r.Status.Severity(),
				priority: a.rank(r.Domain),
			})
		}
	}

	// The classifier alone can force danger.
	if prediction.RiskLevel.Elevated() {
		s.OverallStatus = domain.StatusDanger
	}
	s.OverallMessage = OverallMessages[s.OverallStatus]

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].severity != candidates[j].severity {
			return candidates[i].severity > candidates[j].severity
		}
		return candidates[i].priority < candidates[j].priority
	})

	s.TopRecommendations = make([]string, 0, MaxRecommendations)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if len(s.TopRecommendations) == MaxRecommendations {
			break
		}
		if seen[c.text] {
			continue
		}
		seen[c.text] = true
		s.TopRecommendations = append(s.TopRecommendations, c.text)
	}

	return s
}

// messages returns the finding entries of a report, else its table entry,
// else the first risk-level actions.
func (a *Aggregator) messages(r domain.DomainReport, level domain.RiskLevel) []string {
	var found []string
	for _, f := range r.Findings {
		if msg, ok := FindingRecommendations[f]; ok {
			found = append(found, msg)
		}
	}
	if len(found) > 0 {
		return found
	}
	if msgs, ok := Recommendations[Key{r.Domain, r.Status}]; ok {
		return msgs
	}
	actions := RiskActions[level]
	if len(actions) > fallbackPerDomain {
		actions = actions[:fallbackPerDomain]
	}
	return actions
}

func (a *Aggregator) rank(d string) int {
	if p, ok := a.priority[d]; ok {
		return p
	}
	return len(a.priority)
}
