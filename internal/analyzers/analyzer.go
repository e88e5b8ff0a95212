// Package analyzers scores individual health domains with fixed rules.
// Analyzers are pure and independent of each other and of the classifier.
package analyzers

import (
	"github.com/healthcatchers/iris/internal/domain"
)

// Domain keys.
const (
	DomainBMI            = "bmi"
	DomainSleep          = "sleep"
	DomainStress         = "stress"
	DomainDryEye         = "dry_eye"
	DomainBloodPressure  = "blood_pressure"
	DomainCardiovascular = "cardiovascular"
	DomainSleepDisorder  = "sleep_disorder"
	DomainLifestyle      = "lifestyle"
)

// Input is everything an analyzer may read.
type Input struct {
	Features   *domain.FeatureVector
	Prediction domain.PredictionResult
}

// Analyzer scores one domain. Evaluate returns false when the analyzer
// declines to run because its optional inputs were not supplied.
type Analyzer interface {
	Domain() string
	Evaluate(in Input) (domain.DomainReport, bool)
}

// Basic returns the analyzers that always run, in report order.
func Basic() []Analyzer {
	return []Analyzer{
		bmiAnalyzer{},
		sleepAnalyzer{},
		stressAnalyzer{},
		dryEyeAnalyzer{},
	}
}

// Advanced returns the analyzers gated on supplied fields, in report order.
func Advanced() []Analyzer {
	return []Analyzer{
		bloodPressureAnalyzer{},
		cardiovascularAnalyzer{},
		sleepDisorderAnalyzer{},
		lifestyleAnalyzer{},
	}
}

// Run evaluates every analyzer and collects the reports that were produced.
func Run(list []Analyzer, in Input) []domain.DomainReport {
	reports := make([]domain.DomainReport, 0, len(list))
	for _, a := range list {
		if r, ok := a.Evaluate(in); ok {
			reports = append(reports, r)
		}
	}
	return reports
}

// Names are the display names of each domain.
var Names = map[string]string{
	DomainBMI:            "BMI",
	DomainSleep:          "Sleep",
	DomainStress:         "Stress",
	DomainDryEye:         "Dry Eye Risk",
	DomainBloodPressure:  "Blood Pressure",
	DomainCardiovascular: "Cardiovascular",
	DomainSleepDisorder:  "Advanced Sleep",
	DomainLifestyle:      "Lifestyle",
}

// Messages holds the report message for every (domain, category).
var Messages = map[string]map[string]string{
	DomainBMI: {
		"underweight": "Underweight",
		"normal":      "Normal weight",
		"overweight":  "Overweight",
		"obese":       "Obese",
	},
	DomainSleep: {
		"severe_deprivation": "Severe sleep deprivation",
		"insufficient":       "Insufficient sleep",
		"good":               "Good sleep",
		"poor_quality":       "Adequate duration but poor quality",
		"excessive":          "Excessive sleep",
	},
	DomainStress: {
		"low":       "Low stress level",
		"moderate":  "Moderate stress level",
		"high":      "High stress",
		"very_high": "Very high stress",
	},
	DomainDryEye: {
		"low":       "Low risk of dry eye disease",
		"moderate":  "Moderate risk of dry eye disease",
		"high":      "High risk of dry eye disease",
		"very_high": "Very high risk of dry eye disease",
	},
	DomainBloodPressure: {
		"normal":               "Normal blood pressure",
		"elevated":             "Elevated blood pressure",
		"hypertension_stage_1": "High blood pressure stage 1",
		"hypertension_stage_2": "High blood pressure stage 2",
		"hypertensive_crisis":  "Severe high blood pressure",
	},
	DomainCardiovascular: {
		"low":      "Low heart rate",
		"normal":   "Normal heart rate",
		"elevated": "Elevated heart rate",
	},
	DomainSleepDisorder: {
		"none":     "No advanced sleep issues",
		"some":     "Some sleep issues reported",
		"multiple": "Multiple sleep issues reported",
	},
	DomainLifestyle: {
		"healthy":           "Healthy lifestyle",
		"needs_improvement": "Lifestyle needs improvement",
		"unhealthy":         "Unhealthy lifestyle",
	},
}

func report(dom string, status domain.Status, category, value string) domain.DomainReport {
	return domain.DomainReport{
		Domain:   dom,
		Name:     Names[dom],
		Status:   status,
		Category: category,
		Value:    value,
		Message:  Messages[dom][category],
	}
}
