package analyzers

import (
	"fmt"
	"math"
	"strconv"

	"github.com/healthcatchers/iris/internal/domain"
)

// BMI bands (upper bounds, exclusive).
const (
	bmiUnderweight = 18.5
	bmiNormal      = 25
	bmiOverweight  = 30
)

// Sleep bands, in hours.
const (
	sleepMin        = 6
	sleepOptimalMin = 7
	sleepOptimalMax = 9
	goodSleepScore  = 4
)

type bmiAnalyzer struct{}

func (bmiAnalyzer) Domain() string { return DomainBMI }

func (bmiAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	bmi := in.Features.Number(domain.FeatureBMI)
	value := fmt.Sprintf("%.1f", bmi)

	switch {
	case bmi < bmiUnderweight:
		return report(DomainBMI, domain.StatusWarning, "underweight", value), true
	case bmi < bmiNormal:
		return report(DomainBMI, domain.StatusGood, "normal", value), true
	case bmi < bmiOverweight:
		return report(DomainBMI, domain.StatusWarning, "overweight", value), true
	default:
		return report(DomainBMI, domain.StatusDanger, "obese", value), true
	}
}

type sleepAnalyzer struct{}

func (sleepAnalyzer) Domain() string { return DomainSleep }

func (sleepAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	duration := in.Features.Number(domain.FieldSleepDuration)
	quality := in.Features.Number(domain.FieldSleepQuality)
	value := fmt.Sprintf("%.1fh - Quality %s/5", duration, strconv.FormatFloat(quality, 'f', -1, 64))

	switch {
	case duration < sleepMin:
		return report(DomainSleep, domain.StatusDanger, "severe_deprivation", value), true
	case duration < sleepOptimalMin:
		return report(DomainSleep, domain.StatusWarning, "insufficient", value), true
	case duration <= sleepOptimalMax && quality >= goodSleepScore:
		return report(DomainSleep, domain.StatusGood, "good", value), true
	case duration <= sleepOptimalMax:
		return report(DomainSleep, domain.StatusWarning, "poor_quality", value), true
	default:
		return report(DomainSleep, domain.StatusWarning, "excessive", value), true
	}
}

type stressAnalyzer struct{}

func (stressAnalyzer) Domain() string { return DomainStress }

func (stressAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	stress := in.Features.Number(domain.FieldStressLevel)
	value := fmt.Sprintf("Level %s/5", strconv.FormatFloat(stress, 'f', -1, 64))

	switch {
	case stress <= 2:
		return report(DomainStress, domain.StatusGood, "low", value), true
	case stress < 4:
		return report(DomainStress, domain.StatusGood, "moderate", value), true
	case stress < 5:
		return report(DomainStress, domain.StatusWarning, "high", value), true
	default:
		return report(DomainStress, domain.StatusDanger, "very_high", value), true
	}
}

type dryEyeAnalyzer struct{}

func (dryEyeAnalyzer) Domain() string { return DomainDryEye }

// riskDisplay is how each risk level reads in report values.
var riskDisplay = map[domain.RiskLevel]string{
	domain.RiskLow:      "Low",
	domain.RiskModerate: "Moderate",
	domain.RiskHigh:     "High",
	domain.RiskVeryHigh: "Very High",
}

func (dryEyeAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	p := in.Prediction
	value := fmt.Sprintf("%.0f%% (%s)", math.Round(p.Probability*100), riskDisplay[p.RiskLevel])

	switch p.RiskLevel {
	case domain.RiskVeryHigh:
		return report(DomainDryEye, domain.StatusDanger, "very_high", value), true
	case domain.RiskHigh:
		return report(DomainDryEye, domain.StatusDanger, "high", value), true
	case domain.RiskModerate:
		return report(DomainDryEye, domain.StatusWarning, "moderate", value), true
	default:
		return report(DomainDryEye, domain.StatusGood, "low", value), true
	}
}
