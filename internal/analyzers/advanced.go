package analyzers

import (
	"fmt"
	"math"

	"github.com/healthcatchers/iris/internal/domain"
)

// Blood pressure categories, ordered by severity.
var bpCategories = []struct {
	category string
	status   domain.Status
	sysBelow float64
	diaBelow float64
}{
	{"normal", domain.StatusGood, 120, 80},
	{"elevated", domain.StatusWarning, 140, 90},
	{"hypertension_stage_1", domain.StatusDanger, 160, 100},
	{"hypertension_stage_2", domain.StatusDanger, 180, 120},
	{"hypertensive_crisis", domain.StatusDanger, math.Inf(1), math.Inf(1)},
}

// Resting heart rate band, in bpm.
const (
	heartRateLow  = 60
	heartRateHigh = 100
)

type bloodPressureAnalyzer struct{}

func (bloodPressureAnalyzer) Domain() string { return DomainBloodPressure }

// Evaluate takes the more severe of the systolic and diastolic categories.
func (bloodPressureAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	if !in.Features.Supplied(domain.FieldBloodPressure) {
		return domain.DomainReport{}, false
	}
	sys := in.Features.Number(domain.FeatureBPSystolic)
	dia := in.Features.Number(domain.FeatureBPDiastolic)

	level := 0
	for level < len(bpCategories)-1 {
		c := bpCategories[level]
		if sys < c.sysBelow && dia < c.diaBelow {
			break
		}
		level++
	}

	c := bpCategories[level]
	value := fmt.Sprintf("%.0f/%.0f mmHg", sys, dia)
	return report(DomainBloodPressure, c.status, c.category, value), true
}

type cardiovascularAnalyzer struct{}

func (cardiovascularAnalyzer) Domain() string { return DomainCardiovascular }

func (cardiovascularAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	if !in.Features.Supplied(domain.FieldHeartRate) {
		return domain.DomainReport{}, false
	}
	hr := in.Features.Number(domain.FieldHeartRate)
	value := fmt.Sprintf("%.0f bpm", hr)

	switch {
	case hr < heartRateLow:
		return report(DomainCardiovascular, domain.StatusWarning, "low", value), true
	case hr <= heartRateHigh:
		return report(DomainCardiovascular, domain.StatusGood, "normal", value), true
	default:
		return report(DomainCardiovascular, domain.StatusWarning, "elevated", value), true
	}
}

// SleepDisorderFields gate the sleep disorder analyzer.
var SleepDisorderFields = []string{
	domain.FieldSleepDisorder,
	domain.FieldWakeUpDuringNight,
	domain.FieldFeelSleepyDuringDay,
	domain.FieldSmartDeviceBed,
}

type sleepDisorderAnalyzer struct{}

func (sleepDisorderAnalyzer) Domain() string { return DomainSleepDisorder }

// Evaluate counts supplied flags answered Y. Defaulted flags never count.
func (sleepDisorderAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	v := in.Features
	if !v.AnySupplied(SleepDisorderFields...) {
		return domain.DomainReport{}, false
	}

	issues := 0
	for _, f := range SleepDisorderFields {
		if v.Supplied(f) && v.IsYes(f) {
			issues++
		}
	}

	value := fmt.Sprintf("%d issues", issues)
	switch {
	case issues == 0:
		return report(DomainSleepDisorder, domain.StatusGood, "none", value), true
	case issues <= 2:
		return report(DomainSleepDisorder, domain.StatusWarning, "some", value), true
	default:
		return report(DomainSleepDisorder, domain.StatusDanger, "multiple", value), true
	}
}

// LifestyleFields gate the lifestyle analyzer.
var LifestyleFields = []string{
	domain.FieldDailySteps,
	domain.FieldPhysicalActivity,
	domain.FieldCaffeine,
	domain.FieldAlcohol,
	domain.FieldSmoking,
}

type lifestyleItem struct {
	field  string
	weight int
	score  func(v *domain.FeatureVector) int
}

func graded(field string, full, partial float64) func(v *domain.FeatureVector) int {
	return func(v *domain.FeatureVector) int {
		switch n := v.Number(field); {
		case n >= full:
			return 2
		case n >= partial:
			return 1
		default:
			return 0
		}
	}
}

func abstains(field string, points int) func(v *domain.FeatureVector) int {
	return func(v *domain.FeatureVector) int {
		if v.IsYes(field) {
			return 0
		}
		return points
	}
}

var lifestyleItems = []lifestyleItem{
	{domain.FieldDailySteps, 2, graded(domain.FieldDailySteps, 8000, 5000)},
	{domain.FieldPhysicalActivity, 2, graded(domain.FieldPhysicalActivity, 30, 15)},
	{domain.FieldSmoking, 3, abstains(domain.FieldSmoking, 3)},
	{domain.FieldAlcohol, 1, abstains(domain.FieldAlcohol, 1)},
	{domain.FieldCaffeine, 1, abstains(domain.FieldCaffeine, 1)},
}

type lifestyleAnalyzer struct{}

func (lifestyleAnalyzer) Domain() string { return DomainLifestyle }

// Evaluate scores only the supplied items and normalizes to 0-100.
func (lifestyleAnalyzer) Evaluate(in Input) (domain.DomainReport, bool) {
	v := in.Features
	score, possible := 0, 0
	var findings []string
	for _, item := range lifestyleItems {
		if !v.Supplied(item.field) {
			continue
		}
		points := item.score(v)
		possible += item.weight
		score += points
		if points < item.weight {
			findings = append(findings, item.field)
		}
	}
	if possible == 0 {
		return domain.DomainReport{}, false
	}

	pct := float64(score) / float64(possible) * 100
	value := fmt.Sprintf("%.0f%%", math.Round(pct))
	var r domain.DomainReport
	switch {
	case pct >= 80:
		r = report(DomainLifestyle, domain.StatusGood, "healthy", value)
	case pct >= 50:
		r = report(DomainLifestyle, domain.StatusWarning, "needs_improvement", value)
	default:
		r = report(DomainLifestyle, domain.StatusDanger, "unhealthy", value)
	}
	r.Findings = findings
	return r, true
}
