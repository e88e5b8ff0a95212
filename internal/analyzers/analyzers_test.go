package analyzers

import (
	"testing"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input(t *testing.T, raw domain.RawAssessmentInput) Input {
	t.Helper()
	e, err := features.NewEngineer(nil)
	require.NoError(t, err)
	v, err := e.Build(raw)
	require.NoError(t, err)
	return Input{
		Features:   v,
		Prediction: domain.PredictionResult{Probability: 0.2, RiskLevel: domain.RiskLow},
	}
}

func evaluate(t *testing.T, a Analyzer, raw domain.RawAssessmentInput) (domain.DomainReport, bool) {
	t.Helper()
	return a.Evaluate(input(t, raw))
}

func TestBMI(t *testing.T) {
	tests := []struct {
		weight, height float64
		category       string
		status         domain.Status
		value          string
	}{
		{70, 175, "normal", domain.StatusGood, "22.9"},
		{50, 175, "underweight", domain.StatusWarning, "16.3"},
		{85, 175, "overweight", domain.StatusWarning, "27.8"},
		{100, 175, "obese", domain.StatusDanger, "32.7"},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			r, ok := evaluate(t, bmiAnalyzer{}, domain.RawAssessmentInput{
				domain.FieldWeight: tt.weight,
				domain.FieldHeight: tt.height,
			})
			require.True(t, ok)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.value, r.Value)
			assert.Equal(t, "BMI", r.Name)
		})
	}
}

func TestSleep(t *testing.T) {
	tests := []struct {
		name     string
		raw      domain.RawAssessmentInput
		category string
		status   domain.Status
	}{
		{"defaults", domain.RawAssessmentInput{}, "poor_quality", domain.StatusWarning},
		{"deprived", domain.RawAssessmentInput{domain.FieldSleepDuration: 5.5}, "severe_deprivation", domain.StatusDanger},
		{"short", domain.RawAssessmentInput{domain.FieldSleepDuration: 6.5}, "insufficient", domain.StatusWarning},
		{"good", domain.RawAssessmentInput{domain.FieldSleepDuration: 8.0, domain.FieldSleepQuality: 4.0}, "good", domain.StatusGood},
		{"nine hours good", domain.RawAssessmentInput{domain.FieldSleepDuration: 9.0, domain.FieldSleepQuality: 5.0}, "good", domain.StatusGood},
		{"excessive", domain.RawAssessmentInput{domain.FieldSleepDuration: 10.0, domain.FieldSleepQuality: 5.0}, "excessive", domain.StatusWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := evaluate(t, sleepAnalyzer{}, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.status, r.Status)
		})
	}

	r, _ := evaluate(t, sleepAnalyzer{}, domain.RawAssessmentInput{})
	assert.Equal(t, "7.0h - Quality 3/5", r.Value)
}

func TestStress(t *testing.T) {
	tests := []struct {
		level    float64
		category string
		status   domain.Status
	}{
		{1, "low", domain.StatusGood},
		{2, "low", domain.StatusGood},
		{3, "moderate", domain.StatusGood},
		{4, "high", domain.StatusWarning},
		{5, "very_high", domain.StatusDanger},
	}
	for _, tt := range tests {
		r, ok := evaluate(t, stressAnalyzer{}, domain.RawAssessmentInput{domain.FieldStressLevel: tt.level})
		require.True(t, ok)
		assert.Equal(t, tt.category, r.Category, "level %v", tt.level)
		assert.Equal(t, tt.status, r.Status, "level %v", tt.level)
	}
}

func TestDryEye(t *testing.T) {
	tests := []struct {
		p        domain.PredictionResult
		status   domain.Status
		value    string
		category string
	}{
		{domain.PredictionResult{Probability: 0.12, RiskLevel: domain.RiskLow}, domain.StatusGood, "12% (Low)", "low"},
		{domain.PredictionResult{Probability: 0.42, RiskLevel: domain.RiskModerate}, domain.StatusWarning, "42% (Moderate)", "moderate"},
		{domain.PredictionResult{Probability: 0.55, RiskLevel: domain.RiskHigh}, domain.StatusDanger, "55% (High)", "high"},
		{domain.PredictionResult{Probability: 0.91, RiskLevel: domain.RiskVeryHigh}, domain.StatusDanger, "91% (Very High)", "very_high"},
	}
	for _, tt := range tests {
		in := input(t, nil)
		in.Prediction = tt.p
		r, ok := dryEyeAnalyzer{}.Evaluate(in)
		require.True(t, ok)
		assert.Equal(t, tt.status, r.Status)
		assert.Equal(t, tt.value, r.Value)
		assert.Equal(t, tt.category, r.Category)
	}
}

func TestBloodPressure(t *testing.T) {
	tests := []struct {
		bp       string
		category string
		status   domain.Status
	}{
		{"115/75", "normal", domain.StatusGood},
		{"120/75", "elevated", domain.StatusWarning},
		{"118/85", "elevated", domain.StatusWarning},
		{"140/95", "hypertension_stage_1", domain.StatusDanger},
		{"125/92", "hypertension_stage_1", domain.StatusDanger},
		{"165/95", "hypertension_stage_2", domain.StatusDanger},
		{"150/105", "hypertension_stage_2", domain.StatusDanger},
		{"185/110", "hypertensive_crisis", domain.StatusDanger},
		{"130/125", "hypertensive_crisis", domain.StatusDanger},
	}
	for _, tt := range tests {
		t.Run(tt.bp, func(t *testing.T) {
			r, ok := evaluate(t, bloodPressureAnalyzer{}, domain.RawAssessmentInput{domain.FieldBloodPressure: tt.bp})
			require.True(t, ok)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.status, r.Status)
			assert.Equal(t, tt.bp+" mmHg", r.Value)
		})
	}

	r, ok := evaluate(t, bloodPressureAnalyzer{}, domain.RawAssessmentInput{
		domain.FieldSystolic:  142.0,
		domain.FieldDiastolic: 88.0,
	})
	require.True(t, ok)
	assert.Equal(t, "hypertension_stage_1", r.Category)
}

func TestCardiovascular(t *testing.T) {
	tests := []struct {
		hr       float64
		category string
		status   domain.Status
	}{
		{55, "low", domain.StatusWarning},
		{60, "normal", domain.StatusGood},
		{100, "normal", domain.StatusGood},
		{110, "elevated", domain.StatusWarning},
	}
	for _, tt := range tests {
		r, ok := evaluate(t, cardiovascularAnalyzer{}, domain.RawAssessmentInput{domain.FieldHeartRate: tt.hr})
		require.True(t, ok)
		assert.Equal(t, tt.category, r.Category, "hr %v", tt.hr)
		assert.Equal(t, tt.status, r.Status, "hr %v", tt.hr)
	}
}

func TestSleepDisorder(t *testing.T) {
	tests := []struct {
		name     string
		raw      domain.RawAssessmentInput
		category string
		value    string
	}{
		{"none", domain.RawAssessmentInput{domain.FieldSleepDisorder: "N"}, "none", "0 issues"},
		{"one", domain.RawAssessmentInput{domain.FieldSleepDisorder: "Y"}, "some", "1 issues"},
		{"defaulted smart device does not count", domain.RawAssessmentInput{
			domain.FieldSleepDisorder:     "Y",
			domain.FieldWakeUpDuringNight: "Y",
		}, "some", "2 issues"},
		{"three", domain.RawAssessmentInput{
			domain.FieldSleepDisorder:       "Y",
			domain.FieldWakeUpDuringNight:   "Y",
			domain.FieldFeelSleepyDuringDay: "Y",
			domain.FieldSmartDeviceBed:      "N",
		}, "multiple", "3 issues"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := evaluate(t, sleepDisorderAnalyzer{}, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.value, r.Value)
		})
	}
}

func TestLifestyle(t *testing.T) {
	tests := []struct {
		name     string
		raw      domain.RawAssessmentInput
		value    string
		category string
		findings []string
	}{
		{"all healthy", domain.RawAssessmentInput{
			domain.FieldDailySteps:       9000.0,
			domain.FieldPhysicalActivity: 45.0,
			domain.FieldSmoking:          "N",
			domain.FieldAlcohol:          "N",
			domain.FieldCaffeine:         "N",
		}, "100%", "healthy", nil},
		{"six of nine", domain.RawAssessmentInput{
			domain.FieldDailySteps:       6000.0,
			domain.FieldPhysicalActivity: 20.0,
			domain.FieldSmoking:          "N",
			domain.FieldAlcohol:          "N",
			domain.FieldCaffeine:         "Y",
		}, "67%", "needs_improvement", []string{
			domain.FieldDailySteps, domain.FieldPhysicalActivity, domain.FieldCaffeine,
		}},
		{"inactive non-smoker", domain.RawAssessmentInput{
			domain.FieldDailySteps:       1000.0,
			domain.FieldPhysicalActivity: 0.0,
			domain.FieldSmoking:          "N",
			domain.FieldAlcohol:          "N",
			domain.FieldCaffeine:         "Y",
		}, "44%", "unhealthy", []string{
			domain.FieldDailySteps, domain.FieldPhysicalActivity, domain.FieldCaffeine,
		}},
		{"smoker only", domain.RawAssessmentInput{domain.FieldSmoking: "Y"}, "0%", "unhealthy", []string{domain.FieldSmoking}},
		{"steps only", domain.RawAssessmentInput{domain.FieldDailySteps: 8000.0}, "100%", "healthy", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := evaluate(t, lifestyleAnalyzer{}, tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.value, r.Value)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.findings, r.Findings)
		})
	}
}

func TestAdvancedDeclineOnDefaults(t *testing.T) {
	in := input(t, domain.RawAssessmentInput{
		domain.FieldHeartRate:     "fast",
		domain.FieldBloodPressure: "high",
		domain.FieldDailySteps:    "",
	})
	for _, a := range Advanced() {
		_, ok := a.Evaluate(in)
		assert.False(t, ok, "%s should decline", a.Domain())
	}
	assert.Empty(t, Run(Advanced(), in))
	assert.Len(t, Run(Basic(), in), 4)
}

func TestMessagesCoverEveryCategory(t *testing.T) {
	for _, a := range append(Basic(), Advanced()...) {
		assert.Contains(t, Names, a.Domain())
		for category, msg := range Messages[a.Domain()] {
			assert.NotEmpty(t, msg, "%s/%s", a.Domain(), category)
		}
	}
	for _, c := range bpCategories {
		assert.Contains(t, Messages[DomainBloodPressure], c.category)
	}
}
