package summary

import (
	"testing"

	"github.com/healthcatchers/iris/internal/analyzers"
	"github.com/healthcatchers/iris/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var low = domain.PredictionResult{Probability: 0.1, RiskLevel: domain.RiskLow}

func rep(d string, s domain.Status) domain.DomainReport {
	return domain.DomainReport{Domain: d, Status: s}
}

func TestAllGood(t *testing.T) {
	s := NewAggregator().Summarize(low, []domain.DomainReport{
		rep(analyzers.DomainBMI, domain.StatusGood),
		rep(analyzers.DomainDryEye, domain.StatusGood),
	})

	assert.Equal(t, domain.StatusGood, s.OverallStatus)
	assert.Equal(t, OverallMessages[domain.StatusGood], s.OverallMessage)
	assert.Equal(t, 2, s.GoodCount)
	assert.NotNil(t, s.TopRecommendations)
	assert.Empty(t, s.TopRecommendations)
}

func TestDangerReportWinsOverLowRisk(t *testing.T) {
	s := NewAggregator().Summarize(low, []domain.DomainReport{
		rep(analyzers.DomainDryEye, domain.StatusGood),
		rep(analyzers.DomainStress, domain.StatusWarning),
		rep(analyzers.DomainBMI, domain.StatusDanger),
	})

	assert.Equal(t, domain.StatusDanger, s.OverallStatus)
	assert.Equal(t, 1, s.DangerCount)
	assert.Equal(t, 1, s.WarningCount)
	assert.Equal(t, 1, s.GoodCount)

	// Danger first, then warning.
	bmi := Recommendations[Key{analyzers.DomainBMI, domain.StatusDanger}]
	stress := Recommendations[Key{analyzers.DomainStress, domain.StatusWarning}]
	assert.Equal(t, append(append([]string{}, bmi...), stress...), s.TopRecommendations)
}

func TestElevatedRiskEscalates(t *testing.T) {
	for _, level := range []domain.RiskLevel{domain.RiskHigh, domain.RiskVeryHigh} {
		s := NewAggregator().Summarize(domain.PredictionResult{Probability: 0.8, RiskLevel: level}, []domain.DomainReport{
			rep(analyzers.DomainBMI, domain.StatusGood),
		})
		assert.Equal(t, domain.StatusDanger, s.OverallStatus, string(level))
		assert.Equal(t, OverallMessages[domain.StatusDanger], s.OverallMessage)
	}

	s := NewAggregator().Summarize(domain.PredictionResult{Probability: 0.4, RiskLevel: domain.RiskModerate}, []domain.DomainReport{
		rep(analyzers.DomainBMI, domain.StatusGood),
	})
	assert.Equal(t, domain.StatusGood, s.OverallStatus)
}

func TestDryEyeFallsBackToRiskActions(t *testing.T) {
	prediction := domain.PredictionResult{Probability: 0.75, RiskLevel: domain.RiskVeryHigh}
	s := NewAggregator().Summarize(prediction, []domain.DomainReport{
		rep(analyzers.DomainSleep, domain.StatusDanger),
		rep(analyzers.DomainDryEye, domain.StatusDanger),
	})

	require.Len(t, s.TopRecommendations, 4)
	assert.Equal(t, highRiskActions[:2], s.TopRecommendations[:2], "dry_eye outranks sleep")

	moderate := domain.PredictionResult{Probability: 0.4, RiskLevel: domain.RiskModerate}
	s = NewAggregator().Summarize(moderate, []domain.DomainReport{rep(analyzers.DomainDryEye, domain.StatusWarning)})
	assert.Equal(t, RiskActions[domain.RiskModerate][:2], s.TopRecommendations)
}

func TestLifestyleRecommendsOnlyFindings(t *testing.T) {
	r := rep(analyzers.DomainLifestyle, domain.StatusDanger)
	r.Findings = []string{domain.FieldDailySteps, domain.FieldPhysicalActivity, domain.FieldCaffeine}
	s := NewAggregator().Summarize(low, []domain.DomainReport{r})

	assert.Equal(t, []string{
		FindingRecommendations[domain.FieldDailySteps],
		FindingRecommendations[domain.FieldPhysicalActivity],
		FindingRecommendations[domain.FieldCaffeine],
	}, s.TopRecommendations)
	assert.NotContains(t, s.TopRecommendations, FindingRecommendations[domain.FieldSmoking])
	assert.NotContains(t, s.TopRecommendations, FindingRecommendations[domain.FieldAlcohol])

	// Without findings the status entry applies.
	s = NewAggregator().Summarize(low, []domain.DomainReport{rep(analyzers.DomainLifestyle, domain.StatusDanger)})
	assert.Equal(t, Recommendations[Key{analyzers.DomainLifestyle, domain.StatusDanger}], s.TopRecommendations)
}

func TestDuplicatesRemoved(t *testing.T) {
	s := NewAggregator().Summarize(low, []domain.DomainReport{
		rep(analyzers.DomainSleepDisorder, domain.StatusDanger),
		rep(analyzers.DomainSleepDisorder, domain.StatusWarning),
	})
	assert.Equal(t, []string{
		"Consult a doctor about sleep disorder treatment",
		"Turn off devices at least 1 hour before sleep",
		"Take short 15-20 minute naps",
	}, s.TopRecommendations)
}

// Every combination of statuses across every domain, under every risk level.
func TestRecommendationCapAndUniqueness(t *testing.T) {
	statuses := []domain.Status{domain.StatusGood, domain.StatusWarning, domain.StatusDanger}
	levels := []domain.RiskLevel{domain.RiskLow, domain.RiskModerate, domain.RiskHigh, domain.RiskVeryHigh}
	agg := NewAggregator()

	combos := 1
	for range DomainPriority {
		combos *= len(statuses)
	}

	reports := make([]domain.DomainReport, len(DomainPriority))
	for _, level := range levels {
		prediction := domain.PredictionResult{RiskLevel: level}
		for n := 0; n < combos; n++ {
			worst := domain.StatusGood
			k := n
			for i, d := range DomainPriority {
				reports[i] = rep(d, statuses[k%len(statuses)])
				if reports[i].Status.Severity() > worst.Severity() {
					worst = reports[i].Status
				}
				k /= len(statuses)
			}

			s := agg.Summarize(prediction, reports)

			if len(s.TopRecommendations) > MaxRecommendations {
				t.Fatalf("combo %d/%s: %d recommendations", n, level, len(s.TopRecommendations))
			}
			seen := make(map[string]bool)
			for _, r := range s.TopRecommendations {
				if seen[r] {
					t.Fatalf("combo %d/%s: duplicate %q", n, level, r)
				}
				seen[r] = true
			}

			want := worst
			if level.Elevated() {
				want = domain.StatusDanger
			}
			if s.OverallStatus != want {
				t.Fatalf("combo %d/%s: overall %s, want %s", n, level, s.OverallStatus, want)
			}
			if worst != domain.StatusGood && len(s.TopRecommendations) == 0 {
				t.Fatalf("combo %d/%s: no recommendations", n, level)
			}
		}
	}
}

func TestTablesCoverEveryNonGoodStatus(t *testing.T) {
	for _, d := range DomainPriority {
		if d == analyzers.DomainDryEye {
			continue
		}
		_, ok := Recommendations[Key{d, domain.StatusWarning}]
		assert.True(t, ok, "%s/warning", d)
	}
	for level, actions := range RiskActions {
		assert.GreaterOrEqual(t, len(actions), fallbackPerDomain, string(level))
	}
	for _, f := range []string{
		domain.FieldDailySteps, domain.FieldPhysicalActivity,
		domain.FieldSmoking, domain.FieldAlcohol, domain.FieldCaffeine,
	} {
		assert.NotEmpty(t, FindingRecommendations[f], f)
	}
}
