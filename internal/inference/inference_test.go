package inference

import (
	"errors"
	"math"
	"testing"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/healthcatchers/iris/internal/features"
	"github.com/healthcatchers/iris/internal/model/modeltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier returns canned results over a fixed schema.
type stubClassifier struct {
	names []string
	prob  float64
	attr  *domain.Attribution
	err   error
}

func (s *stubClassifier) FeatureNames() []string { return s.names }

func (s *stubClassifier) PredictProbability([]float64) (float64, error) { return s.prob, s.err }

func (s *stubClassifier) Explain([]float64) (*domain.Attribution, error) { return s.attr, s.err }

func sigmoid(m float64) float64 { return 1 / (1 + math.Exp(-m)) }

func build(t *testing.T, raw domain.RawAssessmentInput) (*features.Engineer, *domain.FeatureVector) {
	t.Helper()
	e, err := features.NewEngineer(nil)
	require.NoError(t, err)
	v, err := e.Build(raw)
	require.NoError(t, err)
	return e, v
}

var strained = domain.RawAssessmentInput{
	domain.FieldScreenTime:    9.0,
	domain.FieldEyeStrain:     "Y",
	domain.FieldSleepDuration: 5.0,
}

func TestRiskLevelBoundaries(t *testing.T) {
	tests := []struct {
		p    float64
		want domain.RiskLevel
	}{
		{0, domain.RiskLow},
		{0.2999, domain.RiskLow},
		{0.30, domain.RiskModerate},
		{0.4999, domain.RiskModerate},
		{0.50, domain.RiskHigh},
		{0.6999, domain.RiskHigh},
		{0.70, domain.RiskVeryHigh},
		{1, domain.RiskVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevelFor(tt.p), "p=%v", tt.p)
	}
}

func TestNewPredictorRejectsUnknownSchema(t *testing.T) {
	e, _ := build(t, nil)
	stub := &stubClassifier{names: []string{"Age", "Pupil size"}}

	_, err := NewPredictor(stub, e.Features())
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewExplainer(stub, e.Features(), 0)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewPredictor(nil, e.Features())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPredictFixture(t *testing.T) {
	e, v := build(t, nil)
	p, err := NewPredictor(modeltest.New(t), e.Features())
	require.NoError(t, err)

	result, err := p.Predict(v)
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(modeltest.DefaultMargin), result.Probability, 1e-12)
	assert.Equal(t, domain.RiskLow, result.RiskLevel)

	_, v = build(t, strained)
	result, err = p.Predict(v)
	require.NoError(t, err)
	assert.InDelta(t, sigmoid(modeltest.StrainedMargin), result.Probability, 1e-12)
	assert.Equal(t, domain.RiskVeryHigh, result.RiskLevel)
}

func TestPredictInferenceErrors(t *testing.T) {
	e, v := build(t, nil)
	names := []string{domain.FieldAge}

	for name, stub := range map[string]*stubClassifier{
		"above one":        {names: names, prob: 1.2},
		"negative":         {names: names, prob: -0.1},
		"nan":              {names: names, prob: math.NaN()},
		"classifier error": {names: names, err: errors.New("boom")},
	} {
		t.Run(name, func(t *testing.T) {
			p, err := NewPredictor(stub, e.Features())
			require.NoError(t, err)
			_, err = p.Predict(v)
			assert.ErrorIs(t, err, domain.ErrInference)
		})
	}
}

func TestPredictIncompleteVector(t *testing.T) {
	e, _ := build(t, nil)
	p, err := NewPredictor(modeltest.New(t), e.Features())
	require.NoError(t, err)

	// Normalized but not engineered: Eye_Load is absent.
	v, err := features.Normalize(nil)
	require.NoError(t, err)

	_, err = p.Predict(v)
	var ierr *domain.InferenceError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "input", ierr.Op)
}

func TestExplainFixture(t *testing.T) {
	e, v := build(t, strained)
	classifier := modeltest.New(t)
	p, err := NewPredictor(classifier, e.Features())
	require.NoError(t, err)
	x, err := NewExplainer(classifier, e.Features(), 0)
	require.NoError(t, err)

	prediction, err := p.Predict(v)
	require.NoError(t, err)
	explanation, err := x.Explain(v, prediction)
	require.NoError(t, err)

	assert.InDelta(t, sigmoid(modeltest.BaselineMargin), explanation.Baseline, 1e-12)
	require.Len(t, explanation.Factors, 3, "features without splits are dropped")

	want := []struct {
		feature, label, impact string
		value                  float64
	}{
		{domain.FieldScreenTime, "Daily screen time", domain.ImpactHigh, 9},
		{domain.FieldEyeStrain, "Eye strain", domain.ImpactMedium, 1},
		{domain.FieldSleepDuration, "Sleep duration", domain.ImpactMedium, 5},
	}
	for i, w := range want {
		f := explanation.Factors[i]
		assert.Equal(t, w.feature, f.Feature)
		assert.Equal(t, w.label, f.Label)
		assert.Equal(t, w.impact, f.Impact)
		assert.Equal(t, w.value, f.Value)
		assert.Equal(t, domain.DirectionIncreases, f.Direction)
		assert.Greater(t, f.Contribution, 0.0)
	}

	sum := explanation.Baseline
	for _, f := range explanation.Factors {
		sum += f.Contribution
	}
	assert.InDelta(t, prediction.Probability, sum, ReconstructionTolerance)
}

func TestExplainDefaults(t *testing.T) {
	e, v := build(t, nil)
	classifier := modeltest.New(t)
	x, err := NewExplainer(classifier, e.Features(), 0)
	require.NoError(t, err)
	p, err := NewPredictor(classifier, e.Features())
	require.NoError(t, err)

	prediction, err := p.Predict(v)
	require.NoError(t, err)
	explanation, err := x.Explain(v, prediction)
	require.NoError(t, err)

	require.Len(t, explanation.Factors, 2)
	assert.Equal(t, domain.FieldScreenTime, explanation.Factors[0].Feature)
	assert.Equal(t, domain.FieldEyeStrain, explanation.Factors[1].Feature)
	for _, f := range explanation.Factors {
		assert.Equal(t, domain.DirectionDecreases, f.Direction)
		assert.Less(t, f.Contribution, 0.0)
	}
}

func TestExplainTopK(t *testing.T) {
	e, v := build(t, strained)
	classifier := modeltest.New(t)
	x, err := NewExplainer(classifier, e.Features(), 2)
	require.NoError(t, err)

	prediction, err := classifier.PredictProbability(mustInput(t, classifier.FeatureNames(), v))
	require.NoError(t, err)
	explanation, err := x.Explain(v, domain.PredictionResult{Probability: prediction})
	require.NoError(t, err)
	assert.Len(t, explanation.Factors, 2)
}

func TestExplainTiesKeepSchemaOrder(t *testing.T) {
	e, v := build(t, nil)
	stub := &stubClassifier{
		names: []string{domain.FieldAge, domain.FieldWeight, domain.FieldHeight, domain.FieldSmoking},
		attr:  &domain.Attribution{Baseline: 0.2, Contributions: []float64{0.05, -0.1, 0.1, 0}},
	}
	x, err := NewExplainer(stub, e.Features(), 0)
	require.NoError(t, err)

	explanation, err := x.Explain(v, domain.PredictionResult{Probability: 0.25})
	require.NoError(t, err)
	require.Len(t, explanation.Factors, 3)
	assert.Equal(t, domain.FieldWeight, explanation.Factors[0].Feature)
	assert.Equal(t, domain.FieldHeight, explanation.Factors[1].Feature)
	assert.Equal(t, domain.FieldAge, explanation.Factors[2].Feature)
	assert.Equal(t, domain.ImpactHigh, explanation.Factors[1].Impact)
	assert.Equal(t, domain.ImpactMedium, explanation.Factors[2].Impact)
}

func TestExplainInferenceErrors(t *testing.T) {
	e, v := build(t, nil)
	names := []string{domain.FieldAge, domain.FieldWeight}

	tests := map[string]*stubClassifier{
		"does not reconstruct": {names: names, attr: &domain.Attribution{Baseline: 0.5, Contributions: []float64{0.1, 0}}},
		"wrong width":          {names: names, attr: &domain.Attribution{Baseline: 0.4, Contributions: []float64{0}}},
		"nil attribution":      {names: names},
		"classifier error":     {names: names, err: errors.New("boom")},
	}
	for name, stub := range tests {
		t.Run(name, func(t *testing.T) {
			x, err := NewExplainer(stub, e.Features(), 0)
			require.NoError(t, err)
			_, err = x.Explain(v, domain.PredictionResult{Probability: 0.4})
			assert.ErrorIs(t, err, domain.ErrInference)
		})
	}
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Eye strain load", Label(domain.FeatureEyeLoad))
	assert.Equal(t, "Systolic blood pressure", Label(domain.FeatureBPSystolic))
	assert.Equal(t, "Sleep_Debt", Label("Sleep_Debt"))

	for _, name := range domain.VectorFields {
		_, ok := Labels[name]
		assert.True(t, ok, "no label for %s", name)
	}
}

func mustInput(t *testing.T, schema []string, v *domain.FeatureVector) []float64 {
	t.Helper()
	x, err := buildInput(schema, v)
	require.NoError(t, err)
	return x
}
