package features

import (
	"errors"
	"testing"

	"github.com/healthcatchers/iris/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngineer(t *testing.T, extra ...domain.DerivationConfig) *Engineer {
	t.Helper()
	e, err := NewEngineer(extra)
	require.NoError(t, err)
	return e
}

func TestNormalizeDefaults(t *testing.T) {
	v, err := Normalize(domain.RawAssessmentInput{})
	require.NoError(t, err)

	_, complete := v.Complete()
	assert.False(t, complete, "engineered fields are not set by the normalizer")

	assert.Equal(t, 7.0, v.Number(domain.FieldSleepDuration))
	assert.Equal(t, 30.0, v.Number(domain.FieldAge))
	assert.Equal(t, 165.0, v.Number(domain.FieldHeight))
	assert.Equal(t, 8000.0, v.Number(domain.FieldDailySteps))
	assert.Equal(t, 120.0, v.Number(domain.FeatureBPSystolic))
	assert.Equal(t, 80.0, v.Number(domain.FeatureBPDiastolic))
	assert.Equal(t, "M", v.Category(domain.FieldGender))
	assert.Equal(t, 1.0, v.Number(domain.FieldGender))
	assert.Equal(t, "Y", v.Category(domain.FieldCaffeine))
	assert.Equal(t, "N", v.Category(domain.FieldSmoking))
	assert.Equal(t, 0.0, v.Number(domain.FieldSmoking))

	for _, f := range domain.DeclaredFields {
		assert.False(t, v.Supplied(f), "%s should not be marked supplied", f)
	}
}

func TestNormalizeCoercion(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		raw      any
		want     float64
		supplied bool
	}{
		{"json number", domain.FieldAge, 42.0, 42, true},
		{"numeric string", domain.FieldAge, " 42 ", 42, true},
		{"blank string", domain.FieldAge, "", 30, false},
		{"garbage string", domain.FieldAge, "forty", 30, false},
		{"out of range", domain.FieldAge, 200.0, 30, false},
		{"nil", domain.FieldAge, nil, 30, false},
		{"zero height", domain.FieldHeight, 0.0, 165, false},
		{"tiny height", domain.FieldHeight, 0.0001, 165, false},
		{"min height", domain.FieldHeight, 50.0, 50, true},
		{"tiny weight", domain.FieldWeight, 1e-300, 70, false},
		{"zero sleep", domain.FieldSleepDuration, "0", 7, false},
		{"subnormal sleep", domain.FieldSleepDuration, 1e-310, 7, false},
		{"one hour sleep", domain.FieldSleepDuration, 1.0, 1, true},
		{"quality below scale", domain.FieldSleepQuality, 0.0, 3, false},
		{"boolean number", domain.FieldHeartRate, true, 75, false},
		{"yes string", domain.FieldSmoking, "yes", 1, true},
		{"Y string", domain.FieldSmoking, "Y", 1, true},
		{"json bool", domain.FieldSmoking, true, 1, true},
		{"one", domain.FieldSmoking, 1.0, 1, true},
		{"false string", domain.FieldCaffeine, "false", 0, true},
		{"bad flag", domain.FieldCaffeine, "maybe", 1, false},
		{"female", domain.FieldGender, "female", 0, true},
		{"bad gender", domain.FieldGender, "x", 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Normalize(domain.RawAssessmentInput{tt.field: tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Number(tt.field))
			assert.Equal(t, tt.supplied, v.Supplied(tt.field))
		})
	}
}

func TestNormalizeRejectsStructuredValues(t *testing.T) {
	for _, raw := range []any{map[string]any{"v": 1.0}, []any{1.0, 2.0}} {
		_, err := Normalize(domain.RawAssessmentInput{domain.FieldWeight: raw})
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrValidation))

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, domain.FieldWeight, verr.Field)
	}

	_, err := Normalize(domain.RawAssessmentInput{domain.FieldBloodPressure: []any{"140", "95"}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNormalizeBloodPressure(t *testing.T) {
	tests := []struct {
		name     string
		raw      domain.RawAssessmentInput
		sys, dia float64
		supplied bool
	}{
		{"combined", domain.RawAssessmentInput{domain.FieldBloodPressure: "140/95"}, 140, 95, true},
		{"spaces", domain.RawAssessmentInput{domain.FieldBloodPressure: " 118 / 76 "}, 118, 76, true},
		{"discrete", domain.RawAssessmentInput{domain.FieldSystolic: 135.0, domain.FieldDiastolic: "85"}, 135, 85, true},
		{"only systolic", domain.RawAssessmentInput{domain.FieldSystolic: 135.0}, 120, 80, false},
		{"decimal side", domain.RawAssessmentInput{domain.FieldBloodPressure: "140.5/95"}, 120, 80, false},
		{"three parts", domain.RawAssessmentInput{domain.FieldBloodPressure: "140/95/60"}, 120, 80, false},
		{"number", domain.RawAssessmentInput{domain.FieldBloodPressure: 140.0}, 120, 80, false},
		{"out of range", domain.RawAssessmentInput{domain.FieldBloodPressure: "400/95"}, 120, 80, false},
		{"combined wins", domain.RawAssessmentInput{
			domain.FieldBloodPressure: "150/100",
			domain.FieldSystolic:      110.0,
			domain.FieldDiastolic:     70.0,
		}, 150, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.sys, v.Number(domain.FeatureBPSystolic))
			assert.Equal(t, tt.dia, v.Number(domain.FeatureBPDiastolic))
			assert.Equal(t, tt.supplied, v.Supplied(domain.FieldBloodPressure))
		})
	}
}

func TestEngineerBuild(t *testing.T) {
	e := newEngineer(t)

	v, err := e.Build(domain.RawAssessmentInput{
		domain.FieldWeight:          70.0,
		domain.FieldHeight:          175.0,
		domain.FieldScreenTime:      9.0,
		domain.FieldSleepDuration:   6.0,
		domain.FieldBlueLightFilter: "Y",
		domain.FieldBloodPressure:   "140/95",
	})
	require.NoError(t, err)

	missing, complete := v.Complete()
	assert.True(t, complete, "missing %s", missing)

	assert.InDelta(t, 22.857, v.Number(domain.FeatureBMI), 0.001)
	assert.InDelta(t, 9.0/6.0*1.5, v.Number(domain.FeatureEyeLoad), 1e-12)

	ratio, ok := v.Value(domain.FeatureScreenSleepRatio)
	require.True(t, ok)
	assert.InDelta(t, 1.5, ratio, 1e-12)

	stress, ok := v.Value(domain.FeatureStressMetabolic)
	require.True(t, ok)
	assert.Equal(t, 3.0*140.0, stress)
}

func TestEngineerDefaultEyeLoad(t *testing.T) {
	v, err := newEngineer(t).Build(domain.RawAssessmentInput{})
	require.NoError(t, err)
	assert.InDelta(t, 6.0/7.0, v.Number(domain.FeatureEyeLoad), 1e-12)
}

func TestEngineerImplausibleBodyAndSleep(t *testing.T) {
	e := newEngineer(t)

	tests := []struct {
		name    string
		raw     domain.RawAssessmentInput
		eyeLoad float64
	}{
		{"exponent height", domain.RawAssessmentInput{domain.FieldHeight: "1e-200"}, 6.0 / 7.0},
		{"tiny height", domain.RawAssessmentInput{domain.FieldHeight: 0.0001}, 6.0 / 7.0},
		{"subnormal sleep", domain.RawAssessmentInput{domain.FieldSleepDuration: 1e-310, domain.FieldScreenTime: 24.0}, 24.0 / 7.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := e.Build(tt.raw)
			require.NoError(t, err)
			assert.InDelta(t, 70/(1.65*1.65), v.Number(domain.FeatureBMI), 1e-9)
			assert.InDelta(t, tt.eyeLoad, v.Number(domain.FeatureEyeLoad), 1e-12)
			assert.False(t, v.Supplied(domain.FieldHeight))
			assert.False(t, v.Supplied(domain.FieldSleepDuration))
		})
	}
}

func TestEngineerExtraDerivation(t *testing.T) {
	e := newEngineer(t,
		domain.DerivationConfig{Name: "Sleep_Debt", Expression: "8.0 - sleep_duration"},
		domain.DerivationConfig{Name: "Weighted_Load", Expression: "eye_load * sleep_debt"},
	)

	v, err := e.Build(domain.RawAssessmentInput{domain.FieldSleepDuration: 5.0})
	require.NoError(t, err)

	debt, ok := v.Value("Sleep_Debt")
	require.True(t, ok)
	assert.Equal(t, 3.0, debt)

	weighted, ok := v.Value("Weighted_Load")
	require.True(t, ok)
	assert.InDelta(t, 6.0/5.0*3.0, weighted, 1e-12)

	assert.Contains(t, e.Features(), "Sleep_Debt")
	assert.Len(t, e.Features(), len(domain.VectorFields)+4)
}

func TestEngineerConfigurationErrors(t *testing.T) {
	tests := []struct {
		name string
		d    domain.DerivationConfig
	}{
		{"syntax", domain.DerivationConfig{Name: "Bad", Expression: "sleep_duration +"}},
		{"not double", domain.DerivationConfig{Name: "Flag", Expression: "sleep_duration > 7.0"}},
		{"unknown variable", domain.DerivationConfig{Name: "Ghost", Expression: "ghost * 2.0"}},
		{"reads later derivation", domain.DerivationConfig{Name: "Early", Expression: "early * 2.0"}},
		{"redefines field", domain.DerivationConfig{Name: "Age", Expression: "age + 1.0"}},
		{"redefines builtin", domain.DerivationConfig{Name: "bmi", Expression: "1.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEngineer([]domain.DerivationConfig{tt.d})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestEngineerNonFiniteDerivation(t *testing.T) {
	e := newEngineer(t, domain.DerivationConfig{Name: "Age_Ratio", Expression: "age / (age - 30.0)"})

	_, err := e.Build(domain.RawAssessmentInput{})
	require.Error(t, err)

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Age_Ratio", verr.Field)
}
