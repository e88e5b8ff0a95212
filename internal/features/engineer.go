package features

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/healthcatchers/iris/internal/domain"
)

// fieldVariables maps CEL variable names to the vector fields they read.
var fieldVariables = map[string]string{
	"gender":                  domain.FieldGender,
	"age":                     domain.FieldAge,
	"height":                  domain.FieldHeight,
	"weight":                  domain.FieldWeight,
	"heart_rate":              domain.FieldHeartRate,
	"sleep_duration":          domain.FieldSleepDuration,
	"sleep_quality":           domain.FieldSleepQuality,
	"sleep_disorder":          domain.FieldSleepDisorder,
	"wake_up_during_night":    domain.FieldWakeUpDuringNight,
	"feel_sleepy_during_day":  domain.FieldFeelSleepyDuringDay,
	"stress_level":            domain.FieldStressLevel,
	"daily_steps":             domain.FieldDailySteps,
	"physical_activity":       domain.FieldPhysicalActivity,
	"caffeine":                domain.FieldCaffeine,
	"alcohol":                 domain.FieldAlcohol,
	"smoking":                 domain.FieldSmoking,
	"medical_issue":           domain.FieldMedicalIssue,
	"ongoing_medication":      domain.FieldOngoingMedication,
	"smart_device_before_bed": domain.FieldSmartDeviceBed,
	"screen_time":             domain.FieldScreenTime,
	"blue_light_filter":       domain.FieldBlueLightFilter,
	"eye_strain":              domain.FieldEyeStrain,
	"eye_redness":             domain.FieldEyeRedness,
	"eye_itchiness":           domain.FieldEyeItchiness,
	"bp_systolic":             domain.FeatureBPSystolic,
	"bp_diastolic":            domain.FeatureBPDiastolic,
}

// BuiltinDerivations are always compiled, in evaluation order. BMI and
// Eye_Load belong to the fixed vector, the rest are auxiliary.
var BuiltinDerivations = []domain.DerivationConfig{
	{Name: domain.FeatureBMI, Expression: "weight / ((height / 100.0) * (height / 100.0))"},
	{Name: domain.FeatureEyeLoad, Expression: "(screen_time / sleep_duration) * (blue_light_filter == 1.0 ? 1.5 : 1.0)"},
	{Name: domain.FeatureScreenSleepRatio, Expression: "screen_time / sleep_duration"},
	{Name: domain.FeatureStressMetabolic, Expression: "stress_level * bp_systolic"},
}

// Engineer normalizes raw input and evaluates the derived features.
// It holds only compiled programs and is safe for concurrent use.
type Engineer struct {
	derivations []*compiledDerivation
}

type compiledDerivation struct {
	name     string
	variable string
	vector   bool
	program  cel.Program
}

// NewEngineer compiles the built-in derivations followed by extra. Each
// derivation may read the normalized fields and every derivation before it,
// by its lower-cased name. Compilation problems are configuration errors.
func NewEngineer(extra []domain.DerivationConfig) (*Engineer, error) {
	all := make([]domain.DerivationConfig, 0, len(BuiltinDerivations)+len(extra))
	all = append(all, BuiltinDerivations...)
	all = append(all, extra...)

	opts := make([]cel.EnvOption, 0, len(fieldVariables))
	for name := range fieldVariables {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, domain.NewConfigurationError("features", fmt.Errorf("failed to create CEL environment: %w", err))
	}

	e := &Engineer{}
	seen := make(map[string]bool, len(all))
	for _, d := range all {
		variable := strings.ToLower(d.Name)
		if _, clash := fieldVariables[variable]; clash || seen[variable] {
			return nil, domain.NewConfigurationError("features", fmt.Errorf("derivation %q redefines an existing feature", d.Name))
		}
		seen[variable] = true

		compiled, err := compile(env, d)
		if err != nil {
			return nil, domain.NewConfigurationError("features", err)
		}
		e.derivations = append(e.derivations, compiled)

		// Later derivations can read this one.
		env, err = env.Extend(cel.Variable(variable, cel.DoubleType))
		if err != nil {
			return nil, domain.NewConfigurationError("features", fmt.Errorf("failed to extend CEL environment: %w", err))
		}
	}
	return e, nil
}

func compile(env *cel.Env, d domain.DerivationConfig) (*compiledDerivation, error) {
	ast, issues := env.Compile(d.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile derivation %s: %w", d.Name, issues.Err())
	}
	if ast.OutputType() != cel.DoubleType {
		return nil, fmt.Errorf("derivation %s: expression must return double, got %s", d.Name, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for derivation %s: %w", d.Name, err)
	}

	return &compiledDerivation{
		name:     d.Name,
		variable: strings.ToLower(d.Name),
		vector:   d.Name == domain.FeatureBMI || d.Name == domain.FeatureEyeLoad,
		program:  program,
	}, nil
}

// Build normalizes raw and derives every engineered feature.
func (e *Engineer) Build(raw domain.RawAssessmentInput) (*domain.FeatureVector, error) {
	v, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if err := e.Derive(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Derive evaluates the derivations against a normalized vector.
func (e *Engineer) Derive(v *domain.FeatureVector) error {
	activation := make(map[string]any, len(fieldVariables)+len(e.derivations))
	for name, field := range fieldVariables {
		activation[name] = v.Number(field)
	}

	for _, d := range e.derivations {
		out, _, err := d.program.Eval(activation)
		if err != nil {
			return &domain.ValidationError{Field: d.name, Reason: fmt.Sprintf("derivation failed: %v", err)}
		}
		val, ok := out.(types.Double)
		if !ok {
			return &domain.ValidationError{Field: d.name, Reason: fmt.Sprintf("derivation returned %v", out.Type())}
		}
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &domain.ValidationError{Field: d.name, Reason: "derived value is not finite"}
		}

		if d.vector {
			v.SetNumber(d.name, f)
		} else {
			v.SetAuxiliary(d.name, f)
		}
		activation[d.variable] = f
	}
	return nil
}

// Features lists every feature a built vector can provide: the fixed layout
// followed by the auxiliary derivations.
func (e *Engineer) Features() []string {
	names := make([]string, 0, len(domain.VectorFields)+len(e.derivations))
	names = append(names, domain.VectorFields...)
	for _, d := range e.derivations {
		if !d.vector {
			names = append(names, d.name)
		}
	}
	return names
}
