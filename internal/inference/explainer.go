package inference

import (
	"fmt"
	"math"
	"sort"

	"github.com/healthcatchers/iris/internal/domain"
)

// DefaultTopK is the number of ranked risk factors returned.
const DefaultTopK = 5

// Impact bucket lower bounds, relative to the largest ranked contribution.
const (
	highImpactRatio   = 0.66
	mediumImpactRatio = 0.33
)

// ReconstructionTolerance bounds |baseline + Σ contributions - probability|.
const ReconstructionTolerance = 1e-6

// Labels maps feature keys to the names shown to users.
var Labels = map[string]string{
	domain.FieldGender:              "Gender",
	domain.FieldAge:                 "Age",
	domain.FieldHeight:              "Height",
	domain.FieldWeight:              "Weight",
	domain.FieldHeartRate:           "Resting heart rate",
	domain.FieldSleepDuration:       "Sleep duration",
	domain.FieldSleepQuality:        "Sleep quality",
	domain.FieldSleepDisorder:       "Sleep disorder",
	domain.FieldWakeUpDuringNight:   "Waking during the night",
	domain.FieldFeelSleepyDuringDay: "Daytime sleepiness",
	domain.FieldStressLevel:         "Stress level",
	domain.FieldDailySteps:          "Daily steps",
	domain.FieldPhysicalActivity:    "Physical activity",
	domain.FieldCaffeine:            "Caffeine consumption",
	domain.FieldAlcohol:             "Alcohol consumption",
	domain.FieldSmoking:             "Smoking",
	domain.FieldMedicalIssue:        "Existing medical issue",
	domain.FieldOngoingMedication:   "Ongoing medication",
	domain.FieldSmartDeviceBed:      "Screen use before bed",
	domain.FieldScreenTime:          "Daily screen time",
	domain.FieldBlueLightFilter:     "Blue-light filter use",
	domain.FieldEyeStrain:           "Eye strain",
	domain.FieldEyeRedness:          "Eye redness",
	domain.FieldEyeItchiness:        "Eye itchiness or irritation",
	domain.FeatureBPSystolic:        "Systolic blood pressure",
	domain.FeatureBPDiastolic:       "Diastolic blood pressure",
	domain.FeatureBMI:               "Body mass index",
	domain.FeatureEyeLoad:           "Eye strain load",
	domain.FeatureScreenSleepRatio:  "Screen time to sleep ratio",
	domain.FeatureStressMetabolic:   "Stress and blood pressure load",
}

// Label returns the user-facing name of a feature key.
func Label(feature string) string {
	if l, ok := Labels[feature]; ok {
		return l
	}
	return feature
}

// Explainer ranks classifier attributions into risk factors.
type Explainer struct {
	classifier domain.Classifier
	schema     []string
	topK       int
}

// NewExplainer binds a classifier as NewPredictor does. A non-positive topK
// selects DefaultTopK.
func NewExplainer(classifier domain.Classifier, available []string, topK int) (*Explainer, error) {
	if classifier == nil {
		return nil, domain.NewConfigurationError("explainer", fmt.Errorf("classifier is required"))
	}
	schema, err := checkSchema(classifier, available)
	if err != nil {
		return nil, domain.NewConfigurationError("explainer", err)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Explainer{classifier: classifier, schema: schema, topK: topK}, nil
}

type ranked struct {
	index int
	value float64
}

// Explain attributes prediction to the features of v and returns the top
// factors by absolute contribution. Ties keep schema order.
func (e *Explainer) Explain(v *domain.FeatureVector, prediction domain.PredictionResult) (domain.Explanation, error) {
	x, err := buildInput(e.schema, v)
	if err != nil {
		return domain.Explanation{}, err
	}

	attr, err := e.classifier.Explain(x)
	if err != nil {
		return domain.Explanation{}, domain.NewInferenceError("explain", err)
	}
	if attr == nil || len(attr.Contributions) != len(e.schema) {
		return domain.Explanation{}, domain.NewInferenceError("explain", fmt.Errorf("attribution does not match the %d-feature schema", len(e.schema)))
	}

	sum := attr.Baseline
	for _, c := range attr.Contributions {
		sum += c
	}
	if math.IsNaN(sum) || math.Abs(sum-prediction.Probability) > ReconstructionTolerance {
		return domain.Explanation{}, domain.NewInferenceError("explain",
			fmt.Errorf("attribution sums to %v, prediction is %v", sum, prediction.Probability))
	}

	candidates := make([]ranked, 0, len(attr.Contributions))
	for i, c := range attr.Contributions {
		if c != 0 {
			candidates = append(candidates, ranked{index: i, value: c})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return math.Abs(candidates[i].value) > math.Abs(candidates[j].value)
	})
	if len(candidates) > e.topK {
		candidates = candidates[:e.topK]
	}

	factors := make([]domain.RiskFactor, 0, len(candidates))
	for _, c := range candidates {
		name := e.schema[c.index]
		factors = append(factors, domain.RiskFactor{
			Feature:      name,
			Label:        Label(name),
			Value:        x[c.index],
			Contribution: c.value,
			Impact:       impact(c.value, candidates[0].value),
			Direction:    direction(c.value),
		})
	}

	return domain.Explanation{Baseline: attr.Baseline, Factors: factors}, nil
}

func impact(c, largest float64) string {
	ratio := math.Abs(c) / math.Abs(largest)
	switch {
	case ratio >= highImpactRatio:
		return domain.ImpactHigh
	case ratio >= mediumImpactRatio:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

func direction(c float64) string {
	if c > 0 {
		return domain.DirectionIncreases
	}
	return domain.DirectionDecreases
}
