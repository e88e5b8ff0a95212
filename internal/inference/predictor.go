// Package inference runs the dry eye classifier over a feature vector and
// explains its output.
package inference

import (
	"fmt"
	"math"

	"github.com/healthcatchers/iris/internal/domain"
)

// Risk bucket lower bounds.
const (
	ModerateThreshold = 0.30
	HighThreshold     = 0.50
	VeryHighThreshold = 0.70
)

// RiskLevelFor buckets a probability. Lower bounds are inclusive.
func RiskLevelFor(p float64) domain.RiskLevel {
	switch {
	case p >= VeryHighThreshold:
		return domain.RiskVeryHigh
	case p >= HighThreshold:
		return domain.RiskHigh
	case p >= ModerateThreshold:
		return domain.RiskModerate
	default:
		return domain.RiskLow
	}
}

// Predictor invokes the injected classifier.
type Predictor struct {
	classifier domain.Classifier
	schema     []string
}

// NewPredictor binds a classifier to the features a vector can provide. Any
// schema name outside available is a configuration error.
func NewPredictor(classifier domain.Classifier, available []string) (*Predictor, error) {
	if classifier == nil {
		return nil, domain.NewConfigurationError("predictor", fmt.Errorf("classifier is required"))
	}
	schema, err := checkSchema(classifier, available)
	if err != nil {
		return nil, domain.NewConfigurationError("predictor", err)
	}
	return &Predictor{classifier: classifier, schema: schema}, nil
}

// Schema returns the classifier input order.
func (p *Predictor) Schema() []string {
	return p.schema
}

// Predict returns the probability and risk level for v.
func (p *Predictor) Predict(v *domain.FeatureVector) (domain.PredictionResult, error) {
	x, err := buildInput(p.schema, v)
	if err != nil {
		return domain.PredictionResult{}, err
	}

	prob, err := p.classifier.PredictProbability(x)
	if err != nil {
		return domain.PredictionResult{}, domain.NewInferenceError("predict", err)
	}
	if math.IsNaN(prob) || prob < 0 || prob > 1 {
		return domain.PredictionResult{}, domain.NewInferenceError("predict", fmt.Errorf("probability %v outside [0,1]", prob))
	}

	return domain.PredictionResult{
		Probability: prob,
		RiskLevel:   RiskLevelFor(prob),
	}, nil
}

func checkSchema(classifier domain.Classifier, available []string) ([]string, error) {
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[name] = true
	}

	schema := classifier.FeatureNames()
	if len(schema) == 0 {
		return nil, fmt.Errorf("classifier declares no features")
	}
	for _, name := range schema {
		if !have[name] {
			return nil, fmt.Errorf("classifier feature %q is not produced by feature engineering", name)
		}
	}
	return schema, nil
}

// buildInput lays v out in schema order.
func buildInput(schema []string, v *domain.FeatureVector) ([]float64, error) {
	x := make([]float64, len(schema))
	for i, name := range schema {
		val, ok := v.Value(name)
		if !ok {
			return nil, domain.NewInferenceError("input", fmt.Errorf("feature %q is missing", name))
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, domain.NewInferenceError("input", fmt.Errorf("feature %q is not finite", name))
		}
		x[i] = val
	}
	return x, nil
}
