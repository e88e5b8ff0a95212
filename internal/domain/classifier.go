package domain

// Classifier is the trained dry eye model. Implementations are loaded once at
// startup and must be safe for concurrent reads; nothing mutates them afterwards.
type Classifier interface {
	// FeatureNames is the classifier's input schema, in input order.
	FeatureNames() []string

	// PredictProbability returns P(dry eye) for x, laid out as FeatureNames.
	PredictProbability(x []float64) (float64, error)

	// Explain returns the baseline and per-feature signed contributions for x,
	// in probability space, aligned with FeatureNames.
	Explain(x []float64) (*Attribution, error)
}

// Attribution is the raw additive decomposition produced by a classifier.
type Attribution struct {
	Baseline      float64
	Contributions []float64
}

// ArtifactInfo describes a loaded classifier artifact.
type ArtifactInfo struct {
	Name         string `json:"name"`
	Version      string `json:"version"`
	Objective    string `json:"objective"`
	Trees        int    `json:"trees"`
	FeatureCount int    `json:"featureCount"`
	Checksum     string `json:"checksum,omitempty"`
	Source       string `json:"source,omitempty"`
}
