package domain

// Declared questionnaire fields, keyed exactly as they arrive on the wire.
const (
	FieldGender              = "Gender"
	FieldAge                 = "Age"
	FieldHeight              = "Height"
	FieldWeight              = "Weight"
	FieldBloodPressure       = "Blood pressure"
	FieldHeartRate           = "Heart rate"
	FieldSleepDuration       = "Sleep duration"
	FieldSleepQuality        = "Sleep quality"
	FieldSleepDisorder       = "Sleep disorder"
	FieldWakeUpDuringNight   = "Wake up during night"
	FieldFeelSleepyDuringDay = "Feel sleepy during day"
	FieldStressLevel         = "Stress level"
	FieldDailySteps          = "Daily steps"
	FieldPhysicalActivity    = "Physical activity"
	FieldCaffeine            = "Caffeine consumption"
	FieldAlcohol             = "Alcohol consumption"
	FieldSmoking             = "Smoking"
	FieldMedicalIssue        = "Medical issue"
	FieldOngoingMedication   = "Ongoing medication"
	FieldSmartDeviceBed      = "Smart device before bed"
	FieldScreenTime          = "Average screen time"
	FieldBlueLightFilter     = "Blue-light filter"
	FieldEyeStrain           = "Discomfort Eye-strain"
	FieldEyeRedness          = "Redness in eye"
	FieldEyeItchiness        = "Itchiness/Irritation in eye"
)

// Discrete blood pressure keys accepted instead of the combined "Blood pressure" string.
const (
	FieldSystolic  = "Systolic"
	FieldDiastolic = "Diastolic"
)

// Engineered fields.
const (
	FeatureBPSystolic       = "BP_Systolic"
	FeatureBPDiastolic      = "BP_Diastolic"
	FeatureBMI              = "BMI"
	FeatureEyeLoad          = "Eye_Load"
	FeatureScreenSleepRatio = "Screen_to_Sleep_Ratio"
	FeatureStressMetabolic  = "Stress_Metabolic"
)

// DeclaredFields lists the 25 questionnaire fields in schema order.
var DeclaredFields = []string{
	FieldGender, FieldAge, FieldHeight, FieldWeight, FieldBloodPressure,
	FieldHeartRate, FieldSleepDuration, FieldSleepQuality, FieldSleepDisorder,
	FieldWakeUpDuringNight, FieldFeelSleepyDuringDay, FieldStressLevel,
	FieldDailySteps, FieldPhysicalActivity, FieldCaffeine, FieldAlcohol,
	FieldSmoking, FieldMedicalIssue, FieldOngoingMedication, FieldSmartDeviceBed,
	FieldScreenTime, FieldBlueLightFilter, FieldEyeStrain, FieldEyeRedness,
	FieldEyeItchiness,
}

// VectorFields is the fixed 28-field layout of a FeatureVector: every declared
// field except the combined blood pressure string, followed by its two
// components and the engineered BMI and Eye_Load.
var VectorFields = []string{
	FieldGender, FieldAge, FieldHeight, FieldWeight,
	FieldHeartRate, FieldSleepDuration, FieldSleepQuality, FieldSleepDisorder,
	FieldWakeUpDuringNight, FieldFeelSleepyDuringDay, FieldStressLevel,
	FieldDailySteps, FieldPhysicalActivity, FieldCaffeine, FieldAlcohol,
	FieldSmoking, FieldMedicalIssue, FieldOngoingMedication, FieldSmartDeviceBed,
	FieldScreenTime, FieldBlueLightFilter, FieldEyeStrain, FieldEyeRedness,
	FieldEyeItchiness,
	FeatureBPSystolic, FeatureBPDiastolic, FeatureBMI, FeatureEyeLoad,
}

// RawAssessmentInput is an arbitrary, possibly partial questionnaire.
// Values are whatever the transport decoded: string, float64, bool or nil.
type RawAssessmentInput map[string]any

// FeatureVector is a normalized questionnaire with every vector field resolved.
// It is built once per request and never mutated after the engineer returns it.
type FeatureVector struct {
	values     map[string]float64
	categories map[string]string
	supplied   map[string]bool
	auxiliary  map[string]float64
}

// NewFeatureVector returns an empty vector for the normalizer to fill.
func NewFeatureVector() *FeatureVector {
	return &FeatureVector{
		values:     make(map[string]float64, len(VectorFields)),
		categories: make(map[string]string),
		supplied:   make(map[string]bool),
		auxiliary:  make(map[string]float64),
	}
}

// SetNumber stores a numeric field.
func (v *FeatureVector) SetNumber(name string, value float64) {
	v.values[name] = value
}

// SetCategory stores a categorical field with its label and numeric encoding.
func (v *FeatureVector) SetCategory(name, label string, encoded float64) {
	v.categories[name] = label
	v.values[name] = encoded
}

// SetAuxiliary stores an engineered feature outside the fixed layout.
func (v *FeatureVector) SetAuxiliary(name string, value float64) {
	v.auxiliary[name] = value
}

// MarkSupplied records that a raw field came from the caller rather than a default.
func (v *FeatureVector) MarkSupplied(field string) {
	v.supplied[field] = true
}

// Value returns a vector or auxiliary feature.
func (v *FeatureVector) Value(name string) (float64, bool) {
	if val, ok := v.values[name]; ok {
		return val, true
	}
	val, ok := v.auxiliary[name]
	return val, ok
}

// Number returns a vector field, or zero when it is unset.
func (v *FeatureVector) Number(name string) float64 {
	return v.values[name]
}

// Category returns the label of a categorical field.
func (v *FeatureVector) Category(name string) string {
	return v.categories[name]
}

// IsYes reports whether a Y/N field resolved to Y.
func (v *FeatureVector) IsYes(name string) bool {
	return v.categories[name] == "Y"
}

// Supplied reports whether the raw field was explicitly provided by the caller.
func (v *FeatureVector) Supplied(field string) bool {
	return v.supplied[field]
}

// AnySupplied reports whether at least one of the raw fields was provided.
func (v *FeatureVector) AnySupplied(fields ...string) bool {
	for _, f := range fields {
		if v.supplied[f] {
			return true
		}
	}
	return false
}

// Complete reports whether every vector field has a value, returning the first missing one.
func (v *FeatureVector) Complete() (string, bool) {
	for _, name := range VectorFields {
		if _, ok := v.values[name]; !ok {
			return name, false
		}
	}
	return "", true
}

// Has reports whether the vector can provide the named feature.
func (v *FeatureVector) Has(name string) bool {
	_, ok := v.Value(name)
	return ok
}
