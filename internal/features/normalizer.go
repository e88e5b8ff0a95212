// Package features turns a raw questionnaire into a complete FeatureVector:
// defaults for every declared field, then CEL-derived engineered features.
package features

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/healthcatchers/iris/internal/domain"
)

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindYesNo
	kindGender
)

// fieldSpec describes how one declared scalar field is coerced and defaulted.
type fieldSpec struct {
	name  string
	kind  fieldKind
	def   float64
	label string // default label for categorical fields

	// Valid numeric range. openMin excludes min itself.
	min, max float64
	openMin  bool
}

func number(name string, def, min, max float64, openMin bool) fieldSpec {
	return fieldSpec{name: name, kind: kindNumber, def: def, min: min, max: max, openMin: openMin}
}

func yesNo(name, label string) fieldSpec {
	def := 0.0
	if label == "Y" {
		def = 1
	}
	return fieldSpec{name: name, kind: kindYesNo, def: def, label: label}
}

// scalarFields is every declared field except blood pressure.
var scalarFields = []fieldSpec{
	{name: domain.FieldGender, kind: kindGender, def: 1, label: "M"},
	number(domain.FieldAge, 30, 0, 130, false),
	number(domain.FieldHeight, 165, 50, 250, false),
	number(domain.FieldWeight, 70, 10, 500, false),
	number(domain.FieldHeartRate, 75, 0, 300, true),
	number(domain.FieldSleepDuration, 7, 1, 24, false),
	number(domain.FieldSleepQuality, 3, 1, 5, false),
	yesNo(domain.FieldSleepDisorder, "N"),
	yesNo(domain.FieldWakeUpDuringNight, "N"),
	yesNo(domain.FieldFeelSleepyDuringDay, "N"),
	number(domain.FieldStressLevel, 3, 1, 5, false),
	number(domain.FieldDailySteps, 8000, 0, 100000, false),
	number(domain.FieldPhysicalActivity, 30, 0, 1440, false),
	yesNo(domain.FieldCaffeine, "Y"),
	yesNo(domain.FieldAlcohol, "N"),
	yesNo(domain.FieldSmoking, "N"),
	yesNo(domain.FieldMedicalIssue, "N"),
	yesNo(domain.FieldOngoingMedication, "N"),
	yesNo(domain.FieldSmartDeviceBed, "Y"),
	number(domain.FieldScreenTime, 6, 0, 24, false),
	yesNo(domain.FieldBlueLightFilter, "N"),
	yesNo(domain.FieldEyeStrain, "N"),
	yesNo(domain.FieldEyeRedness, "N"),
	yesNo(domain.FieldEyeItchiness, "N"),
}

// Default blood pressure, used when neither form parses.
const (
	DefaultSystolic  = 120
	DefaultDiastolic = 80
)

// Normalize resolves every declared field of raw, substituting defaults for
// absent, blank, out of range or uncoercible values. Only a value that is a
// JSON object or array fails, with a *domain.ValidationError.
func Normalize(raw domain.RawAssessmentInput) (*domain.FeatureVector, error) {
	v := domain.NewFeatureVector()

	for _, spec := range scalarFields {
		val, present := raw[spec.name]
		if present {
			if err := checkScalar(spec.name, val); err != nil {
				return nil, err
			}
		}

		switch spec.kind {
		case kindNumber:
			n, ok := toNumber(val)
			if present && ok && spec.inRange(n) {
				v.SetNumber(spec.name, n)
				v.MarkSupplied(spec.name)
				continue
			}
			v.SetNumber(spec.name, spec.def)

		case kindYesNo, kindGender:
			var label string
			var ok bool
			if spec.kind == kindGender {
				label, ok = toGender(val)
			} else {
				label, ok = toYesNo(val)
			}
			if present && ok {
				v.SetCategory(spec.name, label, encode(label))
				v.MarkSupplied(spec.name)
				continue
			}
			v.SetCategory(spec.name, spec.label, spec.def)
		}
	}

	if err := normalizeBloodPressure(raw, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (s fieldSpec) inRange(n float64) bool {
	if s.openMin && n <= s.min {
		return false
	}
	return n >= s.min && n <= s.max
}

// normalizeBloodPressure accepts the combined "sys/dia" string or the discrete
// Systolic and Diastolic keys, in that order of preference.
func normalizeBloodPressure(raw domain.RawAssessmentInput, v *domain.FeatureVector) error {
	for _, key := range []string{domain.FieldBloodPressure, domain.FieldSystolic, domain.FieldDiastolic} {
		if val, ok := raw[key]; ok {
			if err := checkScalar(key, val); err != nil {
				return err
			}
		}
	}

	if s, ok := raw[domain.FieldBloodPressure].(string); ok {
		if sys, dia, ok := ParseBloodPressure(s); ok {
			setBloodPressure(v, sys, dia)
			v.MarkSupplied(domain.FieldBloodPressure)
			return nil
		}
	}

	sysRaw, sysOK := raw[domain.FieldSystolic]
	diaRaw, diaOK := raw[domain.FieldDiastolic]
	if sysOK && diaOK {
		sys, ok1 := toNumber(sysRaw)
		dia, ok2 := toNumber(diaRaw)
		if ok1 && ok2 && validBloodPressure(sys, dia) && sys == math.Trunc(sys) && dia == math.Trunc(dia) {
			setBloodPressure(v, sys, dia)
			v.MarkSupplied(domain.FieldBloodPressure)
			v.MarkSupplied(domain.FieldSystolic)
			v.MarkSupplied(domain.FieldDiastolic)
			return nil
		}
	}

	setBloodPressure(v, DefaultSystolic, DefaultDiastolic)
	return nil
}

func setBloodPressure(v *domain.FeatureVector, sys, dia float64) {
	v.SetNumber(domain.FeatureBPSystolic, sys)
	v.SetNumber(domain.FeatureBPDiastolic, dia)
}

// ParseBloodPressure splits "sys/dia" into two integer readings.
func ParseBloodPressure(s string) (float64, float64, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	dia, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	if !validBloodPressure(float64(sys), float64(dia)) {
		return 0, 0, false
	}
	return float64(sys), float64(dia), true
}

func validBloodPressure(sys, dia float64) bool {
	return sys > 0 && sys <= 300 && dia > 0 && dia <= 200
}

// checkScalar rejects values no default path can absorb.
func checkScalar(field string, val any) error {
	switch val.(type) {
	case map[string]any, []any:
		return &domain.ValidationError{Field: field, Reason: "expected a scalar value"}
	}
	return nil
}

func toNumber(val any) (float64, bool) {
	var n float64
	switch x := val.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toYesNo(val any) (string, bool) {
	switch x := val.(type) {
	case bool:
		if x {
			return "Y", true
		}
		return "N", true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "y", "yes", "true", "1":
			return "Y", true
		case "n", "no", "false", "0":
			return "N", true
		}
		return "", false
	}
	if n, ok := toNumber(val); ok {
		switch n {
		case 1:
			return "Y", true
		case 0:
			return "N", true
		}
	}
	return "", false
}

func toGender(val any) (string, bool) {
	s, ok := val.(string)
	if !ok {
		return "", false
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male":
		return "M", true
	case "f", "female":
		return "F", true
	}
	return "", false
}

// encode maps a categorical label to its numeric value: N=0 Y=1, F=0 M=1.
func encode(label string) float64 {
	if label == "Y" || label == "M" {
		return 1
	}
	return 0
}
