// Package modeltest provides a small hand-built ensemble with known outputs.
//
// The ensemble has two trees over a base margin of -0.4:
//
//	tree 0: Average screen time < 8 ? -0.3 (cover 60) : 0.9 (cover 40)
//	tree 1: Discomfort Eye-strain < 0.5 ? -0.2 (cover 70)
//	        : Sleep duration < 6 ? 0.8 (cover 10) : 0.3 (cover 20)
//
// Expected values are 0.18 and 0, so the baseline margin is -0.22. With every
// field defaulted the margin is -0.9 (Low); with 9h of screen time, eye strain
// and 5h of sleep it is 1.3 (VeryHigh).
package modeltest

import (
	"testing"

	"github.com/healthcatchers/iris/internal/model"
)

// Checked-in outputs of the fixture.
const (
	BaselineMargin = -0.22
	DefaultMargin  = -0.9
	StrainedMargin = 1.3
)

// Features is the fixture schema. Only three features carry splits.
var Features = []string{
	"Gender",
	"Age",
	"Sleep duration",
	"Average screen time",
	"Blue-light filter",
	"Discomfort Eye-strain",
	"BP_Systolic",
	"Eye_Load",
}

// Artifact is the fixture as it would be stored on disk.
const Artifact = `{
  "name": "dry-eye-fixture",
  "version": "1",
  "objective": "binary:logistic",
  "base_margin": -0.4,
  "feature_names": ["Gender", "Age", "Sleep duration", "Average screen time",
    "Blue-light filter", "Discomfort Eye-strain", "BP_Systolic", "Eye_Load"],
  "trees": [
    {"nodeid": 0, "split": "Average screen time", "split_condition": 8,
     "yes": 1, "no": 2, "missing": 1, "cover": 100, "children": [
       {"nodeid": 1, "leaf": -0.3, "cover": 60},
       {"nodeid": 2, "leaf": 0.9, "cover": 40}
     ]},
    {"nodeid": 0, "split": "Discomfort Eye-strain", "split_condition": 0.5,
     "yes": 1, "no": 2, "missing": 1, "cover": 100, "children": [
       {"nodeid": 1, "leaf": -0.2, "cover": 70},
       {"nodeid": 2, "split": "Sleep duration", "split_condition": 6,
        "yes": 3, "no": 4, "missing": 4, "cover": 30, "children": [
          {"nodeid": 3, "leaf": 0.8, "cover": 10},
          {"nodeid": 4, "leaf": 0.3, "cover": 20}
        ]}
     ]}
  ]
}`

// New parses the fixture or fails the test.
func New(tb testing.TB) *model.Ensemble {
	tb.Helper()
	e, err := model.Parse([]byte(Artifact))
	if err != nil {
		tb.Fatalf("parse fixture: %v", err)
	}
	return e
}
