// Package model loads and evaluates gradient boosted tree ensembles exported
// as JSON dumps (binary:logistic).
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/healthcatchers/iris/internal/domain"
)

// ObjectiveBinaryLogistic is the only supported objective.
const ObjectiveBinaryLogistic = "binary:logistic"

// Artifact is the on-disk ensemble format. Trees use the nested JSON dump
// layout with statistics, so every node carries its cover.
type Artifact struct {
	Name         string     `json:"name"`
	Version      string     `json:"version"`
	Objective    string     `json:"objective"`
	BaseMargin   float64    `json:"base_margin"`
	FeatureNames []string   `json:"feature_names"`
	Trees        []DumpNode `json:"trees"`
}

// DumpNode is a node of a nested tree dump. Split nodes send x < SplitCondition
// to Yes, everything else to No, and missing values to Missing.
type DumpNode struct {
	NodeID         int        `json:"nodeid"`
	Split          string     `json:"split,omitempty"`
	SplitCondition float64    `json:"split_condition,omitempty"`
	Yes            int        `json:"yes,omitempty"`
	No             int        `json:"no,omitempty"`
	Missing        int        `json:"missing,omitempty"`
	Leaf           *float64   `json:"leaf,omitempty"`
	Cover          float64    `json:"cover"`
	Children       []DumpNode `json:"children,omitempty"`
}

// Ensemble is a loaded, validated classifier. It is immutable after Parse and
// safe for concurrent use.
type Ensemble struct {
	info       domain.ArtifactInfo
	features   []string
	baseMargin float64
	bias       float64 // base margin plus every tree's expected value
	trees      []tree
}

type tree struct {
	nodes []node // nodes[0] is the root
}

type node struct {
	feature   int // -1 for leaves
	threshold float64
	yes, no   int
	missing   int
	value     float64 // leaf value
	cover     float64
	expected  float64 // cover-weighted mean leaf value below this node
}

func (n *node) isLeaf() bool { return n.feature < 0 }

// LoadFile reads and parses an artifact file.
func LoadFile(path string) (*Ensemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewConfigurationError("model", fmt.Errorf("read artifact: %w", err))
	}
	e, err := Parse(data)
	if err != nil {
		return nil, err
	}
	e.info.Source = path
	return e, nil
}

// Parse decodes and validates an artifact. Every failure is a configuration error.
func Parse(data []byte) (*Ensemble, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, domain.NewConfigurationError("model", fmt.Errorf("decode artifact: %w", err))
	}
	e, err := build(&a)
	if err != nil {
		return nil, domain.NewConfigurationError("model", err)
	}
	sum := sha256.Sum256(data)
	e.info.Checksum = hex.EncodeToString(sum[:])
	return e, nil
}

func build(a *Artifact) (*Ensemble, error) {
	if a.Objective != ObjectiveBinaryLogistic {
		return nil, fmt.Errorf("unsupported objective %q", a.Objective)
	}
	if len(a.FeatureNames) == 0 {
		return nil, errors.New("artifact declares no features")
	}
	if len(a.Trees) == 0 {
		return nil, errors.New("artifact has no trees")
	}
	if !finite(a.BaseMargin) {
		return nil, errors.New("base_margin is not finite")
	}

	index := make(map[string]int, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		if name == "" {
			return nil, fmt.Errorf("feature %d has no name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate feature %q", name)
		}
		index[name] = i
	}

	e := &Ensemble{
		features:   append([]string(nil), a.FeatureNames...),
		baseMargin: a.BaseMargin,
		bias:       a.BaseMargin,
		trees:      make([]tree, 0, len(a.Trees)),
	}
	for i := range a.Trees {
		t, err := flatten(&a.Trees[i], index)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		e.bias += t.nodes[0].expected
		e.trees = append(e.trees, t)
	}

	e.info = domain.ArtifactInfo{
		Name:         a.Name,
		Version:      a.Version,
		Objective:    a.Objective,
		Trees:        len(e.trees),
		FeatureCount: len(e.features),
	}
	return e, nil
}

// flatten converts a nested dump into a slice of nodes and computes the
// expected value of every node bottom-up.
func flatten(root *DumpNode, index map[string]int) (tree, error) {
	var t tree
	ids := make(map[int]bool)

	var walk func(d *DumpNode) (int, error)
	walk = func(d *DumpNode) (int, error) {
		if ids[d.NodeID] {
			return 0, fmt.Errorf("duplicate node id %d", d.NodeID)
		}
		ids[d.NodeID] = true
		if d.Cover < 0 || !finite(d.Cover) {
			return 0, fmt.Errorf("node %d: invalid cover %v", d.NodeID, d.Cover)
		}

		pos := len(t.nodes)
		t.nodes = append(t.nodes, node{feature: -1, cover: d.Cover})

		if d.Leaf != nil {
			if d.Split != "" || len(d.Children) != 0 {
				return 0, fmt.Errorf("node %d: leaf with split", d.NodeID)
			}
			if !finite(*d.Leaf) {
				return 0, fmt.Errorf("node %d: leaf value is not finite", d.NodeID)
			}
			t.nodes[pos].value = *d.Leaf
			t.nodes[pos].expected = *d.Leaf
			return pos, nil
		}

		feature, ok := index[d.Split]
		if !ok {
			return 0, fmt.Errorf("node %d: split on unknown feature %q", d.NodeID, d.Split)
		}
		if !finite(d.SplitCondition) {
			return 0, fmt.Errorf("node %d: split condition is not finite", d.NodeID)
		}
		if len(d.Children) != 2 {
			return 0, fmt.Errorf("node %d: split needs two children, has %d", d.NodeID, len(d.Children))
		}
		if d.Missing != d.Yes && d.Missing != d.No {
			return 0, fmt.Errorf("node %d: missing branch %d is not a child", d.NodeID, d.Missing)
		}

		positions := make(map[int]int, 2)
		for i := range d.Children {
			c := &d.Children[i]
			if c.NodeID <= d.NodeID {
				return 0, fmt.Errorf("node %d: child %d does not follow its parent", d.NodeID, c.NodeID)
			}
			p, err := walk(c)
			if err != nil {
				return 0, err
			}
			positions[c.NodeID] = p
		}
		yes, okYes := positions[d.Yes]
		no, okNo := positions[d.No]
		if !okYes || !okNo || d.Yes == d.No {
			return 0, fmt.Errorf("node %d: yes/no do not name its children", d.NodeID)
		}

		n := &t.nodes[pos]
		n.feature = feature
		n.threshold = d.SplitCondition
		n.yes, n.no = yes, no
		n.missing = positions[d.Missing]

		coverYes, coverNo := t.nodes[yes].cover, t.nodes[no].cover
		if coverYes+coverNo <= 0 {
			return 0, fmt.Errorf("node %d: children have no cover", d.NodeID)
		}
		n.expected = (coverYes*t.nodes[yes].expected + coverNo*t.nodes[no].expected) / (coverYes + coverNo)
		return pos, nil
	}

	if _, err := walk(root); err != nil {
		return tree{}, err
	}
	return t, nil
}

// Info describes the loaded artifact.
func (e *Ensemble) Info() domain.ArtifactInfo {
	return e.info
}

// WithSource returns the ensemble tagged with where it was loaded from.
func (e *Ensemble) WithSource(source string) *Ensemble {
	e.info.Source = source
	return e
}

// FeatureNames returns the input schema in input order.
func (e *Ensemble) FeatureNames() []string {
	return append([]string(nil), e.features...)
}

// Margin returns the raw log-odds for x.
func (e *Ensemble) Margin(x []float64) (float64, error) {
	if len(x) != len(e.features) {
		return 0, fmt.Errorf("expected %d features, got %d", len(e.features), len(x))
	}
	margin := e.baseMargin
	for i := range e.trees {
		t := &e.trees[i]
		n := &t.nodes[0]
		for !n.isLeaf() {
			n = &t.nodes[n.next(x[n.feature])]
		}
		margin += n.value
	}
	return margin, nil
}

// PredictProbability returns the logistic transform of the margin.
func (e *Ensemble) PredictProbability(x []float64) (float64, error) {
	margin, err := e.Margin(x)
	if err != nil {
		return 0, err
	}
	return sigmoid(margin), nil
}

// Explain attributes the prediction to features along each decision path:
// every split credits its feature with the change in expected value between
// the node and the child taken. The margin-space attribution is rescaled so
// that Baseline plus the contributions equals the predicted probability.
func (e *Ensemble) Explain(x []float64) (*domain.Attribution, error) {
	if len(x) != len(e.features) {
		return nil, fmt.Errorf("expected %d features, got %d", len(e.features), len(x))
	}

	contrib := make([]float64, len(e.features))
	margin := e.bias
	for i := range e.trees {
		t := &e.trees[i]
		n := &t.nodes[0]
		for !n.isLeaf() {
			child := &t.nodes[n.next(x[n.feature])]
			delta := child.expected - n.expected
			contrib[n.feature] += delta
			margin += delta
			n = child
		}
	}

	p0 := sigmoid(e.bias)
	p := sigmoid(margin)

	scale := p * (1 - p)
	if d := margin - e.bias; math.Abs(d) > 1e-12 {
		scale = (p - p0) / d
	}
	for i := range contrib {
		contrib[i] *= scale
	}

	return &domain.Attribution{Baseline: p0, Contributions: contrib}, nil
}

func (n *node) next(v float64) int {
	if math.IsNaN(v) {
		return n.missing
	}
	if v < n.threshold {
		return n.yes
	}
	return n.no
}

func sigmoid(m float64) float64 {
	return 1 / (1 + math.Exp(-m))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var _ domain.Classifier = (*Ensemble)(nil)
