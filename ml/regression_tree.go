package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

type RegressionTree struct {
	nodes []TreeNode
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeArtifact struct {
	Kind     string     `json:"kind"`
	Features []string   `json:"features,omitempty"`
	Nodes    []TreeNode `json:"nodes"`
}

// NewRegressionTree builds a tree from a flat node list rooted at index 0.
func NewRegressionTree(nodes []TreeNode) (*RegressionTree, error) {
	if err := checkNodes(nodes); err != nil {
		return nil, err
	}
	return &RegressionTree{nodes: append([]TreeNode(nil), nodes...)}, nil
}

func (rt *RegressionTree) Kind() string { return KindRegressionTree }

func (rt *RegressionTree) Predict(rows [][]float64) ([]float64, error) {
	if len(rt.nodes) == 0 {
		return nil, errors.New("tree has no nodes")
	}
	out := make([]float64, len(rows))
	for i, row := range rows {
		y, err := rt.predictRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = y
	}
	return out, nil
}

func (rt *RegressionTree) predictRow(features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(rt.nodes); steps++ {
		node := rt.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(rt.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func (rt *RegressionTree) Save(path string) error {
	if len(rt.nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	payload, err := json.MarshalIndent(treeArtifact{
		Kind:     KindRegressionTree,
		Features: FeatureNames(),
		Nodes:    rt.nodes,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func decodeRegressionTree(payload []byte) (*RegressionTree, error) {
	var a treeArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, err
	}
	return NewRegressionTree(a.Nodes)
}

func checkNodes(nodes []TreeNode) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= FeatureCount {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid left child %d", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d: invalid right child %d", i, node.RightChild)
		}
	}
	return nil
}
