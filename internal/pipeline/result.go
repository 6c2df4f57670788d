package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tally/internal/records"
)

// NoValue is the leaf placed under a group whose stage has no continuation.
// Consumers must treat it as a terminal failure marker.
const NoValue Sentinel = "ERROR:NOVALUEFUNCTION"

// UnlabeledLabel is the label carried by nodes a number group could not
// label. Node.Unlabeled is the reliable signal; the label keeps the failure
// visible in rendered output.
const UnlabeledLabel = "ERR:NOLBL"

// Result is the outcome of executing a stage.
//
// Implementations:
//   - HandleResult: a filtered collection (a chain that ends in a filter)
//   - Tree: labeled groups
//   - Scalar: an aggregate value
//   - Sentinel: a failure marker in place of a value
type Result interface {
	resultNode()
}

// HandleResult wraps the filtered handle returned by a chain with no value stage.
type HandleResult struct {
	Handle records.Handle
}

// Tree is one level of labeled groups, in group-spec order.
type Tree []Node

// Scalar is the number produced by a value stage.
type Scalar float64

// Sentinel is a string marker standing in for a value.
type Sentinel string

func (HandleResult) resultNode() {}
func (Tree) resultNode()         {}
func (Scalar) resultNode()       {}
func (Sentinel) resultNode()     {}

// MarshalJSON rejects handles, which have no serialised form.
func (HandleResult) MarshalJSON() ([]byte, error) {
	return nil, fmt.Errorf("a record handle cannot be encoded as JSON")
}

// Node is one labeled group. Values is a nested Tree, or a Scalar (or
// Sentinel) at the deepest level.
type Node struct {
	Label     string
	Unlabeled bool
	Values    Result
}

type nodeJSON struct {
	Label     string `json:"label"`
	Unlabeled bool   `json:"unlabeled,omitempty"`
	Values    Result `json:"values"`
}

// MarshalJSON encodes the node as {"label": ..., "values": ...}.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Values == nil {
		return nil, fmt.Errorf("node %q has no values", n.Label)
	}
	return json.Marshal(nodeJSON(n))
}

// Labels returns the labels of the tree's nodes, in order.
func (t Tree) Labels() []string {
	out := make([]string, len(t))
	for i, n := range t {
		out[i] = n.Label
	}
	return out
}

// CountNodes returns the number of nodes in r, counting every level.
func CountNodes(r Result) int {
	t, ok := r.(Tree)
	if !ok {
		return 0
	}
	n := len(t)
	for _, node := range t {
		n += CountNodes(node.Values)
	}
	return n
}
