package format

import (
	"fmt"
	"log/slog"

	"github.com/roach88/tally/internal/pipeline"
)

// DefaultRootLabel names the node that wraps the whole result.
const DefaultRootLabel = "root"

// Tree formats a result as a hierarchy for treemap, sunburst and icicle
// style visualizations.
//
// The result is wrapped in a root node. A leaf's area is its value; an
// internal node's area is the sum of its children's areas. Colors are
// assigned by depth, root first.
type Tree struct {
	RootLabel string
	Palette   Palette
	IDs       IDGenerator
}

// TreeNode is one node of Tree output.
type TreeNode struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Children []TreeNode `json:"children"`
	Data     TreeData   `json:"data"`
}

// TreeData carries a node's aggregate. Area and Dim are always equal.
type TreeData struct {
	Area  float64 `json:"$area"`
	Dim   float64 `json:"$dim"`
	Color string  `json:"$color,omitempty"`
}

// Name implements Formatter.
func (Tree) Name() string { return NameTree }

// Format implements Formatter. It returns a TreeNode.
func (f Tree) Format(r pipeline.Result) (any, error) {
	root, err := f.Build(r)
	if err != nil {
		return nil, err
	}
	return root, nil
}

// Build is Format with a typed return.
func (f Tree) Build(r pipeline.Result) (TreeNode, error) {
	label := f.RootLabel
	if label == "" {
		label = DefaultRootLabel
	}
	ids := f.IDs
	if ids == nil {
		ids = UUIDv7IDs{}
	}
	b := treeBuilder{palette: f.Palette, ids: ids}

	switch r.(type) {
	case nil, pipeline.HandleResult:
		return TreeNode{}, pipeline.NewShapeError(pipeline.ErrCodeNotTree, "$", "expected a result tree, got %T", r)
	}
	root, err := b.node(label, r, 0, "")
	if err != nil {
		return TreeNode{}, err
	}
	slog.Debug("formatted tree", "nodes", b.count, "area", root.Data.Area)
	return root, nil
}

type treeBuilder struct {
	palette Palette
	ids     IDGenerator
	count   int
}

func (b *treeBuilder) node(name string, values pipeline.Result, depth int, path string) (TreeNode, error) {
	b.count++
	n := TreeNode{
		ID:       fmt.Sprintf("node-%d-%s", depth, b.ids.Generate()),
		Name:     name,
		Children: []TreeNode{},
	}

	var sum float64
	switch v := values.(type) {
	case pipeline.Scalar:
		sum = float64(v)
	case pipeline.Tree:
		for i, child := range v {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			c, err := b.node(child.Label, child.Values, depth+1, childPath+".values")
			if err != nil {
				return TreeNode{}, err
			}
			n.Children = append(n.Children, c)
			sum += c.Data.Area
		}
	case pipeline.Sentinel:
		return TreeNode{}, pipeline.NewShapeError(pipeline.ErrCodeNonNumericLeaf, pathOrRoot(path), "leaf holds %q instead of a number", string(v))
	default:
		return TreeNode{}, pipeline.NewShapeError(pipeline.ErrCodeNonNumericLeaf, pathOrRoot(path), "leaf holds %T instead of a number", values)
	}

	n.Data = TreeData{Area: sum, Dim: sum, Color: b.palette.At(depth)}
	return n, nil
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
