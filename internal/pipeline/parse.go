package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseTree decodes a raw result tree: a JSON array of
// {"label": string, "values": array|number} nodes (plus an optional
// "unlabeled" flag). Anything else, including formatter output, is rejected
// with a *ShapeError.
func ParseTree(data []byte) (Tree, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, NewShapeError(ErrCodeMalformed, "", "invalid JSON: %v", err)
	}
	if dec.More() {
		return nil, NewShapeError(ErrCodeMalformed, "", "trailing data after result tree")
	}
	return parseTree(raw, "")
}

func parseTree(raw any, path string) (Tree, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, NewShapeError(ErrCodeMalformed, pathOrRoot(path), "expected an array of nodes, got %s", jsonKind(raw))
	}
	tree := make(Tree, 0, len(list))
	for i, elem := range list {
		node, err := parseNode(elem, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		tree = append(tree, node)
	}
	return tree, nil
}

func parseNode(raw any, path string) (Node, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Node{}, NewShapeError(ErrCodeMalformed, path, "expected a node object, got %s", jsonKind(raw))
	}
	for k := range obj {
		switch k {
		case "label", "values", "unlabeled":
		default:
			return Node{}, NewShapeError(ErrCodeMalformed, path, "unexpected key %q", k)
		}
	}

	label, ok := obj["label"].(string)
	if !ok {
		return Node{}, NewShapeError(ErrCodeMalformed, path+".label", "expected a string, got %s", jsonKind(obj["label"]))
	}
	node := Node{Label: label}
	if u, present := obj["unlabeled"]; present {
		b, ok := u.(bool)
		if !ok {
			return Node{}, NewShapeError(ErrCodeMalformed, path+".unlabeled", "expected a boolean, got %s", jsonKind(u))
		}
		node.Unlabeled = b
	}

	valuesPath := path + ".values"
	switch v := obj["values"].(type) {
	case []any:
		sub, err := parseTree(v, valuesPath)
		if err != nil {
			return Node{}, err
		}
		node.Values = sub
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Node{}, NewShapeError(ErrCodeMalformed, valuesPath, "invalid number %q", v)
		}
		node.Values = Scalar(f)
	case string:
		if Sentinel(v) != NoValue {
			return Node{}, NewShapeError(ErrCodeMalformed, valuesPath, "unexpected string %q", v)
		}
		node.Values = NoValue
	default:
		return Node{}, NewShapeError(ErrCodeMalformed, valuesPath, "expected an array or number, got %s", jsonKind(obj["values"]))
	}
	return node, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

func pathOrRoot(path string) string {
	if path == "" {
		return "$"
	}
	return path
}
