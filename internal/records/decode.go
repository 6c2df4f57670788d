package records

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a record file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a Format from a file extension. Unknown extensions are JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads a list of records. The document is either a top-level list
// or an object with a "records" list.
func Decode(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var raw any
	switch format {
	case FormatYAML:
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode yaml records: %w", err)
		}
		if raw, err = plainYAML(&doc); err != nil {
			return nil, fmt.Errorf("decode yaml records: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode json records: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported record format %q", format)
	}

	if obj, ok := raw.(map[string]any); ok {
		raw = obj["records"]
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("records must be a list, got %T", raw)
	}

	out := make([]Record, 0, len(list))
	for i, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected object, got %T", i, elem)
		}
		out = append(out, Record(obj))
	}
	return out, nil
}

// UnmarshalYAML decodes a record from a YAML mapping. Timestamps keep
// their source text, like every other date-like string.
func (r *Record) UnmarshalYAML(n *yaml.Node) error {
	v, err := plainYAML(n)
	if err != nil {
		return err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("line %d: record must be a mapping", n.Line)
	}
	*r = Record(obj)
	return nil
}

// plainYAML converts a node tree into maps, slices and scalars the way
// yaml.v3 decodes into any, except that !!timestamp scalars stay strings.
func plainYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return plainYAML(n.Content[0])
	case yaml.AliasNode:
		return plainYAML(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := plainYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := plainYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			if n.Content[i].ShortTag() == "!!merge" {
				mergeYAML(out, v)
				continue
			}
			out[n.Content[i].Value] = v
		}
		return out, nil
	default:
		if n.ShortTag() == "!!timestamp" {
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}

// mergeYAML applies a "<<" merge value. Keys already set win.
func mergeYAML(dst map[string]any, v any) {
	srcs, ok := v.([]any)
	if !ok {
		srcs = []any{v}
	}
	for _, src := range srcs {
		obj, ok := src.(map[string]any)
		if !ok {
			continue
		}
		for k, val := range obj {
			if _, set := dst[k]; !set {
				dst[k] = val
			}
		}
	}
}

// DecodeFile reads records from path, choosing the format by extension.
func DecodeFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatForPath(path))
}
