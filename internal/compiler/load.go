package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/tally/internal/ir"
)

// LoadPath compiles the query definitions at path:
//
//   - a directory is loaded as one CUE package
//   - a .cue file may hold any number of queries under "query"
//   - a .yaml or .yml file holds a single query
func LoadPath(path string) ([]ir.QuerySpec, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("query definitions: %w", err)
	}
	if info.IsDir() {
		return loadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		return nonEmpty(CompileQueries(v))
	case ".yaml", ".yml":
		spec, err := CompileQueryYAML(data)
		if err != nil {
			return nil, err
		}
		if spec.Name == "" {
			spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return []ir.QuerySpec{*spec}, nil
	default:
		return nil, fmt.Errorf("unsupported query file %q (want .cue, .yaml or .yml)", path)
	}
}

func loadCUEDir(dir string) ([]ir.QuerySpec, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return nonEmpty(CompileQueries(v))
}

func nonEmpty(specs []ir.QuerySpec, err error) ([]ir.QuerySpec, error) {
	if err != nil {
		return nil, err
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no queries found (declare them under \"query\")")
	}
	return specs, nil
}

// Select returns the query called name. An empty name selects the only
// query, and is an error when there are several.
func Select(specs []ir.QuerySpec, name string) (*ir.QuerySpec, error) {
	if name == "" {
		if len(specs) == 1 {
			return &specs[0], nil
		}
		return nil, fmt.Errorf("%d queries defined; choose one of %s", len(specs), strings.Join(queryNames(specs), ", "))
	}
	for i := range specs {
		if specs[i].Name == name {
			return &specs[i], nil
		}
	}
	return nil, fmt.Errorf("query %q not found; defined: %s", name, strings.Join(queryNames(specs), ", "))
}

func queryNames(specs []ir.QuerySpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}
