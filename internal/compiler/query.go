package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tally/internal/ir"
)

// queryKeys are the fields a query definition may declare.
var queryKeys = map[string]bool{"name": true, "source": true, "stages": true, "format": true}

// CompileQuery parses a CUE value into a QuerySpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the query struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`query: breakfast: { ... }`)
//	spec, err := CompileQuery(v.LookupPath(cue.ParsePath("query.breakfast")))
//
// The query name defaults to the struct label. The compiled spec is
// validated; the first problem is returned as a *CompileError positioned at
// the offending stage.
func CompileQuery(v cue.Value) (*ir.QuerySpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.QuerySpec{}

	// Parse query name from struct label (the path selector)
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		if !queryKeys[iter.Label()] {
			return nil, &CompileError{
				Field:   iter.Label(),
				Message: "unknown query field (want name, source, stages, format)",
				Pos:     iter.Value().Pos(),
			}
		}
	}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Name = name
	}

	// Parse source (required)
	sourceVal := v.LookupPath(cue.ParsePath("source"))
	if !sourceVal.Exists() {
		return nil, &CompileError{
			Field:   "source",
			Message: "source is required",
			Pos:     v.Pos(),
		}
	}
	spec.Source, err = sourceVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}

	// Parse stages (required, at least one)
	positions, err := parseStages(v, spec)
	if err != nil {
		return nil, err
	}

	// Parse format (optional, raw output when absent)
	formatVal := v.LookupPath(cue.ParsePath("format"))
	if formatVal.Exists() {
		if err := decodeCUE(formatVal, &spec.Format); err != nil {
			return nil, &CompileError{Field: "format", Message: err.Error(), Pos: formatVal.Pos()}
		}
	}

	if errs := Validate(spec); len(errs) > 0 {
		ce := toCompileError(errs[0])
		ce.Pos = v.Pos()
		if i, ok := stageIndex(errs[0].Field); ok && i < len(positions) {
			ce.Pos = positions[i]
		}
		return nil, ce
	}
	return spec, nil
}

// parseStages decodes the stages list into spec and returns the source
// position of each stage.
func parseStages(v cue.Value, spec *ir.QuerySpec) ([]token.Pos, error) {
	stagesVal := v.LookupPath(cue.ParsePath("stages"))
	if !stagesVal.Exists() {
		return nil, &CompileError{
			Field:   "stages",
			Message: "at least one stage is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := stagesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var positions []token.Pos
	for i := 0; iter.Next(); i++ {
		stageVal := iter.Value()
		field := fmt.Sprintf("stages[%d]", i)

		var stage ir.StageSpec
		if err := decodeCUE(stageVal, &stage); err != nil {
			return nil, &CompileError{Field: field, Message: err.Error(), Pos: stageVal.Pos()}
		}
		spec.Stages = append(spec.Stages, stage)
		positions = append(positions, stageVal.Pos())
	}
	return positions, nil
}

// CompileQueries compiles every query under the top-level "query" struct, in
// declaration order.
func CompileQueries(v cue.Value) ([]ir.QuerySpec, error) {
	queriesVal := v.LookupPath(cue.ParsePath("query"))
	if !queriesVal.Exists() {
		return nil, nil
	}
	iter, err := queriesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []ir.QuerySpec
	for iter.Next() {
		spec, err := CompileQuery(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("query.%s: %w", iter.Label(), err)
		}
		specs = append(specs, *spec)
	}
	return specs, nil
}

// CompileQueryYAML parses a single YAML query definition. Unknown keys are
// rejected.
func CompileQueryYAML(data []byte) (*ir.QuerySpec, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	spec := &ir.QuerySpec{}
	if err := dec.Decode(spec); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	if errs := Validate(spec); len(errs) > 0 {
		return nil, toCompileError(errs[0])
	}
	return spec, nil
}

// decodeCUE decodes a concrete CUE value through its JSON form, rejecting
// unknown fields.
func decodeCUE(v cue.Value, dst any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return formatCUEError(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// stageIndex extracts i from a "stages[i]..." field path.
func stageIndex(field string) (int, bool) {
	rest, ok := strings.CutPrefix(field, "stages[")
	if !ok {
		return 0, false
	}
	end := strings.IndexByte(rest, ']')
	if end < 0 {
		return 0, false
	}
	i, err := strconv.Atoi(rest[:end])
	return i, err == nil
}
