package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tally/internal/compiler"
	"github.com/roach88/tally/internal/ir"
)

// LoadMode controls how errors are handled during query loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the queries loaded from a file or directory.
type LoadResult struct {
	Queries   []ir.QuerySpec
	FileCount int // Number of query files read
}

// LoadError represents an error that occurred during query loading.
type LoadError struct {
	Code    string
	Query   string // Query name, when the error belongs to one
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands. Query validation
// problems carry the compiler's own codes (E100-E111).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No query files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File or database write error
	ErrCodeNoQueries   = "E008" // No queries declared
	ErrCodeBadInput    = "E009" // Unreadable records, raw tree or flag value
)

// LoadQueries loads and compiles query definitions from a .cue file, a
// .yaml/.yml file or a directory holding one CUE package.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadQueries(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing query path: %v", err)}}
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			return loadYAMLQuery(path)
		case ".cue":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
			}
			value := cuecontext.New().CompileBytes(data, cue.Filename(path))
			if err := value.Err(); err != nil {
				return nil, []error{convertCompileError(err, path)}
			}
			return compileAll(value, 1, mode)
		default:
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a query file (want .cue, .yaml or .yml): %s", path)}}
		}
	}

	cueFiles, err := FindCUEFiles(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	return compileAll(value, len(cueFiles), mode)
}

// compileAll compiles every query under "query" in value.
func compileAll(value cue.Value, fileCount int, mode LoadMode) (*LoadResult, []error) {
	var errs []error
	result := &LoadResult{FileCount: fileCount}

	queriesVal := value.LookupPath(cue.ParsePath("query"))
	if queriesVal.Exists() {
		iter, err := queriesVal.Fields()
		if err != nil {
			return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating queries: %v", err)}}
		}
		for iter.Next() {
			spec, err := compiler.CompileQuery(iter.Value())
			if err != nil {
				loadErr := convertCompileError(err, "query."+iter.Label())
				loadErr.Query = iter.Label()
				errs = append(errs, loadErr)
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Queries = append(result.Queries, *spec)
		}
	}

	if len(result.Queries) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoQueries, Message: `no queries found (declare them under "query")`})
	}
	return result, errs
}

func loadYAMLQuery(path string) (*LoadResult, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}}
	}
	spec, err := compiler.CompileQueryYAML(data)
	if err != nil {
		return &LoadResult{FileCount: 1}, []error{convertCompileError(err, path)}
	}
	if spec.Name == "" {
		spec.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &LoadResult{Queries: []ir.QuerySpec{*spec}, FileCount: 1}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := compileErr.Code()
		if code == "" {
			code = ErrCodeGeneric
		}
		return &LoadError{
			Code:    code,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// loadOneQuery loads path fail-fast and selects the query called name.
func loadOneQuery(path, name string) (*ir.QuerySpec, error) {
	result, errs := LoadQueries(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	spec, err := compiler.Select(result.Queries, name)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNoQueries, Message: err.Error()}
	}
	return spec, nil
}
