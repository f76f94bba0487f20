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

	"github.com/roach88/formsignal/internal/compiler"
	"github.com/roach88/formsignal/internal/ir"
)

// LoadMode controls how errors are handled during form loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the forms loaded from a file or directory.
type LoadResult struct {
	Forms     []ir.FormSpec
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during form loading.
type LoadError struct {
	Code    string
	Message string
	Field   string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadForms loads CUE files and compiles every field of their form: block.
// path is a directory, loaded as one CUE instance, or a single file.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadForms(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("forms path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing forms path: %v", err)}}
	}

	dir, args := path, []string{"."}
	cueFiles := []string{path}
	if info.IsDir() {
		cueFiles, err = FindCUEFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(cueFiles) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}}
		}
	} else {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	var errs []error
	formsVal := value.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoForms, Message: "no form block found"}}
	}
	iter, err := formsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating forms: %v", err)}}
	}
	for iter.Next() {
		spec, compileErr := compiler.CompileForm(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "form."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Forms = append(result.Forms, *spec)
	}

	if len(result.Forms) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoForms, Message: "form block is empty"})
	}
	return result, errs
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
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Field:   context + fieldSuffix(compileErr.Field),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
		Field:   context,
	}
}

func fieldSuffix(field string) string {
	if field == "" || field == "cue" || field == "form" {
		return ""
	}
	return "." + field
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoForms     = "E008" // No form block, or an empty one
	ErrCodeStore       = "E009" // Trace store error

	// Control compile errors reuse the compiler's validation codes.
	ErrCodeInvalidControl = compiler.ErrShapeMismatch
	ErrCodeInvalidValue   = compiler.ErrUnsupportedIRType
	ErrCodeValidators     = compiler.ErrValidatorArg
)

// MapFieldToErrorCode maps a compiler error field to an error code.
// Fields are dotted control paths ending in the offending control field.
func MapFieldToErrorCode(field string) string {
	last := field
	if i := strings.LastIndex(field, "."); i >= 0 {
		last = field[i+1:]
	}
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "form":
		return ErrCodeNoForms
	case strings.Contains(field, "validators"):
		return ErrCodeValidators
	case last == "value":
		return ErrCodeInvalidValue
	default:
		return ErrCodeInvalidControl
	}
}
