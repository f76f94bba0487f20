package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formsignal/internal/compiler"
	"github.com/roach88/formsignal/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompiledForm is one form in canonical IR.
type CompiledForm struct {
	Name string
	Hash string
	Root ir.ControlSpec
}

// CompilationStats holds summary statistics of one form.
type CompilationStats struct {
	Controls   int
	Leaves     int
	Validators int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <forms-path>",
		Short: "Compile CUE forms to canonical IR",
		Long: `Compile the form: block of CUE files to canonical IR.

The compiler parses CUE files, checks every control against the IR schema,
and outputs canonical JSON together with each form's content hash.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, formsPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	// Use shared loader with collect-all mode
	loadResult, loadErrors := LoadForms(formsPath, LoadModeCollectAll)

	// Handle load errors (path not found, no files, etc.)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return outputCompileError(formatter, loadErr.Code, loadErr.Message, nil)
		}
		return outputCompileError(formatter, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, formsPath)

	// Schema checks run only on forms that compiled
	for _, form := range loadResult.Forms {
		formatter.VerboseLog("Compiling form: %s", form.Name)
		for _, verr := range compiler.Validate(form) {
			loadErrors = append(loadErrors, verr)
		}
	}
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	forms := make([]CompiledForm, 0, len(loadResult.Forms))
	for _, form := range loadResult.Forms {
		hash, err := ir.FormHash(form.Root)
		if err != nil {
			return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing form %s: %v", form.Name, err), nil)
		}
		forms = append(forms, CompiledForm{Name: form.Name, Hash: hash, Root: form.Root})
	}

	data, err := marshalForms(forms)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	// Write to file if --output specified
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, forms, data, opts.Output)
}

// marshalForms renders forms as canonical JSON, in declaration order.
func marshalForms(forms []CompiledForm) ([]byte, error) {
	list := make(ir.List, len(forms))
	for i, f := range forms {
		list[i] = ir.Object{
			"name": ir.String(f.Name),
			"hash": ir.String(f.Hash),
			"root": f.Root.Object(),
		}
	}
	data, err := ir.MarshalCanonical(ir.Object{"forms": list})
	if err != nil {
		return nil, fmt.Errorf("marshaling IR: %w", err)
	}
	return data, nil
}

// calculateStats counts the controls of a form tree.
func calculateStats(spec ir.ControlSpec) CompilationStats {
	stats := CompilationStats{Controls: 1, Validators: len(spec.Validators)}
	var children []ir.ControlSpec
	switch spec.Kind {
	case ir.KindGroup:
		for _, k := range spec.Keys {
			children = append(children, spec.Controls[k])
		}
	case ir.KindList:
		children = spec.Items
	default:
		stats.Leaves = 1
	}
	for _, child := range children {
		s := calculateStats(child)
		stats.Controls += s.Controls
		stats.Leaves += s.Leaves
		stats.Validators += s.Validators
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, forms []CompiledForm, data []byte, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(json.RawMessage(data))
	}

	// Human-readable text output
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d form(s)\n\n", len(forms))

	fmt.Fprintln(formatter.Writer, "Forms:")
	for _, form := range forms {
		stats := calculateStats(form.Root)
		fmt.Fprintf(formatter.Writer, "  %s: %s, %d control(s), %d leaf(s), %d validator(s), hash %s\n",
			form.Name, form.Root.Kind, stats.Controls, stats.Leaves, stats.Validators, truncateID(form.Hash))
	}
	fmt.Fprintln(formatter.Writer)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote canonical IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseCompileError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseCompileError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseCompileError extracts error code and message from an error.
func parseCompileError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Field != "" {
			return loadErr.Code, loadErr.Field + ": " + loadErr.Message
		}
		return loadErr.Code, loadErr.Message
	}
	var verr compiler.ValidationError
	if errors.As(err, &verr) {
		return verr.Code, verr.Field + ": " + verr.Message
	}
	return ErrCodeGeneric, err.Error()
}
