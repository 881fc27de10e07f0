// Package driver owns stage sequencing for every CLI verb: loader →
// parser → analyzer → HIR → MIR → {interpreter | LLVM → native}. Each
// stage checks the error count of its input before running; diagnostics
// accumulate in one bag per invocation and no stage touches global state.
package driver

import (
	"fmt"

	"kooix/internal/ast"
	"kooix/internal/backend/llvm"
	"kooix/internal/diag"
	"kooix/internal/diagfmt"
	"kooix/internal/hir"
	"kooix/internal/interp"
	"kooix/internal/loader"
	"kooix/internal/mir"
	"kooix/internal/modcheck"
	"kooix/internal/native"
	"kooix/internal/parser"
	"kooix/internal/sema"
	"kooix/internal/source"
)

// maxDiagnostics bounds a single invocation's diagnostic buffer.
const maxDiagnostics = 1000

// Session is the state of one compiler invocation.
type Session struct {
	FileSet  *source.FileSet
	Reporter *diag.BagReporter

	// ImportRoots are extra directories for import resolution, usually
	// from the project manifest.
	ImportRoots []string
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{
		FileSet:  source.NewFileSet(),
		Reporter: diag.NewBagReporter(maxDiagnostics),
	}
}

// Bag returns the session's diagnostic buffer.
func (s *Session) Bag() *diag.Bag {
	return s.Reporter.Bag
}

// LoadAndParse expands imports in include mode, parses the combined
// source, and strips alias qualifiers so the concatenated namespace
// resolves plainly. Returns nil when loading or parsing failed.
func (s *Session) LoadAndParse(entry string) *ast.Program {
	result, ok := loader.LoadWithOptions(s.FileSet, entry, s.Reporter,
		loader.Options{ImportRoots: s.ImportRoots})
	if !ok {
		return nil
	}

	program := parser.ParseFile(s.FileSet, result.CombinedID, parser.Options{Reporter: s.Reporter})
	if s.Bag().HasErrors() {
		return nil
	}

	modcheck.Normalize(program)
	return program
}

// Check runs parse plus semantic analysis; the exit contract is
// "0 iff no errors".
func (s *Session) Check(entry string) bool {
	program := s.LoadAndParse(entry)
	if program == nil {
		return false
	}
	sema.Check(program, s.Reporter)
	return !s.Bag().HasErrors()
}

// DumpAST renders the parsed representation.
func (s *Session) DumpAST(entry string) (string, bool) {
	program := s.LoadAndParse(entry)
	if program == nil {
		return "", false
	}
	return diagfmt.PrintAST(program), true
}

// checkedHIR runs the pipeline through semantic analysis and aborts on
// errors.
func (s *Session) checkedHIR(entry string) (*hir.Program, bool) {
	program := s.LoadAndParse(entry)
	if program == nil {
		return nil, false
	}
	checked := sema.Check(program, s.Reporter)
	if s.Bag().HasErrors() {
		return nil, false
	}
	return checked, true
}

// DumpHIR renders the typed declaration set.
func (s *Session) DumpHIR(entry string) (string, bool) {
	checked, ok := s.checkedHIR(entry)
	if !ok {
		return "", false
	}
	return hir.Print(checked), true
}

// loweredMIR runs the pipeline through MIR lowering and validation.
func (s *Session) loweredMIR(entry string) (*mir.Program, bool) {
	checked, ok := s.checkedHIR(entry)
	if !ok {
		return nil, false
	}
	lowered := mir.Lower(checked)
	if err := mir.Validate(lowered); err != nil {
		diag.Error(s.Reporter, diag.DriverInfo, source.Span{},
			fmt.Sprintf("internal error: %v", err))
		return nil, false
	}
	return lowered, true
}

// DumpMIR renders the block-structured form.
func (s *Session) DumpMIR(entry string) (string, bool) {
	lowered, ok := s.loweredMIR(entry)
	if !ok {
		return "", false
	}
	return mir.Print(lowered), true
}

// EmitLLVM produces the IR text. Given a fixed entry, two invocations
// produce byte-identical output.
func (s *Session) EmitLLVM(entry string) (string, bool) {
	lowered, ok := s.loweredMIR(entry)
	if !ok {
		return "", false
	}
	return llvm.Emit(lowered), true
}

// Run interprets the program's main.
func (s *Session) Run(entry string, opts interp.Options) (interp.Value, bool) {
	checked, ok := s.checkedHIR(entry)
	if !ok {
		return interp.Value{}, false
	}
	value, err := interp.New(checked, opts).RunMain()
	if err != nil {
		diag.Error(s.Reporter, diag.DriverInterp, source.Span{}, err.Error())
		return interp.Value{}, false
	}
	return value, true
}

// BuildNative compiles the entry to an executable at outPath.
func (s *Session) BuildNative(entry, outPath string) bool {
	ir, ok := s.EmitLLVM(entry)
	if !ok {
		return false
	}
	if err := native.CompileIRToExecutable([]byte(ir), outPath); err != nil {
		s.reportNativeError(err)
		return false
	}
	return true
}

// LinkIRFile builds an executable straight from an IR file
// (the native-llvm subcommand).
func (s *Session) LinkIRFile(irPath, outPath string) bool {
	if err := native.LinkIRFile(irPath, outPath); err != nil {
		s.reportNativeError(err)
		return false
	}
	return true
}

// RunNative executes a produced binary with the given run options.
func (s *Session) RunNative(path string, opts native.RunOptions) (native.RunOutput, bool) {
	out, err := native.RunExecutable(path, opts)
	if err != nil {
		s.reportNativeError(err)
		return out, false
	}
	return out, true
}

func (s *Session) reportNativeError(err error) {
	code := diag.DriverToolFailed
	switch err.(type) {
	case *native.ToolNotFoundError:
		code = diag.DriverToolMissing
	case *native.TimeoutError:
		code = diag.DriverTimeout
	}
	diag.Error(s.Reporter, code, source.Span{}, err.Error())
}
