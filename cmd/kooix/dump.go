package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kooix/internal/driver"
)

// The representation printers share one execution shape: run the pipeline
// up to the named stage and print it, or exit 1 with diagnostics.
func dumpCommand(use, short string, produce func(*driver.Session, string) (string, bool)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [entry]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			entry, err := resolveEntry(args)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitUsage)
			}

			s := sessionFor(entry)
			output, ok := produce(s, entry)
			printDiagnostics(cmd, s)
			if !ok {
				os.Exit(exitDiagnostics)
			}
			fmt.Print(output)
		},
	}
}

var astCmd = dumpCommand("ast", "Print the parsed AST",
	func(s *driver.Session, entry string) (string, bool) { return s.DumpAST(entry) })

var hirCmd = dumpCommand("hir", "Print the typed HIR",
	func(s *driver.Session, entry string) (string, bool) { return s.DumpHIR(entry) })

var mirCmd = dumpCommand("mir", "Print the block-structured MIR",
	func(s *driver.Session, entry string) (string, bool) { return s.DumpMIR(entry) })

var llvmCmd = dumpCommand("llvm", "Print the emitted LLVM IR",
	func(s *driver.Session, entry string) (string, bool) { return s.EmitLLVM(entry) })
