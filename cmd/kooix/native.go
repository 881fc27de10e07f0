package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kooix/internal/driver"
	"kooix/internal/native"
)

var nativeCmd = &cobra.Command{
	Use:   "native <entry> <out-path> [--run] [--stdin FILE|-] [--timeout MS] [-- args...]",
	Short: "Compile a program to a native executable",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		positional, passthrough := splitDashArgs(cmd, args)
		if len(positional) < 2 {
			fmt.Fprintln(os.Stderr, "native requires <entry> and <out-path>")
			os.Exit(exitUsage)
		}
		entry, outPath := positional[0], positional[1]

		s := sessionFor(entry)
		if !s.BuildNative(entry, outPath) {
			printDiagnostics(cmd, s)
			os.Exit(exitDiagnostics)
		}
		printDiagnostics(cmd, s)

		runAfter, _ := cmd.Flags().GetBool("run")
		if runAfter {
			executeBinary(cmd, outPath, passthrough)
		}
	},
}

var nativeLLVMCmd = &cobra.Command{
	Use:   "native-llvm <ir-path> <out-path> [--run] [--stdin FILE|-] [--timeout MS] [-- args...]",
	Short: "Link existing LLVM IR text into a native executable",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		positional, passthrough := splitDashArgs(cmd, args)
		if len(positional) < 2 {
			fmt.Fprintln(os.Stderr, "native-llvm requires <ir-path> and <out-path>")
			os.Exit(exitUsage)
		}
		irPath, outPath := positional[0], positional[1]

		s := driver.NewSession()
		if !s.LinkIRFile(irPath, outPath) {
			printDiagnostics(cmd, s)
			os.Exit(exitDiagnostics)
		}

		runAfter, _ := cmd.Flags().GetBool("run")
		if runAfter {
			executeBinary(cmd, outPath, passthrough)
		}
	},
}

func init() {
	for _, cmd := range []*cobra.Command{nativeCmd, nativeLLVMCmd} {
		cmd.Flags().Bool("run", false, "execute the produced binary")
		cmd.Flags().String("stdin", "", "feed the binary's stdin from FILE, or '-' for the driver's stdin")
		cmd.Flags().Int64("timeout", 0, "kill the binary (and its process tree) after MS milliseconds")
	}
}

// splitDashArgs separates positionals from `--` pass-through arguments.
func splitDashArgs(cmd *cobra.Command, args []string) (positional, passthrough []string) {
	at := cmd.ArgsLenAtDash()
	if at < 0 {
		return args, nil
	}
	return args[:at], args[at:]
}

// executeBinary runs the produced executable with the shared
// stdin/timeout/pass-through plumbing and propagates its exit code.
func executeBinary(cmd *cobra.Command, path string, passthrough []string) {
	opts := native.RunOptions{Args: passthrough}

	stdinSpec, _ := cmd.Flags().GetString("stdin")
	switch stdinSpec {
	case "":
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read stdin:", err)
			os.Exit(exitUsage)
		}
		opts.Stdin = data
	default:
		data, err := os.ReadFile(stdinSpec)
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read stdin file:", err)
			os.Exit(exitUsage)
		}
		opts.Stdin = data
	}

	timeoutMS, _ := cmd.Flags().GetInt64("timeout")
	if timeoutMS > 0 {
		opts.Timeout = time.Duration(timeoutMS) * time.Millisecond
	}

	out, err := native.RunExecutable(path, opts)
	os.Stdout.WriteString(out.Stdout)
	os.Stderr.WriteString(out.Stderr)

	var timeout *native.TimeoutError
	if errors.As(err, &timeout) {
		fmt.Fprintln(os.Stderr, timeout.Error())
		os.Exit(native.ExitCodeTimeout)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	fmt.Printf("run exit code: %d\n", out.ExitCode)
	if out.ExitCode != 0 {
		os.Exit(out.ExitCode)
	}
}
