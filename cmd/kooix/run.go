package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kooix/internal/interp"
)

var runCmd = &cobra.Command{
	Use:   "run [entry]",
	Short: "Interpret the program's main",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entry, err := resolveEntry(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUsage)
		}

		maxIters, _ := cmd.Flags().GetInt("max-loop-iterations")

		s := sessionFor(entry)
		value, ok := s.Run(entry, interp.Options{MaxLoopIters: maxIters})
		printDiagnostics(cmd, s)
		if !ok {
			os.Exit(exitDiagnostics)
		}
		fmt.Println(value.String())
	},
}

func init() {
	runCmd.Flags().Int("max-loop-iterations", 0, "while-loop safety guard (0 = default)")
}
