package main

import (
	"os"

	"github.com/spf13/cobra"

	"kooix/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "kooix",
	Short: "Kooix language compiler",
	Long:  `Kooix Stage0: reference compiler for the Kooix language`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(checkModulesCmd)
	rootCmd.AddCommand(astCmd)
	rootCmd.AddCommand(hirCmd)
	rootCmd.AddCommand(mirCmd)
	rootCmd.AddCommand(llvmCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(nativeCmd)
	rootCmd.AddCommand(nativeLLVMCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
