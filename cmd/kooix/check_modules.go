package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"kooix/internal/driver"
	"kooix/internal/modcache"
)

var checkModulesCmd = &cobra.Command{
	Use:   "check-modules [entry]",
	Short: "Module-aware semantic check with per-module diagnostics",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		entry, err := resolveEntry(args)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUsage)
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		pretty, _ := cmd.Flags().GetBool("pretty")
		strict, _ := cmd.Flags().GetBool("strict-warnings")
		noCache, _ := cmd.Flags().GetBool("no-cache")

		if manifest := manifestFor(entry); manifest != nil && manifest.Project.StrictWarnings {
			strict = true
		}

		var cache *modcache.Cache
		if !noCache {
			// Best-effort: an unusable cache directory just disables caching.
			cache, _ = modcache.Open(filepath.Dir(entry))
		}

		s := sessionFor(entry)
		report := s.CheckModules(entry, driver.ModulesOptions{
			StrictWarnings: strict,
			Cache:          cache,
		})

		if asJSON {
			encoder := json.NewEncoder(os.Stdout)
			if pretty {
				encoder.SetIndent("", "  ")
			}
			if err := encoder.Encode(report); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(exitUsage)
			}
		} else {
			printModulesReport(report)
		}

		if !report.OK {
			os.Exit(exitDiagnostics)
		}
	},
}

func init() {
	checkModulesCmd.Flags().Bool("json", false, "machine-readable output")
	checkModulesCmd.Flags().Bool("pretty", false, "indent JSON output")
	checkModulesCmd.Flags().Bool("strict-warnings", false, "treat warnings as failures")
	checkModulesCmd.Flags().Bool("no-cache", false, "skip the module disk cache")
}

func printModulesReport(report *driver.ModulesReport) {
	for _, err := range report.Errors {
		fmt.Printf("%s:%d:%d: %s: %s\n", err.File, err.Line, err.Col, err.Severity, err.Message)
	}
	for _, module := range report.Modules {
		status := "ok"
		if len(module.Diagnostics) > 0 {
			status = fmt.Sprintf("%d diagnostic(s)", len(module.Diagnostics))
		}
		fmt.Printf("%s: %s\n", module.Path, status)
		for _, d := range module.Diagnostics {
			fmt.Printf("  %s:%d:%d: %s: %s\n", d.File, d.Line, d.Col, d.Severity, d.Message)
		}
	}
	if report.OK {
		fmt.Println("ok")
	} else {
		fmt.Println("failed")
	}
}
