package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kooix/internal/diagfmt"
	"kooix/internal/driver"
	"kooix/internal/project"
)

const (
	exitOK          = 0
	exitDiagnostics = 1
	exitUsage       = 2
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// colorEnabled resolves the --color mode against the output terminal.
func colorEnabled(cmd *cobra.Command) bool {
	mode, _ := cmd.Flags().GetString("color")
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stderr)
	}
}

// resolveEntry returns the entry path from args, falling back to the
// project manifest next to the working directory.
func resolveEntry(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	manifestPath, found := project.Find(wd)
	if !found {
		return "", fmt.Errorf("no entry file given and no %s found", project.ManifestFile)
	}
	manifest, err := project.Load(manifestPath)
	if err != nil {
		return "", fmt.Errorf("failed to load %s: %w", manifestPath, err)
	}
	return manifest.EntryPath()
}

// manifestFor loads the manifest that governs an entry path, if any.
func manifestFor(entry string) *project.Manifest {
	manifestPath, found := project.Find(filepath.Dir(entry))
	if !found {
		return nil
	}
	manifest, err := project.Load(manifestPath)
	if err != nil {
		return nil
	}
	return manifest
}

// sessionFor creates a driver session configured from the entry's
// manifest (extra import roots).
func sessionFor(entry string) *driver.Session {
	s := driver.NewSession()
	if manifest := manifestFor(entry); manifest != nil {
		for _, root := range manifest.Project.ImportRoots {
			if filepath.IsAbs(root) {
				s.ImportRoots = append(s.ImportRoots, root)
			} else {
				s.ImportRoots = append(s.ImportRoots, filepath.Join(manifest.Dir, root))
			}
		}
	}
	return s
}

// printDiagnostics renders the sorted session bag to stderr, showing at
// most --max-diagnostics entries.
func printDiagnostics(cmd *cobra.Command, s *driver.Session) {
	limit, _ := cmd.Flags().GetInt("max-diagnostics")
	colorize := colorEnabled(cmd)
	bag := s.Bag()
	bag.Sort()
	for i := range bag.Items() {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintln(os.Stderr, diagfmt.RenderText(s.FileSet, &bag.Items()[i], colorize))
	}
}
