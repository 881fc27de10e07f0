package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kooix/internal/diag"
	"kooix/internal/source"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadIncludeMode(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.kooix", "fn helper() -> Int { 1 }\n")
	entry := writeFile(t, dir, "main.kooix",
		"import \"lib\";\nfn main() -> Int { helper() }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, ok := Load(fs, entry, reporter)
	if !ok {
		t.Fatalf("load failed: %v", reporter.Bag.Items())
	}

	// Dependencies come first, each behind an origin marker.
	if len(result.Graph.Modules) != 2 {
		t.Fatalf("module count = %d", len(result.Graph.Modules))
	}
	if !strings.HasSuffix(result.Graph.Modules[0].Path, "lib.kooix") {
		t.Fatalf("first module = %s, want lib", result.Graph.Modules[0].Path)
	}
	if !strings.Contains(result.Combined, "// --- file: ") {
		t.Fatal("combined source missing origin markers")
	}
	helperIdx := strings.Index(result.Combined, "helper")
	mainIdx := strings.Index(result.Combined, "main()")
	if helperIdx < 0 || mainIdx < 0 || helperIdx > mainIdx {
		t.Fatal("combined source not in dependency-first order")
	}
}

func TestLoadDedupesSharedImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.kooix", "fn shared() -> Int { 1 }\n")
	writeFile(t, dir, "a.kooix", "import \"shared\";\nfn a() -> Int { shared() }\n")
	writeFile(t, dir, "b.kooix", "import \"shared\";\nfn b() -> Int { shared() }\n")
	entry := writeFile(t, dir, "main.kooix",
		"import \"a\";\nimport \"b\";\nfn main() -> Int { a() + b() }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, ok := Load(fs, entry, reporter)
	if !ok {
		t.Fatalf("load failed: %v", reporter.Bag.Items())
	}
	if len(result.Graph.Modules) != 4 {
		t.Fatalf("module count = %d, want 4 (shared deduplicated)", len(result.Graph.Modules))
	}
	if strings.Count(result.Combined, "fn shared()") != 1 {
		t.Fatal("shared module concatenated more than once")
	}
}

func TestLoadImportCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.kooix", "import \"b\";\nfn a() -> Int { 1 }\n")
	writeFile(t, dir, "b.kooix", "import \"a\";\nfn b() -> Int { 2 }\n")
	entry := filepath.Join(dir, "a.kooix")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	_, ok := Load(fs, entry, reporter)
	if ok {
		t.Fatal("cycle not reported")
	}
	found := false
	for _, d := range reporter.Bag.Items() {
		if d.Code == diag.ProjImportCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("no cycle diagnostic: %v", reporter.Bag.Items())
	}
}

func TestLoadMissingImport(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.kooix", "import \"nowhere\";\nfn main() -> Int { 0 }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	_, ok := Load(fs, entry, reporter)
	if ok {
		t.Fatal("missing import not reported")
	}
	found := false
	for _, d := range reporter.Bag.Items() {
		if d.Code == diag.ProjFileNotFound {
			found = true
		}
	}
	if !found {
		t.Fatalf("no file-not-found diagnostic: %v", reporter.Bag.Items())
	}
}

func TestLoadAliasCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.kooix", "fn x() -> Int { 1 }\n")
	writeFile(t, dir, "y.kooix", "fn y() -> Int { 2 }\n")
	entry := writeFile(t, dir, "main.kooix",
		"import \"x\" as Lib;\nimport \"y\" as Lib;\nfn main() -> Int { 0 }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	_, ok := Load(fs, entry, reporter)
	if ok {
		t.Fatal("alias collision not reported")
	}
	found := false
	for _, d := range reporter.Bag.Items() {
		if d.Code == diag.ProjAliasCollision {
			found = true
		}
	}
	if !found {
		t.Fatalf("no alias-collision diagnostic: %v", reporter.Bag.Items())
	}
}

func TestUpwardDirectorySearch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.kooix", "fn util() -> Int { 7 }\n")
	entry := writeFile(t, filepath.Join(dir, "nested", "deep"), "main.kooix",
		"import \"util\";\nfn main() -> Int { util() }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, ok := Load(fs, entry, reporter)
	if !ok {
		t.Fatalf("upward search failed: %v", reporter.Bag.Items())
	}
	if len(result.Graph.Modules) != 2 {
		t.Fatalf("module count = %d", len(result.Graph.Modules))
	}
}

func TestModuleGraphToposort(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.kooix", "fn base() -> Int { 1 }\n")
	writeFile(t, dir, "mid.kooix", "import \"base\";\nfn mid() -> Int { base() }\n")
	entry := writeFile(t, dir, "main.kooix",
		"import \"mid\";\nfn main() -> Int { mid() }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, ok := Load(fs, entry, reporter)
	if !ok {
		t.Fatalf("load failed: %v", reporter.Bag.Items())
	}

	topo := result.Graph.Toposort()
	if topo.Cyclic {
		t.Fatal("acyclic graph reported cyclic")
	}
	if len(topo.Order) != 3 {
		t.Fatalf("order length = %d", len(topo.Order))
	}
	// base before mid before main
	pathOf := func(id int) string { return result.Graph.Modules[id].Path }
	var baseAt, midAt, mainAt int
	for i, id := range topo.Order {
		switch {
		case strings.HasSuffix(pathOf(int(id)), "base.kooix"):
			baseAt = i
		case strings.HasSuffix(pathOf(int(id)), "mid.kooix"):
			midAt = i
		case strings.HasSuffix(pathOf(int(id)), "main.kooix"):
			mainAt = i
		}
	}
	if !(baseAt < midAt && midAt < mainAt) {
		t.Fatalf("topo order wrong: base=%d mid=%d main=%d", baseAt, midAt, mainAt)
	}
}

func TestLoadModulesParses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "lib.kooix", "enum Option<T> { Some(T), None };\n")
	entry := writeFile(t, dir, "main.kooix",
		"import \"lib\" as Foo;\nfn main() -> Int { 0 }\n")

	fs := source.NewFileSet()
	reporter := diag.NewBagReporter(50)
	result, modules, ok := LoadModules(fs, entry, reporter, 0)
	if !ok || reporter.Bag.HasErrors() {
		t.Fatalf("load modules failed: %v", reporter.Bag.Items())
	}
	if len(modules) != 2 {
		t.Fatalf("module count = %d", len(modules))
	}

	node, found := result.Graph.Node(entry)
	if !found {
		t.Fatal("entry node missing")
	}
	if len(node.Imports) != 1 || node.Imports[0].Alias != "Foo" {
		t.Fatalf("entry imports = %+v", node.Imports)
	}
}
