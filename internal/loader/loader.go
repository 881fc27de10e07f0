// Package loader expands import directives so the parser and analyzer can
// see every needed declaration. Both resolver modes share one traversal:
// include mode concatenates every transitively imported file (depth-first,
// deduplicated, dependencies first) into a single marked-up source, while
// module-aware mode keeps per-file programs plus the import edge list.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"kooix/internal/ast"
	"kooix/internal/diag"
	"kooix/internal/lexer"
	"kooix/internal/loader/dag"
	"kooix/internal/parser"
	"kooix/internal/source"
	"kooix/internal/token"
)

// ImportEdge is one resolved import directive.
type ImportEdge struct {
	Raw      string
	Resolved string // normalized absolute-ish path
	Alias    string // "" when the import has no alias
}

// ModuleNode is one loaded module with its outgoing imports.
type ModuleNode struct {
	Path    string
	FileID  source.FileID
	Imports []ImportEdge
}

// ModuleGraph is the loaded module set in dependency-first order.
type ModuleGraph struct {
	Entry   string
	Modules []ModuleNode
}

// SourcePart locates one file's contribution inside the combined source.
type SourcePart struct {
	Path  string
	Start int
	End   int
}

// Result is the output of a load: the module graph plus the include-mode
// combined source registered as a virtual file.
type Result struct {
	Graph    *ModuleGraph
	Combined string
	Parts    []SourcePart
	// CombinedID is the virtual file holding the concatenated source.
	CombinedID source.FileID
}

// upwardSearchLevels bounds the parent-directory search for imports, the
// same limit the bootstrap runtime uses.
const upwardSearchLevels = 8

type loader struct {
	fs       *source.FileSet
	reporter diag.Reporter
	roots    []string

	visited  map[string]bool
	onStack  map[string]bool
	stack    []string
	modules  []ModuleNode
	parts    []SourcePart
	combined strings.Builder
	failed   bool
}

// Options tune the traversal.
type Options struct {
	// ImportRoots are extra directories consulted when the relative and
	// upward searches both miss (manifest import_roots).
	ImportRoots []string
}

// Load reads the entry file and every transitive import. It returns false
// when loading failed (missing file, IO failure, malformed import
// directive, unresolvable import, import cycle, alias collision); lexer
// errors reported while scanning for imports do not make it return false.
func Load(fs *source.FileSet, entry string, reporter diag.Reporter) (*Result, bool) {
	return LoadWithOptions(fs, entry, reporter, Options{})
}

// LoadWithOptions is Load with extra import roots.
func LoadWithOptions(fs *source.FileSet, entry string, reporter diag.Reporter, opts Options) (*Result, bool) {
	l := &loader{
		fs:       fs,
		reporter: reporter,
		roots:    opts.ImportRoots,
		visited:  make(map[string]bool),
		onStack:  make(map[string]bool),
	}

	l.loadFile(entry)
	if l.failed {
		return nil, false
	}

	result := &Result{
		Graph:    &ModuleGraph{Entry: normalize(entry), Modules: l.modules},
		Combined: l.combined.String(),
		Parts:    l.parts,
	}
	result.CombinedID = fs.AddVirtual(normalize(entry)+"#combined", []byte(result.Combined))
	return result, true
}

func (l *loader) loadFile(path string) {
	key := normalize(path)
	if l.visited[key] {
		if l.onStack[key] {
			cycle := append(append([]string{}, l.stack...), key)
			diag.Error(l.reporter, diag.ProjImportCycle, source.Span{},
				"import cycle detected: "+strings.Join(cycle, " -> "))
			l.failed = true
		}
		return
	}
	l.visited[key] = true
	l.onStack[key] = true
	l.stack = append(l.stack, key)
	defer func() {
		delete(l.onStack, key)
		l.stack = l.stack[:len(l.stack)-1]
	}()

	id, err := l.fs.Load(path)
	if err != nil {
		code := diag.ProjReadFailed
		if os.IsNotExist(err) {
			code = diag.ProjFileNotFound
		}
		diag.Error(l.reporter, code, source.Span{},
			fmt.Sprintf("failed to read file '%s': %v", path, err))
		l.failed = true
		return
	}
	file := l.fs.Get(id)

	specs, ok := scanImports(file, l.reporter)
	if !ok {
		l.failed = true
		return
	}

	baseDir := filepath.Dir(path)
	seenAliases := make(map[string]string)
	edges := make([]ImportEdge, 0, len(specs))
	for _, spec := range specs {
		if spec.Alias != "" {
			if prev, exists := seenAliases[spec.Alias]; exists {
				diag.Error(l.reporter, diag.ProjAliasCollision, spec.Span,
					"import alias '"+spec.Alias+"' already bound to '"+prev+"'")
				l.failed = true
				continue
			}
			seenAliases[spec.Alias] = spec.Path
		}

		resolved, found := resolveImportPath(baseDir, spec.Path, l.roots)
		if !found {
			diag.Error(l.reporter, diag.ProjFileNotFound, spec.Span,
				"cannot resolve import '"+spec.Path+"' from '"+baseDir+"'")
			l.failed = true
			continue
		}

		edges = append(edges, ImportEdge{Raw: spec.Path, Resolved: normalize(resolved), Alias: spec.Alias})
		l.loadFile(resolved)
		if l.failed {
			return
		}
	}

	l.modules = append(l.modules, ModuleNode{Path: key, FileID: id, Imports: edges})
	l.appendPart(key, file.Content)
}

// appendPart adds one file to the combined source behind an origin marker.
func (l *loader) appendPart(path string, content []byte) {
	fmt.Fprintf(&l.combined, "// --- file: %s ---\n", path)
	start := l.combined.Len()
	l.combined.Write(content)
	if len(content) == 0 || content[len(content)-1] != '\n' {
		l.combined.WriteByte('\n')
	}
	l.combined.WriteByte('\n')
	l.parts = append(l.parts, SourcePart{Path: path, Start: start, End: l.combined.Len()})
}

// LoadedModule is one parsed per-file program for module-aware analysis.
type LoadedModule struct {
	Path    string
	FileID  source.FileID
	Program *ast.Program
}

// LoadModules runs the shared traversal and parses each file into its own
// program.
func LoadModules(fs *source.FileSet, entry string, reporter diag.Reporter, maxErrors uint) (*Result, []LoadedModule, bool) {
	return LoadModulesWithOptions(fs, entry, reporter, maxErrors, Options{})
}

// LoadModulesWithOptions is LoadModules with traversal options.
func LoadModulesWithOptions(fs *source.FileSet, entry string, reporter diag.Reporter, maxErrors uint, opts Options) (*Result, []LoadedModule, bool) {
	result, ok := LoadWithOptions(fs, entry, reporter, opts)
	if !ok {
		return nil, nil, false
	}

	modules := make([]LoadedModule, 0, len(result.Graph.Modules))
	for _, node := range result.Graph.Modules {
		program := parser.ParseFile(fs, node.FileID, parser.Options{
			MaxErrors: maxErrors,
			Reporter:  reporter,
		})
		modules = append(modules, LoadedModule{Path: node.Path, FileID: node.FileID, Program: program})
	}
	return result, modules, true
}

// Toposort builds the import DAG over the graph's modules and runs
// Kahn's algorithm; batches are waves of mutually independent modules.
func (g *ModuleGraph) Toposort() *dag.Topo {
	index := make(map[string]dag.ModuleID, len(g.Modules))
	for i, module := range g.Modules {
		index[module.Path] = dag.ModuleID(i) // #nosec G115 -- bounded by module count
	}

	graph := dag.NewGraph(len(g.Modules))
	for i, module := range g.Modules {
		for _, edge := range module.Imports {
			if dep, ok := index[edge.Resolved]; ok {
				graph.AddEdge(dep, dag.ModuleID(i)) // #nosec G115
			}
		}
	}
	return dag.ToposortKahn(graph)
}

// Node returns the module at the given path, if loaded.
func (g *ModuleGraph) Node(path string) (*ModuleNode, bool) {
	key := normalize(path)
	for i := range g.Modules {
		if g.Modules[i].Path == key {
			return &g.Modules[i], true
		}
	}
	return nil, false
}

// Locate maps a byte offset in the combined source back to its file.
func (r *Result) Locate(offset int) (SourcePart, bool) {
	for _, part := range r.Parts {
		if offset >= part.Start && offset < part.End {
			return part, true
		}
	}
	return SourcePart{}, false
}

func normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.ToSlash(filepath.Clean(path))
}

// resolveImportPath appends the raw path to the importer's directory,
// adds the canonical extension when missing, searches up the directory
// tree a bounded number of levels, and finally tries any configured
// import roots.
func resolveImportPath(baseDir, raw string, roots []string) (string, bool) {
	candidate := raw
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, raw)
	}
	if filepath.Ext(candidate) == "" {
		candidate += ".kooix"
	}
	if fileExists(candidate) {
		return candidate, true
	}
	if filepath.IsAbs(raw) {
		return "", false
	}

	withExt := raw
	if filepath.Ext(withExt) == "" {
		withExt += ".kooix"
	}
	dir := baseDir
	for level := 0; level < upwardSearchLevels; level++ {
		dir = filepath.Join(dir, "..")
		candidate := filepath.Join(dir, withExt)
		if fileExists(candidate) {
			return candidate, true
		}
	}

	for _, root := range roots {
		candidate := filepath.Join(root, withExt)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// scanImports walks the token stream at nesting depth zero collecting
// import directives without building a full AST.
type importSpec struct {
	Path  string
	Alias string
	Span  source.Span
}

func scanImports(file *source.File, reporter diag.Reporter) ([]importSpec, bool) {
	toks := lexer.Tokenize(file, lexer.Options{Reporter: reporter})

	var specs []importSpec
	depth := 0
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.Kind {
		case token.LBrace, token.LParen, token.LBracket:
			depth++
		case token.RBrace, token.RParen, token.RBracket:
			if depth > 0 {
				depth--
			}
		case token.KwImport:
			if depth != 0 {
				continue
			}
			spec, next, ok := parseImportDirective(toks, i, reporter)
			if !ok {
				return nil, false
			}
			specs = append(specs, spec)
			i = next - 1
		}
	}
	return specs, true
}

func parseImportDirective(toks []token.Token, at int, reporter diag.Reporter) (importSpec, int, bool) {
	spanOf := toks[at].Span

	if at+1 >= len(toks) || toks[at+1].Kind != token.StringLit {
		diag.Error(reporter, diag.SynImportBadPath, spanOf,
			"import expects a string literal path")
		return importSpec{}, 0, false
	}
	spec := importSpec{Path: toks[at+1].Text, Span: spanOf.Cover(toks[at+1].Span)}

	next := at + 2
	if next < len(toks) && toks[next].Kind == token.KwAs {
		if next+1 >= len(toks) || toks[next+1].Kind != token.Ident {
			diag.Error(reporter, diag.SynImportBadAlias, spanOf,
				"import expects an identifier after 'as'")
			return importSpec{}, 0, false
		}
		spec.Alias = toks[next+1].Text
		next += 2
	}

	if next >= len(toks) || toks[next].Kind != token.Semicolon {
		diag.Error(reporter, diag.SynExpectSemicolon, spanOf,
			"import declaration must end with ';'")
		return importSpec{}, 0, false
	}
	return spec, next + 1, true
}
