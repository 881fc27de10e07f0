package driver

import (
	"context"
	goruntime "runtime"

	"golang.org/x/sync/errgroup"

	"kooix/internal/diag"
	"kooix/internal/diagfmt"
	"kooix/internal/loader"
	"kooix/internal/modcache"
	"kooix/internal/modcheck"
	"kooix/internal/sema"
	"kooix/internal/source"
)

// ModuleDiagnostic is the stable JSON shape of one diagnostic.
type ModuleDiagnostic struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
	File     string `json:"file"`
	Line     uint32 `json:"line"`
	Col      uint32 `json:"col"`
	Code     string `json:"code"`
}

// ModuleResult is one module's verdict.
type ModuleResult struct {
	Path        string             `json:"path"`
	Diagnostics []ModuleDiagnostic `json:"diagnostics"`
}

// ModulesReport is the check-modules result; its keys (ok, modules,
// errors) are a stable machine interface.
type ModulesReport struct {
	OK      bool               `json:"ok"`
	Modules []ModuleResult     `json:"modules"`
	Errors  []ModuleDiagnostic `json:"errors"`
}

// ModulesOptions configure a module-aware check.
type ModulesOptions struct {
	StrictWarnings bool
	Jobs           int              // 0 means GOMAXPROCS
	Cache          *modcache.Cache  // nil disables the disk cache
}

// CheckModules runs the module-aware semantic check: per-file programs,
// qualified-name rewriting against the export index, and semantic
// analysis per module. Topologically independent modules inside one
// import wave are diagnosed concurrently, each goroutine filling its own
// slot; results merge back in module-graph order so output stays
// deterministic.
func (s *Session) CheckModules(entry string, opts ModulesOptions) *ModulesReport {
	report := &ModulesReport{}

	result, modules, ok := loader.LoadModulesWithOptions(s.FileSet, entry, s.Reporter, 0,
		loader.Options{ImportRoots: s.ImportRoots})
	if !ok {
		for i := range s.Bag().Items() {
			report.Errors = append(report.Errors, s.renderDiagnostic(&s.Bag().Items()[i]))
		}
		return report
	}

	// Partition load/parse diagnostics onto their modules; spanless
	// loader diagnostics stay global.
	fileToModule := make(map[source.FileID]int, len(modules))
	for i, module := range modules {
		fileToModule[module.FileID] = i
	}
	moduleBags := make([]*diag.Bag, len(modules))
	for i := range moduleBags {
		moduleBags[i] = diag.NewBag(maxDiagnostics)
	}
	for _, d := range s.Bag().Items() {
		if idx, ok := fileToModule[d.Primary.File]; ok {
			moduleBags[idx].Add(d)
		} else {
			report.Errors = append(report.Errors, s.renderDiagnostic(&d))
		}
	}

	exports := modcheck.BuildExportIndex(modules)

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = goruntime.GOMAXPROCS(0)
	}

	topo := result.Graph.Toposort()
	for _, batch := range topo.Batches {
		g, _ := errgroup.WithContext(context.Background())
		g.SetLimit(min(jobs, len(batch)))

		for _, id := range batch {
			index := int(id)
			g.Go(func() error {
				s.diagnoseModule(modules[index], result.Graph, exports, moduleBags[index], opts.Cache)
				return nil
			})
		}
		// The group's workers never return errors; Wait is the batch
		// barrier that keeps dependency order.
		_ = g.Wait()
	}

	hasErrors := len(report.Errors) > 0
	hasWarnings := false
	for i, module := range modules {
		bag := moduleBags[i]
		bag.Sort()
		moduleResult := ModuleResult{Path: module.Path, Diagnostics: []ModuleDiagnostic{}}
		for j := range bag.Items() {
			moduleResult.Diagnostics = append(moduleResult.Diagnostics, s.renderDiagnostic(&bag.Items()[j]))
		}
		if bag.HasErrors() {
			hasErrors = true
		}
		if bag.HasWarnings() {
			hasWarnings = true
		}
		report.Modules = append(report.Modules, moduleResult)
	}

	report.OK = !hasErrors && (!opts.StrictWarnings || !hasWarnings)
	return report
}

// diagnoseModule checks one module in isolation. A cache hit for an
// unchanged, previously clean module skips analysis entirely; anything
// with diagnostics is always re-analyzed so cached runs produce identical
// output. Only modules without imports use the cache, because the verdict
// of an importing module also depends on the files it imports.
func (s *Session) diagnoseModule(module loader.LoadedModule, graph *loader.ModuleGraph, exports *modcheck.ExportIndex, bag *diag.Bag, cache *modcache.Cache) {
	if bag.HasErrors() {
		return // parse already failed; sema would only cascade
	}

	hash := s.FileSet.Get(module.FileID).Hash
	cacheable := len(module.Program.Imports()) == 0
	if cacheable {
		if cached, ok := cache.Get(hash); ok && !cached.Broken && cached.ErrorCount == 0 && cached.WarningCount == 0 {
			return
		}
	}

	reporter := &diag.BagReporter{Bag: bag}
	modcheck.Prepare(module, graph, exports, reporter)
	sema.Check(module.Program, reporter)

	if cacheable && !bag.HasErrors() && !bag.HasWarnings() && bag.Len() == 0 {
		_ = cache.Put(hash, &modcache.Payload{Path: module.Path})
	}
}

func (s *Session) renderDiagnostic(d *diag.Diagnostic) ModuleDiagnostic {
	pos := diagfmt.Resolve(s.FileSet, d)
	return ModuleDiagnostic{
		Severity: d.Severity.Label(),
		Message:  d.Message,
		File:     pos.File,
		Line:     pos.Line,
		Col:      pos.Col,
		Code:     d.Code.String(),
	}
}
