// Package builder turns source trees into the entity graph. Discovery first
// registers a module stub for every source unit, then BuildAll drives each
// module through the unbuilt/building/built machine, recursing on demand when
// a wildcard re-export needs another module's exports first.
package builder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"docgraph/internal/astx"
	"docgraph/internal/ext"
	"docgraph/internal/model"
	"docgraph/internal/observability"
)

type buildState int

const (
	stateUnbuilt buildState = iota
	stateBuilding
	stateBuilt
)

// compiledSuffixes are the opaque unit extensions picked up when compiled
// introspection is enabled.
var compiledSuffixes = []string{".so", ".pyd", ".pyc"}

type Options struct {
	// IntrospectCompiled registers opaque compiled units as module stubs
	// instead of skipping them.
	IntrospectCompiled bool
	Exclude            []glob.Glob
}

type Builder struct {
	Root    *model.TreeRoot
	Factory *ext.Factory

	opts    Options
	states  map[*model.Module]buildState
	sources map[*model.Module][]byte
	// order preserves discovery order so builds are deterministic
	order []*model.Module
}

func New(factory *ext.Factory, opts Options) *Builder {
	return &Builder{
		Root:    factory.TreeRoot(),
		Factory: factory,
		opts:    opts,
		states:  make(map[*model.Module]buildState),
		sources: make(map[*model.Module][]byte),
	}
}

// AddRoot discovers one filesystem root: a package directory or a single
// source file. Discovery registers stubs only; no source is parsed until
// BuildAll.
func (b *Builder) AddRoot(path string) error {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("adding root %s: %w", path, err)
	}
	if info.IsDir() {
		b.addPackage(nil, path)
		return nil
	}
	if !strings.HasSuffix(path, ".py") {
		return fmt.Errorf("adding root %s: not a source file or directory", path)
	}
	b.addSourceModule(nil, path)
	return nil
}

// AddSource registers an in-memory module, used by tests and the --source
// flag.
func (b *Builder) AddSource(name string, src []byte) *model.Module {
	mod := b.newModule(nil, name, "<"+name+">", false, false)
	b.sources[mod] = src
	observability.ModulesAdded.WithLabelValues("memory").Inc()
	return mod
}

func (b *Builder) addPackage(parent *model.Module, dir string) {
	if b.excluded(dir) {
		return
	}
	initPath := filepath.Join(dir, "__init__.py")
	if _, err := os.Stat(initPath); err != nil {
		slog.Debug("skipping directory without package marker", "dir", dir)
		return
	}

	pkg := b.newModule(parent, filepath.Base(dir), initPath, true, false)
	if pkg == nil {
		return
	}
	observability.ModulesAdded.WithLabelValues("package").Inc()

	entries, err := os.ReadDir(dir)
	if err != nil {
		b.Root.ReportWarning(pkg, "cannot list package directory: %v", err)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			b.addPackage(pkg, full)
			continue
		}
		if b.excluded(full) {
			continue
		}
		switch {
		case entry.Name() == "__init__.py":
			// the package's own source, already claimed
		case strings.HasSuffix(entry.Name(), ".py"):
			b.addSourceModule(pkg, full)
		case b.opts.IntrospectCompiled && hasCompiledSuffix(entry.Name()):
			b.addCompiledModule(pkg, full)
		}
	}
}

func (b *Builder) addSourceModule(parent *model.Module, path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".py")
	if mod := b.newModule(parent, name, path, false, false); mod != nil {
		observability.ModulesAdded.WithLabelValues("module").Inc()
	}
}

func (b *Builder) addCompiledModule(parent *model.Module, path string) {
	name := filepath.Base(path)
	name = name[:strings.IndexByte(name, '.')]
	if mod := b.newModule(parent, name, path, false, true); mod != nil {
		observability.ModulesAdded.WithLabelValues("compiled").Inc()
	}
}

// newModule registers one module stub, applying the duplicate tie-breaks: a
// package always beats a same-named plain module, a compiled unit beats a
// same-named source module, later discoveries lose otherwise.
func (b *Builder) newModule(parent *model.Module, name, sourcePath string, isPackage, isCompiled bool) *model.Module {
	if existing := b.findModule(parent, name); existing != nil {
		if !supersedes(isPackage, isCompiled, existing) {
			slog.Debug("duplicate module discovery ignored", "module", name, "path", sourcePath)
			return nil
		}
		b.dropModule(existing)
	}

	mod := b.Factory.Module(name, model.Location{Filename: sourcePath, Line: 0})
	mod.IsPackage = isPackage
	mod.IsCompiled = isCompiled
	mod.SourcePath = sourcePath
	if parent != nil {
		b.Root.Add(mod, parent)
	} else {
		b.Root.Add(mod, nil)
	}
	b.states[mod] = stateUnbuilt
	b.order = append(b.order, mod)
	return mod
}

func supersedes(isPackage, isCompiled bool, existing *model.Module) bool {
	if isPackage != existing.IsPackage {
		return isPackage
	}
	if isCompiled != existing.IsCompiled {
		return isCompiled
	}
	return false
}

func (b *Builder) dropModule(mod *model.Module) {
	b.Root.Remove(mod)
	delete(b.states, mod)
	delete(b.sources, mod)
	for i, m := range b.order {
		if m == mod {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *Builder) findModule(parent *model.Module, name string) *model.Module {
	if parent != nil {
		mod, _ := parent.GetMember(name).(*model.Module)
		return mod
	}
	for _, mod := range b.Root.RootModules {
		if mod.Name() == name {
			return mod
		}
	}
	return nil
}

func (b *Builder) excluded(path string) bool {
	for _, g := range b.opts.Exclude {
		if g.Match(path) || g.Match(filepath.Base(path)) {
			return true
		}
	}
	return false
}

func hasCompiledSuffix(name string) bool {
	for _, suffix := range compiledSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// BuildAll drives every discovered module to the built state. Building never
// fails on source-level problems, those become diagnostics; only I/O and
// parser initialization errors surface here.
func (b *Builder) BuildAll() error {
	for {
		mod := b.nextUnbuilt()
		if mod == nil {
			return nil
		}
		if err := b.buildModule(mod); err != nil {
			return err
		}
	}
}

func (b *Builder) nextUnbuilt() *model.Module {
	for _, mod := range b.order {
		if b.states[mod] == stateUnbuilt {
			return mod
		}
	}
	return nil
}

func (b *Builder) buildModule(mod *model.Module) error {
	b.states[mod] = stateBuilding
	defer func() {
		b.states[mod] = stateBuilt
		observability.ModulesProcessed.Inc()
	}()

	if mod.IsCompiled {
		// opaque unit: registered as a stub, nothing to traverse
		return nil
	}

	src, ok := b.sources[mod]
	if !ok {
		var err error
		src, err = os.ReadFile(mod.SourcePath)
		if err != nil {
			return fmt.Errorf("building module %s: %w", mod.FullName(), err)
		}
	}

	start := time.Now()
	tree, err := astx.Parse(src, mod.SourcePath)
	if err != nil {
		return fmt.Errorf("building module %s: %w", mod.FullName(), err)
	}
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	mod.RawTree = tree

	c := newCollector(b, mod, tree)
	c.collect()
	slog.Debug("module built", "module", mod.FullName(), "members", len(mod.Members()))
	return nil
}

// exportsOf returns the names `from name import *` binds, building the
// target first when needed. A target still mid-build is a cycle: the export
// list degrades to syntax-level inference with a diagnostic on the importer.
func (b *Builder) exportsOf(name string, importer *model.Module) []string {
	target, _ := b.Root.AllObjects.Get(name).(*model.Module)
	if target == nil {
		return nil
	}
	switch b.states[target] {
	case stateBuilt:
		return target.ExportedNames()
	case stateUnbuilt:
		if err := b.buildModule(target); err != nil {
			b.Root.ReportWarning(importer, "cannot build %s for wildcard import: %v", name, err)
			return nil
		}
		return target.ExportedNames()
	default:
		b.Root.ReportWarning(importer,
			"cyclic wildcard import of %s, falling back to syntax-level export inference", name)
		if target.RawTree == nil {
			return nil
		}
		return astx.WildcardNames(target.RawTree)
	}
}
