// Package analyze wires the trait factory, the builder and the processing
// pipeline into the single entry operation: filesystem roots or in-memory
// sources in, a fully processed tree root out. One session per run, nothing
// is reused.
package analyze

import (
	"fmt"
	"sort"

	"docgraph/internal/builder"
	"docgraph/internal/config"
	"docgraph/internal/ext"
	"docgraph/internal/model"
	"docgraph/internal/pipeline"
)

type Session struct {
	Config  *config.Config
	Factory *ext.Factory
	Builder *builder.Builder

	roots     []string
	processed bool
}

func NewSession(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	factory := ext.NewFactory()
	if cfg.LoadOptionalExtensions {
		if err := ext.LoadOptional(factory); err != nil {
			return nil, err
		}
	}
	excludes, err := cfg.CompiledExcludes()
	if err != nil {
		return nil, err
	}
	b := builder.New(factory, builder.Options{
		IntrospectCompiled: cfg.IntrospectCompiled,
		Exclude:            excludes,
	})
	return &Session{Config: cfg, Factory: factory, Builder: b}, nil
}

func (s *Session) AddRoot(path string) error {
	if err := s.Builder.AddRoot(path); err != nil {
		return err
	}
	s.roots = append(s.roots, path)
	return nil
}

func (s *Session) AddSource(name string, src []byte) *model.Module {
	s.roots = append(s.roots, "<"+name+">")
	return s.Builder.AddSource(name, src)
}

// Roots lists what was added, for run bookkeeping.
func (s *Session) Roots() []string { return s.roots }

// Run builds every module to the global fixed point, then runs the
// processing passes including any the loaded traits contribute. A session
// runs once.
func (s *Session) Run() (*model.TreeRoot, error) {
	if s.processed {
		return nil, fmt.Errorf("session already ran, start a fresh one")
	}
	s.processed = true

	if err := s.Builder.BuildAll(); err != nil {
		return nil, err
	}
	proc := pipeline.New(s.Factory.Passes()...)
	if err := proc.Process(s.Builder.Root); err != nil {
		return nil, err
	}
	return s.Builder.Root, nil
}

// BuildSources is the one-shot convenience used by tests and the --source
// flag: named in-memory modules in, processed root out.
func BuildSources(cfg *config.Config, sources map[string]string) (*model.TreeRoot, error) {
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		session.AddSource(name, []byte(sources[name]))
	}
	return session.Run()
}
