// # cmd/docgraph/app.go
package main

import (
	"docgraph/internal/analyze"
	"docgraph/internal/config"
	"docgraph/internal/model"
	"docgraph/internal/output"
	"docgraph/internal/store"
	"docgraph/internal/watcher"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	Config  *config.Config
	Store   *store.Store
	sources []string

	teaProgram *tea.Program
	analyzeMu  sync.Mutex
}

func NewApp(cfg *config.Config, sources []string) (*App, error) {
	a := &App{Config: cfg, sources: sources}

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		a.Store = st
	}

	return a, nil
}

// Analyze runs one full build-and-process cycle on a fresh session and
// emits every configured output. Safe to call again from the watcher.
func (a *App) Analyze() error {
	a.analyzeMu.Lock()
	defer a.analyzeMu.Unlock()

	start := time.Now()

	session, err := analyze.NewSession(a.Config)
	if err != nil {
		return err
	}
	for _, root := range a.Config.Roots {
		if err := session.AddRoot(root); err != nil {
			return err
		}
	}
	for _, path := range a.sources {
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), ".py")
		session.AddSource(name, src)
	}

	root, err := session.Run()
	if err != nil {
		return err
	}

	if err := a.emitOutputs(root); err != nil {
		return err
	}

	if a.Store != nil {
		runID, err := a.Store.SaveRun(root, session.Roots())
		if err != nil {
			slog.Error("failed to persist run", "error", err)
		} else {
			slog.Info("run persisted", "run_id", runID)
		}
	}

	a.printSummary(root, time.Since(start))

	if a.teaProgram != nil {
		a.teaProgram.Send(snapshotFromRoot(root))
	}

	return nil
}

func (a *App) emitOutputs(root *model.TreeRoot) error {
	var rendered string
	var err error

	switch a.Config.Output.Format {
	case "json":
		gen := output.NewJSONGenerator(root)
		rendered, err = gen.Generate()
	case "dot":
		gen := output.NewDOTGenerator(root)
		rendered, err = gen.Generate()
	case "tsv":
		gen := output.NewTSVGenerator(root)
		rendered, err = gen.Generate()
	default:
		gen := output.NewTreeGenerator(root)
		rendered, err = gen.Generate()
	}
	if err != nil {
		return err
	}

	if a.Config.Output.Path != "" {
		return os.WriteFile(a.Config.Output.Path, []byte(rendered), 0644)
	}
	if a.teaProgram == nil {
		fmt.Print(rendered)
	}
	return nil
}

func (a *App) printSummary(root *model.TreeRoot, duration time.Duration) {
	warnings := 0
	for _, d := range root.Diagnostics() {
		if d.Severity >= model.SeverityWarning {
			warnings++
		}
	}

	slog.Info("analysis complete",
		"modules", len(root.RootModules),
		"objects", root.AllObjects.Len(),
		"warnings", warnings,
		"duration", duration,
	)

	for _, d := range root.Diagnostics() {
		if d.Severity >= model.SeverityWarning {
			slog.Warn(d.Message, "object", d.Object, "location", d.Location.String())
		}
	}
}

func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))
	if err := a.Analyze(); err != nil {
		slog.Error("re-analysis failed", "error", err)
	}
}

func (a *App) StartWatcher() error {
	excludes, err := a.Config.CompiledExcludes()
	if err != nil {
		return err
	}
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, excludes, a.HandleChanges)
	if err != nil {
		return err
	}
	// Runs for the lifetime of the process, never closed.
	return w.Watch(a.Config.Roots)
}

func (a *App) StartMetrics() {
	if !a.Config.Metrics.Enabled {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	slog.Info("metrics server starting", "addr", a.Config.Metrics.Address)
	go func() {
		if err := http.ListenAndServe(a.Config.Metrics.Address, mux); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}

// LookupStored resolves a qualified name against the most recent persisted
// run, shadowed definitions included.
func (a *App) LookupStored(fullName string) (string, error) {
	if a.Store == nil {
		return "", fmt.Errorf("no store configured: pass --store or enable it in the config")
	}

	run, err := a.Store.LatestRun()
	if err != nil {
		return "", err
	}
	if run == nil {
		return "", fmt.Errorf("store holds no runs yet, analyze something first")
	}
	records, err := a.Store.Lookup(run.ID, fullName)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", fmt.Errorf("no object named %s in run %s", fullName, run.ID)
	}

	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "%s %s", rec.Kind, rec.FullName)
		if rec.File != "" {
			fmt.Fprintf(&b, "  %s:%d", rec.File, rec.Line)
		}
		if rec.Shadowed {
			b.WriteString("  (shadowed)")
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func (a *App) RunUI() error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	// Replay the initial analysis into the UI once it is up.
	go func() {
		if err := a.Analyze(); err != nil {
			slog.Error("analysis failed", "error", err)
		}
	}()

	_, err := p.Run()
	return err
}

func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
