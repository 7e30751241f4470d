// # cmd/docgraph/main.go
package main

import (
	"docgraph/internal/config"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

var (
	configPath = flag.String("config", "./docgraph.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single analysis and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	jsonOut    = flag.Bool("json", false, "Emit the graph as JSON instead of a text tree")
	outPath    = flag.String("output", "", "Write the rendered graph to a file instead of stdout")
	storePath  = flag.String("store", "", "Persist each run to a sqlite database at this path")
	lookup     = flag.String("lookup", "", "Look up a qualified name in the latest stored run and exit")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")

	sources stringList
)

const VERSION = "1.0.0"

func main() {
	flag.Var(&sources, "source", "Analyze a single Python file as an in-memory module (repeatable)")
	flag.Parse()

	if *version {
		fmt.Printf("docgraph v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
			if err == nil {
				output = f
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		cfg.Roots = flag.Args()
	}
	if *jsonOut {
		cfg.Output.Format = "json"
	}
	if *outPath != "" {
		cfg.Output.Path = *outPath
	}
	if *storePath != "" {
		cfg.Store.Enabled = true
		cfg.Store.Path = *storePath
	}

	app, err := NewApp(cfg, sources)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *lookup != "" {
		out, err := app.LookupStored(*lookup)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(out)
		return
	}

	if len(cfg.Roots) == 0 && len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "nothing to analyze: pass a root directory, a .py file or --source")
		os.Exit(1)
	}

	app.StartMetrics()

	if err := app.Analyze(); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	// In-memory sources have nothing to watch.
	if *once || len(cfg.Roots) == 0 {
		return
	}

	// Watch mode
	if err := app.StartWatcher(); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "docgraph", "docgraph.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "docgraph", "docgraph.log")
	}

	return "docgraph.log"
}
