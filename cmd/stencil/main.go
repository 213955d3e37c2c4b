package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/stencil/gcheap"
	"github.com/wippyai/stencil/heap"
	"github.com/wippyai/stencil/internal/config"
	"github.com/wippyai/stencil/internal/fixture"
	"github.com/wippyai/stencil/script"
)

func main() {
	var (
		fixtureFile = flag.String("fixture", "", "Path to fixture TOML file")
		configFile  = flag.String("config", "", "Path to stencil.toml (optional)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		dump        = flag.Bool("dump", false, "Hex dump packed script data")
	)
	flag.Parse()

	if *fixtureFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: stencil -fixture <file.toml> [-config stencil.toml] [-dump]")
		fmt.Fprintln(os.Stderr, "       stencil -fixture <file.toml> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*fixtureFile, *configFile, *interactive, *dump); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(fixtureFile, configFile string, interactive, dump bool) error {
	ctx := context.Background()

	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
	}

	log, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	heap.SetLogger(log)
	script.SetLogger(log)

	res, err := finalize(ctx, cfg, log, fixtureFile)
	if err != nil {
		return err
	}
	defer res.close(ctx)

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		return runInteractive(fixtureFile, res, dump)
	}

	return writeReport(os.Stdout, fixtureFile, res, dump)
}

// result is a finalized fixture with the storage backing it.
type result struct {
	top       *script.Script
	heap      config.Heap
	cells     *gcheap.Table
	closeHeap func(context.Context) error
}

func (r *result) close(ctx context.Context) {
	_ = r.cells.Close()
	_ = r.closeHeap(ctx)
}

func finalize(ctx context.Context, cfg *config.Config, log *zap.Logger, fixtureFile string) (*result, error) {
	f, err := fixture.Load(fixtureFile)
	if err != nil {
		return nil, err
	}
	comp := f.Build()

	h, closeHeap, err := cfg.OpenHeap(ctx)
	if err != nil {
		return nil, fmt.Errorf("open heap: %w", err)
	}
	cells := cfg.CellTable()

	b := script.NewBuilder(comp, h, h, cells, cfg.BuilderOptions(log))
	top, err := b.FinalizeTree(ctx, comp.TopLevel())
	if err != nil {
		_ = cells.Close()
		_ = closeHeap(ctx)
		return nil, err
	}

	return &result{top: top, heap: h, cells: cells, closeHeap: closeHeap}, nil
}
