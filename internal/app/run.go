package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fortender/StrongNameRemover/internal/cascade"
	"github.com/fortender/StrongNameRemover/internal/ctxlog"
	"github.com/fortender/StrongNameRemover/internal/fsutil"
	"github.com/fortender/StrongNameRemover/internal/graph"
	"github.com/fortender/StrongNameRemover/internal/snimage"
)

// Run executes the main application logic based on the App's configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	paths, err := fsutil.ListByExtension(a.config.InputDir, a.config.Extension)
	if err != nil {
		return fmt.Errorf("failed to list module directory: %w", err)
	}
	a.logger.Debug("Module candidates found.", "count", len(paths), "dir", a.config.InputDir)

	nodes := graph.Build(ctx, graph.LoaderFunc(snimage.Load), paths)
	// Every loaded image holds a payload buffer; release all of them on
	// every exit path, including early returns below.
	defer func() {
		for _, n := range nodes {
			n.Image.Close()
		}
	}()
	a.logger.Info("Reference graph built.", "modules", len(nodes))

	roots := rootNodes(nodes, a.config.Marker)
	if len(roots) == 0 {
		a.logger.Warn("No patched root modules found, nothing to strip.", "marker", a.config.Marker)
	}
	for _, root := range roots {
		a.logger.Info("Stripping from patched module.", "root", root.FileName())
		if err := cascade.Run(ctx, root); err != nil {
			return fmt.Errorf("cascade from %s failed: %w", root.FileName(), err)
		}
	}

	if err := a.writeResults(ctx, nodes); err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// rootNodes selects the cascade roots: every node whose source file name
// contains the marker substring.
func rootNodes(nodes []*graph.Node, marker string) []*graph.Node {
	var roots []*graph.Node
	for _, n := range nodes {
		if strings.Contains(n.FileName(), marker) {
			roots = append(roots, n)
		}
	}
	return roots
}

// writeResults serializes every changed node into the output directory
// under its original file name and reports untouched nodes as no-ops. The
// first write failure aborts the run; files already written stay.
func (a *App) writeResults(ctx context.Context, nodes []*graph.Node) error {
	logger := ctxlog.FromContext(ctx)

	if err := os.MkdirAll(a.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	written := 0
	for _, n := range nodes {
		if !n.Changed {
			logger.Info("No changes.", "module", n.FileName())
			continue
		}
		outPath := filepath.Join(a.config.OutputDir, n.FileName())
		if err := n.Image.Save(outPath); err != nil {
			return fmt.Errorf("failed to write %s: %w", n.FileName(), err)
		}
		logger.Info("Stripped module written.", "module", n.FileName(), "path", outPath)
		written++
	}
	logger.Info("Run complete.", "written", written, "unchanged", len(nodes)-written)
	return nil
}
