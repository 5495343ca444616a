// Package graph builds the module reference graph: one node per loaded
// module image, linked by assembly-reference and trust-declaration edges.
package graph

import (
	"context"

	"github.com/fortender/StrongNameRemover/internal/ctxlog"
	"github.com/fortender/StrongNameRemover/internal/snimage"
)

// Loader parses one module file. Implemented by snimage.Load.
type Loader interface {
	Load(path string) (*snimage.Image, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(path string) (*snimage.Image, error)

// Load implements Loader.
func (f LoaderFunc) Load(path string) (*snimage.Image, error) {
	return f(path)
}

// Build loads every candidate file and links the resulting nodes into a
// fully connected reference graph. Files that fail to parse are skipped
// with a diagnostic; they end up neither as nodes nor as edges. Reference
// and trust targets that resolve to nothing live outside the load set and
// are likewise dropped.
func Build(ctx context.Context, loader Loader, paths []string) []*Node {
	logger := ctxlog.FromContext(ctx)

	var nodes []*Node
	// A name may be shared by duplicate-named files; every node carrying
	// the name is treated as an alias during edge construction.
	byName := make(map[string][]*Node)
	for _, path := range paths {
		img, err := loader.Load(path)
		if err != nil {
			logger.Debug("Skipping unreadable module.", "path", path, "error", err)
			continue
		}
		n := NewNode(img, path)
		nodes = append(nodes, n)
		byName[n.Name()] = append(byName[n.Name()], n)
	}
	logger.Debug("Modules loaded.", "count", len(nodes))

	for _, n := range nodes {
		for _, ref := range n.Image.Refs {
			for _, target := range byName[ref.Name] {
				target.IncomingRefs[n.Path] = n
			}
		}
		for _, decl := range n.Image.Trusts {
			for _, target := range byName[decl.TargetName()] {
				target.IncomingTrusts[n.Path] = n
			}
		}
	}

	return nodes
}
