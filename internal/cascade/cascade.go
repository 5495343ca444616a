// Package cascade implements the identity-stripping propagation: starting
// from one patched module, it walks incoming reference and trust edges
// breadth-first, strips each reached module's strong name exactly once and
// rewrites every edge that pointed at it.
package cascade

import (
	"context"
	"fmt"

	"github.com/fortender/StrongNameRemover/internal/ctxlog"
	"github.com/fortender/StrongNameRemover/internal/graph"
)

// Run executes one cascade from root over the shared graph. A module whose
// Changed flag is already set (from an earlier root's cascade) stops the
// walk at that point; its dependents were rewritten when it was first
// stripped. The per-run visited set is separate from Changed so that a
// cycle back into a node stripped during this same run also terminates.
//
// The returned error is a graph-consistency violation: an incoming
// reference edge whose source no longer carries a matching descriptor.
// The builder recorded that edge from the descriptor, so its absence means
// the graph is corrupt and the whole run must stop.
func Run(ctx context.Context, root *graph.Node) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Cascade started.", "root", root.FileName())

	visited := make(map[*graph.Node]struct{})
	queue := []*graph.Node{root}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		if n.Changed {
			continue
		}
		if _, seen := visited[n]; seen {
			continue
		}
		visited[n] = struct{}{}

		n.Image.StripIdentity()
		n.Changed = true
		logger.Debug("Identity stripped.", "module", n.Name(), "path", n.Path)

		// Rewrite happens before the source is dequeued for its own
		// stripping; the cascade must run to exhaustion for the two to
		// stay consistent.
		for srcPath, src := range n.IncomingRefs {
			ref := src.Image.RefTo(n.Name())
			if ref == nil {
				return fmt.Errorf("cascade: %s records a reference edge from %s but %s carries no descriptor targeting %q",
					n.Path, srcPath, srcPath, n.Name())
			}
			ref.PublicKeyToken = nil
			queue = append(queue, src)
		}

		for srcPath, src := range n.IncomingTrusts {
			decl := src.Image.TrustOf(n.Name())
			if decl == nil {
				return fmt.Errorf("cascade: %s records a trust edge from %s but %s carries no declaration targeting %q",
					n.Path, srcPath, srcPath, n.Name())
			}
			decl.StripKey()
			queue = append(queue, src)
		}
	}

	logger.Debug("Cascade finished.", "root", root.FileName(), "stripped", len(visited))
	return nil
}
