package graph

import (
	"path/filepath"

	"github.com/fortender/StrongNameRemover/internal/snimage"
)

// Node wraps one loaded module image together with the incoming edges other
// modules declare toward it. Incoming maps are keyed by the source node's
// file path, which is unique within a load set and doubles as the edge
// de-duplication key.
type Node struct {
	// Image is the module record this node owns for the run's duration.
	Image *snimage.Image
	// Path is the source file path the image was loaded from.
	Path string

	// IncomingRefs maps source path to the node that declares an assembly
	// reference toward this node.
	IncomingRefs map[string]*Node
	// IncomingTrusts maps source path to the node that declares a trust
	// relationship toward this node.
	IncomingTrusts map[string]*Node

	// Changed flips to true exactly once, when this node's identity is
	// stripped. It is the single signal that the module must be written.
	Changed bool
}

// NewNode wraps an image loaded from path.
func NewNode(img *snimage.Image, path string) *Node {
	return &Node{
		Image:          img,
		Path:           path,
		IncomingRefs:   make(map[string]*Node),
		IncomingTrusts: make(map[string]*Node),
	}
}

// Name returns the module's declared identity name.
func (n *Node) Name() string {
	return n.Image.Name
}

// FileName returns the base name of the node's source file, which is also
// its name in the output directory.
func (n *Node) FileName() string {
	return filepath.Base(n.Path)
}
