// Package snimage reads and writes strong-name module images: the on-disk
// binary container for one compiled module, its signing identity, the
// references it declares toward other modules, and the trust declarations
// it extends to them.
package snimage

import (
	"strings"
)

// Image is the parsed, in-memory form of one module file. Identity fields
// and reference tokens are mutable in place; Payload is the opaque module
// body and is carried through a rewrite untouched.
type Image struct {
	// Name is the module's declared identity name, unique within a load set.
	Name string
	// PublicKey is the full signing key blob. A module is strong-named iff
	// this is non-empty.
	PublicKey []byte
	// PublicKeyToken is the short token derived from PublicKey.
	PublicKeyToken []byte
	// Signed reports whether the image carries a signature over its body.
	Signed bool

	// Refs are the outgoing reference descriptors, in declaration order.
	Refs []*AssemblyRef
	// Trusts are the trust declarations this module extends to others.
	Trusts []*TrustDecl

	// Payload is the module body. It is owned by the Image and released
	// by Close.
	Payload []byte
}

// AssemblyRef is one outgoing reference descriptor: the target module's
// name plus the public-key token the target is expected to carry.
type AssemblyRef struct {
	Name           string
	PublicKeyToken []byte
}

// TrustDecl is a trust declaration toward another module. Its single
// argument encodes an assembly-qualified name, either a bare name
// ("Friend") or a name qualified with key material
// ("Friend, PublicKey=0024...").
type TrustDecl struct {
	Argument string
}

// TargetName returns the declaration's target module name: the text before
// the first comma of the argument, trimmed of surrounding whitespace.
func (d *TrustDecl) TargetName() string {
	name, _, _ := strings.Cut(d.Argument, ",")
	return strings.TrimSpace(name)
}

// StripKey rewrites the declaration to name its target without any key
// qualification. Already-bare declarations are normalized to the trimmed
// name.
func (d *TrustDecl) StripKey() {
	d.Argument = d.TargetName()
}

// StrongNamed reports whether the image carries a strong-name identity.
func (i *Image) StrongNamed() bool {
	return len(i.PublicKey) > 0
}

// StripIdentity removes the image's strong-name identity: the public key,
// the derived token, and the signed flag.
func (i *Image) StripIdentity() {
	i.PublicKey = nil
	i.PublicKeyToken = nil
	i.Signed = false
}

// RefTo returns the first outgoing reference descriptor whose target name
// equals name, or nil if the image declares no such reference.
func (i *Image) RefTo(name string) *AssemblyRef {
	for _, r := range i.Refs {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// TrustOf returns the first trust declaration whose target name matches
// name case-insensitively, or nil.
func (i *Image) TrustOf(name string) *TrustDecl {
	for _, d := range i.Trusts {
		if strings.EqualFold(d.TargetName(), name) {
			return d
		}
	}
	return nil
}

// Close releases the image's payload buffer. It is safe to call more than
// once; the image must not be saved after closing.
func (i *Image) Close() error {
	i.Payload = nil
	return nil
}
