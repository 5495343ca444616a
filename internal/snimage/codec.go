package snimage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// On-disk layout (little-endian): magic, format version, a flags byte,
// then the identity, reference and trust tables, then the raw payload.
// Strings and blobs are length-prefixed.

var magic = [4]byte{'S', 'N', 'I', 'M'}

const formatVersion uint16 = 1

const flagSigned byte = 1 << 0

var (
	// ErrBadMagic is returned when a file does not start with the module
	// image magic.
	ErrBadMagic = errors.New("snimage: bad magic")
	// ErrBadVersion is returned for a magic-valid file whose format
	// version is not understood.
	ErrBadVersion = errors.New("snimage: unsupported format version")
)

// Load reads and parses one module image from disk.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snimage: read %s: %w", path, err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("snimage: parse %s: %w", path, err)
	}
	return img, nil
}

// Save serializes the image to path, creating or truncating the file.
func (i *Image) Save(path string) error {
	if err := os.WriteFile(path, Encode(i), 0o644); err != nil {
		return fmt.Errorf("snimage: write %s: %w", path, err)
	}
	return nil
}

// Decode parses a module image from its binary representation.
func Decode(data []byte) (*Image, error) {
	d := &decoder{buf: data}

	var m [4]byte
	d.read(m[:])
	if m != magic {
		return nil, ErrBadMagic
	}
	if v := d.uint16(); v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}

	img := &Image{}
	flags := d.byte()
	img.Signed = flags&flagSigned != 0
	img.Name = d.string16()
	img.PublicKey = d.bytes16()
	img.PublicKeyToken = d.bytes8()

	refCount := d.uint16()
	for n := 0; n < int(refCount); n++ {
		ref := &AssemblyRef{
			Name:           d.string16(),
			PublicKeyToken: d.bytes8(),
		}
		img.Refs = append(img.Refs, ref)
	}

	trustCount := d.uint16()
	for n := 0; n < int(trustCount); n++ {
		img.Trusts = append(img.Trusts, &TrustDecl{Argument: d.string16()})
	}

	img.Payload = d.bytes32()

	if d.err != nil {
		return nil, d.err
	}
	if len(d.buf) != 0 {
		return nil, fmt.Errorf("snimage: %d bytes of trailing garbage", len(d.buf))
	}
	return img, nil
}

// Encode serializes the image to its binary representation.
func Encode(i *Image) []byte {
	var b bytes.Buffer
	b.Write(magic[:])
	writeUint16(&b, formatVersion)

	var flags byte
	if i.Signed {
		flags |= flagSigned
	}
	b.WriteByte(flags)

	writeString16(&b, i.Name)
	writeBytes16(&b, i.PublicKey)
	writeBytes8(&b, i.PublicKeyToken)

	writeUint16(&b, uint16(len(i.Refs)))
	for _, r := range i.Refs {
		writeString16(&b, r.Name)
		writeBytes8(&b, r.PublicKeyToken)
	}

	writeUint16(&b, uint16(len(i.Trusts)))
	for _, d := range i.Trusts {
		writeString16(&b, d.Argument)
	}

	writeBytes32(&b, i.Payload)
	return b.Bytes()
}

// decoder consumes the input buffer front to back, latching the first
// error so callers can check once at the end.
type decoder struct {
	buf []byte
	err error
}

var errTruncated = errors.New("snimage: truncated image")

func (d *decoder) read(dst []byte) {
	if d.err != nil {
		return
	}
	if len(d.buf) < len(dst) {
		d.err = errTruncated
		return
	}
	copy(dst, d.buf)
	d.buf = d.buf[len(dst):]
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf) < n {
		d.err = errTruncated
		return nil
	}
	out := d.buf[:n:n]
	d.buf = d.buf[n:]
	return out
}

func (d *decoder) byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) bytes8() []byte {
	n := int(d.byte())
	if n == 0 {
		return nil
	}
	return d.take(n)
}

func (d *decoder) bytes16() []byte {
	n := int(d.uint16())
	if n == 0 {
		return nil
	}
	return d.take(n)
}

func (d *decoder) bytes32() []byte {
	n := int(d.uint32())
	if n == 0 {
		return nil
	}
	return d.take(n)
}

func (d *decoder) string16() string {
	return string(d.bytes16())
}

func writeUint16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func writeUint32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func writeBytes8(b *bytes.Buffer, v []byte) {
	b.WriteByte(byte(len(v)))
	b.Write(v)
}

func writeBytes16(b *bytes.Buffer, v []byte) {
	writeUint16(b, uint16(len(v)))
	b.Write(v)
}

func writeBytes32(b *bytes.Buffer, v []byte) {
	writeUint32(b, uint32(len(v)))
	b.Write(v)
}

func writeString16(b *bytes.Buffer, s string) {
	writeUint16(b, uint16(len(s)))
	b.WriteString(s)
}
