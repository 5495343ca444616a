package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortender/StrongNameRemover/internal/config"
	"github.com/fortender/StrongNameRemover/internal/snimage"
)

func writeModule(t *testing.T, dir, fileName string, img *snimage.Image) {
	t.Helper()
	require.NoError(t, img.Save(filepath.Join(dir, fileName)))
}

func signedImage(name string, refs ...*snimage.AssemblyRef) *snimage.Image {
	key := []byte("key material for " + name)
	return &snimage.Image{
		Name:           name,
		PublicKey:      key,
		PublicKeyToken: snimage.Token(key),
		Signed:         true,
		Refs:           refs,
		Payload:        []byte(name + " body"),
	}
}

func testConfig(inDir, outDir string) *config.Model {
	cfg := config.Default()
	cfg.InputDir = inDir
	cfg.OutputDir = outDir
	cfg.LogLevel = "error"
	return cfg
}

func TestRunStripsCascadeAndWritesResults(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "stripped")

	core := signedImage("Core")
	coreToken := append([]byte(nil), core.PublicKeyToken...)
	writeModule(t, inDir, "Core-Patched.snmod", core)
	writeModule(t, inDir, "Data.snmod", signedImage("Data",
		&snimage.AssemblyRef{Name: "Core", PublicKeyToken: coreToken}))
	writeModule(t, inDir, "Bystander.snmod", signedImage("Bystander"))

	a := New(&bytes.Buffer{}, testConfig(inDir, outDir))
	require.NoError(t, a.Run(context.Background()))

	// The patched module and its dependent were rewritten.
	stripped, err := snimage.Load(filepath.Join(outDir, "Core-Patched.snmod"))
	require.NoError(t, err)
	assert.False(t, stripped.StrongNamed())
	assert.False(t, stripped.Signed)
	assert.Equal(t, []byte("Core body"), stripped.Payload)

	dependent, err := snimage.Load(filepath.Join(outDir, "Data.snmod"))
	require.NoError(t, err)
	assert.False(t, dependent.StrongNamed())
	assert.Nil(t, dependent.RefTo("Core").PublicKeyToken)

	// The untouched module is reported as a no-op and never written.
	_, err = os.Stat(filepath.Join(outDir, "Bystander.snmod"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunPatchedLeafStripsOnlyItself(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "stripped")

	// Leaf-Patched references Mid references Base: the cascade follows
	// incoming edges only, so neither dependency is touched.
	base := signedImage("Base")
	writeModule(t, inDir, "Base.snmod", base)
	mid := signedImage("Mid", &snimage.AssemblyRef{
		Name: "Base", PublicKeyToken: append([]byte(nil), base.PublicKeyToken...)})
	writeModule(t, inDir, "Mid.snmod", mid)
	writeModule(t, inDir, "Leaf-Patched.snmod", signedImage("Leaf", &snimage.AssemblyRef{
		Name: "Mid", PublicKeyToken: append([]byte(nil), mid.PublicKeyToken...)}))

	a := New(&bytes.Buffer{}, testConfig(inDir, outDir))
	require.NoError(t, a.Run(context.Background()))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Leaf-Patched.snmod", entries[0].Name())
}

func TestRunSkipsCorruptModules(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "stripped")

	writeModule(t, inDir, "Core-Patched.snmod", signedImage("Core"))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "Broken.snmod"),
		[]byte("garbage"), 0o644))

	a := New(&bytes.Buffer{}, testConfig(inDir, outDir))
	require.NoError(t, a.Run(context.Background()))

	_, err := os.Stat(filepath.Join(outDir, "Core-Patched.snmod"))
	assert.NoError(t, err)
}

func TestRunMissingInputDir(t *testing.T) {
	t.Parallel()

	cfg := testConfig(filepath.Join(t.TempDir(), "absent"), t.TempDir())
	a := New(&bytes.Buffer{}, cfg)
	err := a.Run(context.Background())
	assert.ErrorContains(t, err, "failed to list module directory")
}

func TestRunNoRootsWritesNothing(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "stripped")
	writeModule(t, inDir, "Core.snmod", signedImage("Core"))

	a := New(&bytes.Buffer{}, testConfig(inDir, outDir))
	require.NoError(t, a.Run(context.Background()))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
