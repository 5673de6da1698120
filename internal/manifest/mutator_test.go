package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prefix-dev/pixibump/internal/bumperr"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(content)
}

func TestMutatorApply(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, manifestTagPin)

	// tool invocations are stubbed, only the manifest edit is under test
	mutator := NewMutator(dir, "Cargo.toml", "pixi_api", []string{"true"}, []string{"true"})

	require.NoError(t, mutator.Apply(context.Background(), "v1.2.0"))

	ref, err := Resolve([]byte(readFile(t, path)), "pixi_api")
	require.NoError(t, err)
	assert.Equal(t, "v1.2.0", ref.Tag)
}

func TestMutatorApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, manifestTagPin)

	mutator := NewMutator(dir, "Cargo.toml", "pixi_api", []string{"true"}, []string{"true"})

	require.NoError(t, mutator.Apply(context.Background(), "v1.2.0"))
	afterFirst := readFile(t, path)

	require.NoError(t, mutator.Apply(context.Background(), "v1.2.0"))
	assert.Equal(t, afterFirst, readFile(t, path))
}

func TestMutatorApplyFailingToolKeepsManifestEdit(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, manifestTagPin)

	mutator := NewMutator(dir, "Cargo.toml", "pixi_api", []string{"true"}, []string{"false"})

	err := mutator.Apply(context.Background(), "v1.2.0")
	require.Error(t, err)
	assert.True(t, bumperr.IsKind(err, bumperr.KindTool))

	// partial state is expected, re-running after fixing the
	// environment completes the operation
	ref, resolveErr := Resolve([]byte(readFile(t, path)), "pixi_api")
	require.NoError(t, resolveErr)
	assert.Equal(t, "v1.2.0", ref.Tag)
}

func TestMutatorApplyDependencyMissing(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, manifestTagPin)

	mutator := NewMutator(dir, "Cargo.toml", "does_not_exist", []string{"true"}, []string{"true"})

	err := mutator.Apply(context.Background(), "v1.2.0")
	require.Error(t, err)
	assert.True(t, bumperr.IsKind(err, bumperr.KindConfig))
}
