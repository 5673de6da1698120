package cfg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, "prefix-dev/pixi", config.UpstreamRepository)
	assert.Equal(t, "prefix-dev/pixi-gui", config.DownstreamRepository)
	assert.Equal(t, "pixi_api", config.Dependency)
	assert.Equal(t, "src-tauri/Cargo.toml", config.ManifestPath)
	assert.Equal(t, "src-tauri/Cargo.lock", config.LockfilePath)
	assert.Equal(t, "bump-pixi", config.BranchPrefix)
	assert.Equal(t, "logfmt", config.LogFormat)
}

func TestLoadOverrides(t *testing.T) {
	const file = `
upstream_repository = "acme/widgets"
dependency = "widgets_api"
branch_prefix = "bump-widgets"
formatter_command = ["taplo", "format", "Cargo.toml"]
`

	config, err := Load(strings.NewReader(file))
	require.NoError(t, err)

	assert.Equal(t, "acme/widgets", config.UpstreamRepository)
	assert.Equal(t, "widgets_api", config.Dependency)
	assert.Equal(t, "bump-widgets", config.BranchPrefix)
	assert.Equal(t, []string{"taplo", "format", "Cargo.toml"}, config.FormatterCommand)

	// unset keys still get defaults
	assert.Equal(t, "prefix-dev/pixi-gui", config.DownstreamRepository)
}

func TestLoadRejectsMalformedRepository(t *testing.T) {
	_, err := Load(strings.NewReader(`upstream_repository = "no-owner"`))
	require.Error(t, err)

	assert.Contains(t, err.Error(), "<owner>/<name>")
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	_, err := Load(strings.NewReader("dependency = "))
	require.Error(t, err)
}

func TestDefaultEqualsEmptyLoad(t *testing.T) {
	loaded, err := Load(strings.NewReader(""))
	require.NoError(t, err)

	assert.Equal(t, loaded, Default())
}
