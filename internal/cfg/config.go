// Package cfg loads the pixibump configuration file.
package cfg

import (
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml"
)

// Config describes the tracked dependency and how changes to it are
// published.
// The GitHub API token is intentionally not part of the file, it is read
// from the process environment (GH_TOKEN or GITHUB_TOKEN).
type Config struct {
	UpstreamRepository   string   `toml:"upstream_repository"`
	DownstreamRepository string   `toml:"downstream_repository"`
	Dependency           string   `toml:"dependency"`
	ManifestPath         string   `toml:"manifest_path"`
	LockfilePath         string   `toml:"lockfile_path"`
	BranchPrefix         string   `toml:"branch_prefix"`
	GitUserName          string   `toml:"git_user_name"`
	GitUserEmail         string   `toml:"git_user_email"`
	FormatterCommand     []string `toml:"formatter_command"`
	LockCommand          []string `toml:"lock_command"`
	LogFormat            string   `toml:"log_format"`
	LogLevel             string   `toml:"log_level"`
	LogTimeKey           string   `toml:"log_time_key"`
}

// Default returns the configuration used when no configuration file exists.
// The values track the pixi_api dependency of pixi-gui on prefix-dev/pixi.
func Default() *Config {
	var config Config
	config.applyDefaults()

	return &config
}

func Load(reader io.Reader) (*Config, error) {
	var result Config

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	if err := toml.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	result.applyDefaults()

	if err := result.validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *Config) Marshal(writer io.Writer) error {
	return toml.NewEncoder(writer).Encode(r)
}

func (r *Config) applyDefaults() {
	if r.UpstreamRepository == "" {
		r.UpstreamRepository = "prefix-dev/pixi"
	}

	if r.DownstreamRepository == "" {
		r.DownstreamRepository = "prefix-dev/pixi-gui"
	}

	if r.Dependency == "" {
		r.Dependency = "pixi_api"
	}

	if r.ManifestPath == "" {
		r.ManifestPath = "src-tauri/Cargo.toml"
	}

	if r.LockfilePath == "" {
		r.LockfilePath = "src-tauri/Cargo.lock"
	}

	if r.BranchPrefix == "" {
		r.BranchPrefix = "bump-pixi"
	}

	if r.GitUserName == "" {
		r.GitUserName = "github-actions[bot]"
	}

	if r.GitUserEmail == "" {
		r.GitUserEmail = "github-actions[bot]@users.noreply.github.com"
	}

	if r.LogFormat == "" {
		r.LogFormat = "logfmt"
	}

	if r.LogLevel == "" {
		r.LogLevel = "info"
	}

	if r.LogTimeKey == "" {
		r.LogTimeKey = "time"
	}
}

func (r *Config) validate() error {
	for _, repo := range []string{r.UpstreamRepository, r.DownstreamRepository} {
		owner, name, found := strings.Cut(repo, "/")
		if !found || owner == "" || name == "" {
			return fmt.Errorf("repository %q is not in <owner>/<name> format", repo)
		}
	}

	return nil
}
