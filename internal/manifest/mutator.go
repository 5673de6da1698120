package manifest

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/prefix-dev/pixibump/internal/bumperr"
	"github.com/prefix-dev/pixibump/internal/logfields"
)

const loggerName = "manifest_mutator"

// Mutator rewrites the dependency pin in the manifest and refreshes the
// derived lockfile.
//
// Applying a target tag is idempotent, re-running it after a partial
// failure produces the same manifest content again.
type Mutator struct {
	dir          string
	manifestPath string
	dependency   string

	formatterCmd []string
	lockCmd      []string

	logger *zap.Logger
}

// NewMutator returns a Mutator operating on the manifest at
// dir/manifestPath.
// formatterCmd and lockCmd override the external formatter and
// lock-resolver invocations, nil selects the defaults (taplo and cargo).
func NewMutator(dir, manifestPath, dependency string, formatterCmd, lockCmd []string) *Mutator {
	return &Mutator{
		dir:          dir,
		manifestPath: manifestPath,
		dependency:   dependency,
		formatterCmd: formatterCmd,
		lockCmd:      lockCmd,
		logger:       zap.L().Named(loggerName),
	}
}

// Apply pins the dependency to targetTag, persists the manifest, runs the
// formatter over it and regenerates the lock entry of only this dependency.
//
// When the formatter or the lock resolver fails, a bumperr.KindTool error
// is returned and the already written manifest edit is kept. The caller is
// expected to fix the environment and re-run.
func (m *Mutator) Apply(ctx context.Context, targetTag string) error {
	path := filepath.Join(m.dir, m.manifestPath)

	content, err := os.ReadFile(path)
	if err != nil {
		return bumperr.NewConfigError(fmt.Errorf("reading manifest failed: %w", err))
	}

	current, err := Resolve(content, m.dependency)
	if err != nil {
		return err
	}

	updated, err := Rewrite(content, m.dependency, current, targetTag)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, updated, 0o644); err != nil {
		return bumperr.NewToolError(fmt.Errorf("writing manifest failed: %w", err))
	}

	m.logger.Info(
		"manifest rewritten",
		logfields.Event("manifest_rewritten"),
		logfields.Dependency(m.dependency),
		logfields.Tag(targetTag),
		zap.String("manifest", m.manifestPath),
	)

	if err := m.runTool(ctx, m.formatterArgs()); err != nil {
		return err
	}

	return m.runTool(ctx, m.lockArgs())
}

func (m *Mutator) formatterArgs() []string {
	if len(m.formatterCmd) > 0 {
		return m.formatterCmd
	}

	return []string{"taplo", "fmt", m.manifestPath}
}

func (m *Mutator) lockArgs() []string {
	if len(m.lockCmd) > 0 {
		return m.lockCmd
	}

	return []string{"cargo", "update", "--manifest-path", m.manifestPath, "-p", m.dependency}
}

func (m *Mutator) runTool(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = m.dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	m.logger.Debug(
		"running external tool",
		logfields.Event("tool_started"),
		zap.String("command", strings.Join(args, " ")),
	)

	if err := cmd.Run(); err != nil {
		return bumperr.NewToolError(fmt.Errorf(
			"%q failed: %w, output: %s",
			strings.Join(args, " "), err, strings.TrimSpace(output.String()),
		))
	}

	return nil
}
